// Package sources builds the sources a resolution queries.
package sources

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/git-pkgs/registries"
	"go.trai.ch/pbundle/internal/adapters/fs"
	"go.trai.ch/pbundle/internal/adapters/registry"
	"go.trai.ch/pbundle/internal/core/ports"
)

// Factory implements ports.SourceFactory. Sources are cached by URL and path
// so their version caches and breakers outlive a single pass.
type Factory struct {
	logger  ports.Logger
	walker  *fs.Walker
	hasher  *fs.Hasher
	reader  ports.MetadataReader
	timeout time.Duration

	mu     sync.Mutex
	remote map[string]*registry.Source
	local  map[string]*fs.Source
}

// NewFactory creates a Factory. timeout bounds each registry request.
func NewFactory(
	logger ports.Logger,
	walker *fs.Walker,
	hasher *fs.Hasher,
	reader ports.MetadataReader,
	timeout time.Duration,
) *Factory {
	return &Factory{
		logger:  logger,
		walker:  walker,
		hasher:  hasher,
		reader:  reader,
		timeout: timeout,
		remote:  make(map[string]*registry.Source),
		local:   make(map[string]*fs.Source),
	}
}

// ForURL returns the registry source for url.
func (f *Factory) ForURL(url string) (ports.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if src, ok := f.remote[url]; ok {
		return src, nil
	}
	client := registries.NewClient(registries.WithTimeout(f.timeout), registries.WithMaxRetries(0))
	src, err := registry.New(url, f.logger, registry.WithClient(client))
	if err != nil {
		return nil, err
	}
	f.remote[url] = src
	return src, nil
}

// ForPath returns the filesystem source over path.
func (f *Factory) ForPath(path string) ports.Source {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	if src, ok := f.local[key]; ok {
		return src
	}
	src := fs.NewSource(key, f.walker, f.hasher, f.reader)
	f.local[key] = src
	return src
}

// Compile-time check.
var _ ports.SourceFactory = (*Factory)(nil)

