// Package fs provides file system adapters: artifact listing, checksums and
// the local directory package source.
package fs

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

// Walker lists candidate artifact files.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// Files returns the regular files directly inside dir in lexical order.
// Subdirectories, hidden entries and names matching an ignore pattern are
// skipped. A missing dir yields no files.
func (w *Walker) Files(dir string, ignores []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to list directory"), "path", dir)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if w.shouldSkip(entry, ignores) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

func (w *Walker) shouldSkip(entry os.DirEntry, ignores []string) bool {
	name := entry.Name()
	if entry.IsDir() || (!entry.Type().IsRegular() && entry.Type()&os.ModeSymlink == 0) {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}
