// Package config provides the requirement file loader for pbundle.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	logger   ports.Logger
	validate *validator.Validate
}

// NewLoader creates a new Loader.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{
		logger:   log,
		validate: validator.New(),
	}
}

// Load finds the requirement file at or above cwd and parses it.
// An empty filename means domain.BundleFileName; a filename containing a
// path separator is used as is, relative to cwd.
func (l *Loader) Load(cwd, filename string) (*domain.Bundlefile, error) {
	if filename == "" {
		filename = domain.BundleFileName
	}
	path, err := locate(cwd, filename)
	if err != nil {
		return nil, err
	}
	return l.load(path)
}

func locate(cwd, filename string) (string, error) {
	if strings.ContainsRune(filename, filepath.Separator) || strings.ContainsRune(filename, '/') {
		path := filename
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", zerr.With(zerr.Wrap(err, domain.ErrConfigNotFound.Error()), "path", path)
		}
		return filepath.Abs(path)
	}

	start, err := filepath.Abs(cwd)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrConfigNotFound.Error())
	}
	dir, err := findRoot(start, lookForFile(filename))
	if err != nil {
		e := zerr.With(domain.ErrConfigNotFound, "filename", filename)
		return "", zerr.With(e, "cwd", start)
	}
	return filepath.Join(dir, filename), nil
}

func (l *Loader) load(path string) (*domain.Bundlefile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var file Cheesefile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	if err := l.validate.Struct(file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigInvalid.Error()), "path", path)
	}

	root := filepath.Dir(path)
	bundle := &domain.Bundlefile{
		Root:         root,
		Path:         path,
		Sources:      file.Sources,
		Requirements: make([]domain.Requirement, 0, len(file.Packages)),
	}

	for _, pkg := range file.Packages {
		req := domain.Requirement{
			Name:     pkg.Name,
			Version:  strings.TrimSpace(pkg.Version),
			Path:     pkg.Path,
			Group:    pkg.Group,
			Platform: pkg.Platform,
		}
		if req.Version == "" {
			req.Version = "*"
		}
		if req.Path != "" && !filepath.IsAbs(req.Path) {
			req.Path = filepath.Join(root, req.Path)
		}
		if req.Path == "" && len(file.Sources) == 0 && l.logger != nil {
			l.logger.Warn("package " + req.Name + " has neither a path nor a declared source")
		}
		bundle.Requirements = append(bundle.Requirements, req)
	}

	return bundle, nil
}

// matcherFunc reports whether dir is the directory being looked for.
type matcherFunc func(dir string) bool

func lookForFile(names ...string) matcherFunc {
	return func(dir string) bool {
		for _, name := range names {
			if fi, err := os.Stat(filepath.Join(dir, name)); err == nil && !fi.IsDir() {
				return true
			}
		}
		return false
	}
}

// findRoot walks from startAt towards the filesystem root and returns the
// first directory accepted by match.
func findRoot(startAt string, match matcherFunc) (string, error) {
	dir := filepath.Clean(startAt)
	for {
		if match(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fs.ErrNotExist
		}
		dir = parent
	}
}
