// Package lockfile reads and writes cheese.lock files.
package lockfile

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Store implements ports.LockfileStore with YAML files.
type Store struct {
	filename string
}

// NewStore creates a Store using domain.LockFileName.
func NewStore() *Store {
	return &Store{filename: domain.LockFileName}
}

// Path returns the lock file location for a bundle root.
func (s *Store) Path(root string) string {
	return filepath.Join(root, s.filename)
}

// Read returns the lock file in root, or nil, nil if there is none.
func (s *Store) Read(root string) (*domain.Lockfile, error) {
	path := s.Path(root)
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the bundle root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockReadFailed.Error()), "path", path)
	}

	var dto lockDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockReadFailed.Error()), "path", path)
	}
	return fromDTO(dto), nil
}

// Write serializes lock and replaces the lock file in root atomically.
// Equal locks always produce identical bytes.
func (s *Store) Write(root string, lock *domain.Lockfile) error {
	path := s.Path(root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toDTO(lock)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockWriteFailed.Error()), "path", path)
	}
	if err := enc.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockWriteFailed.Error()), "path", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockWriteFailed.Error()), "path", path)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockWriteFailed.Error()), "path", path)
	}
	return nil
}

func toDTO(lock *domain.Lockfile) lockDTO {
	dto := lockDTO{
		Version:  lock.Version,
		Declared: make([]declaredDTO, 0, len(lock.Declared)),
		Sources:  make([]sourceDTO, 0, len(lock.Sources)),
	}
	for _, r := range lock.Declared {
		dto.Declared = append(dto.Declared, declaredDTO{Name: r.Name, Version: r.Version, Path: r.Path})
	}
	for _, src := range lock.Sources {
		s := sourceDTO{URL: src.URL, Packages: make([]packageDTO, 0, len(src.Packages))}
		for _, pkg := range src.Packages {
			p := packageDTO{Name: pkg.Name, Version: pkg.Version}
			for _, dep := range pkg.Requires {
				p.Requires = append(p.Requires, dependencyDTO{Name: dep.Name, Version: dep.Constraint})
			}
			s.Packages = append(s.Packages, p)
		}
		dto.Sources = append(dto.Sources, s)
	}
	return dto
}

func fromDTO(dto lockDTO) *domain.Lockfile {
	lock := &domain.Lockfile{
		Version:  dto.Version,
		Declared: make([]domain.Requirement, 0, len(dto.Declared)),
		Sources:  make([]domain.LockedSource, 0, len(dto.Sources)),
	}
	for _, r := range dto.Declared {
		lock.Declared = append(lock.Declared, domain.Requirement{Name: r.Name, Version: r.Version, Path: r.Path})
	}
	for _, src := range dto.Sources {
		s := domain.LockedSource{URL: src.URL, Packages: make([]domain.LockedPackage, 0, len(src.Packages))}
		for _, pkg := range src.Packages {
			p := domain.LockedPackage{Name: pkg.Name, Version: pkg.Version}
			for _, dep := range pkg.Requires {
				p.Requires = append(p.Requires, domain.Dependency{Name: dep.Name, Constraint: dep.Version})
			}
			s.Packages = append(s.Packages, p)
		}
		lock.Sources = append(lock.Sources, s)
	}
	lock.SortPackages()
	return lock
}
