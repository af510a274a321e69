package fs

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Source = (*Source)(nil)

// Source serves the artifacts found directly inside a local directory.
type Source struct {
	root   string
	walker *Walker
	hasher *Hasher
	reader ports.MetadataReader

	once      sync.Once
	artifacts map[domain.InternedString][]domain.Artifact
	scanErr   error
}

// NewSource creates a source over the directory root.
func NewSource(root string, walker *Walker, hasher *Hasher, reader ports.MetadataReader) *Source {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Source{
		root:   filepath.Clean(root),
		walker: walker,
		hasher: hasher,
		reader: reader,
	}
}

// URL returns the file:// URL of the directory.
func (s *Source) URL() string {
	return domain.FileSourceURL(s.root)
}

// CanonicalName keeps the declared name; local directories have no naming authority.
func (s *Source) CanonicalName(_ context.Context, spec *domain.PackageSpec) (string, error) {
	return spec.Name, nil
}

// AvailableVersions lists the distinct versions of the package in the directory, ascending.
func (s *Source) AvailableVersions(_ context.Context, spec *domain.PackageSpec) ([]domain.Version, error) {
	artifacts, err := s.lookup(spec.Key)
	if err != nil {
		return nil, err
	}

	versions := make([]domain.Version, 0, len(artifacts))
	for _, a := range artifacts {
		if len(versions) > 0 && versions[len(versions)-1].Equal(a.Version) {
			continue
		}
		versions = append(versions, a.Version)
	}
	return versions, nil
}

// GetDistribution returns the local artifact of the spec's exact version,
// preferring a built distribution over a source one.
func (s *Source) GetDistribution(_ context.Context, spec *domain.PackageSpec) (*domain.Artifact, error) {
	if spec.ExactVersion.IsZero() {
		return nil, zerr.With(domain.ErrNotExactVersion, "package", spec.Name)
	}

	artifacts, err := s.lookup(spec.Key)
	if err != nil {
		return nil, err
	}

	var found *domain.Artifact
	for i := range artifacts {
		a := artifacts[i]
		if !a.Version.Equal(spec.ExactVersion) {
			continue
		}
		if found == nil || (found.Kind == domain.KindSource && a.Kind == domain.KindBuilt) {
			found = &a
		}
	}
	if found == nil {
		return nil, zerr.With(zerr.With(domain.ErrPackageNotFound, "package", spec.String()), "path", s.root)
	}

	checksum, err := s.hasher.Checksum(found.Location)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	deps, err := s.reader.ReadDependencies(found.Location)
	if err != nil {
		return nil, err
	}

	found.Checksum = checksum
	found.Dependencies = deps
	return found, nil
}

func (s *Source) lookup(key domain.InternedString) ([]domain.Artifact, error) {
	s.once.Do(s.scan)
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return s.artifacts[key], nil
}

// scan indexes the directory once per source.
func (s *Source) scan() {
	s.artifacts = make(map[domain.InternedString][]domain.Artifact)

	files, err := s.walker.Files(s.root, nil)
	if err != nil {
		s.scanErr = errors.Join(domain.ErrSourceUnavailable, err)
		return
	}

	for _, file := range files {
		a, ok := s.reader.Inspect(filepath.Base(file))
		if !ok {
			continue
		}
		a.Location = file
		key := domain.CanonicalKey(a.Name)
		s.artifacts[key] = append(s.artifacts[key], a)
	}

	for _, artifacts := range s.artifacts {
		slices.SortStableFunc(artifacts, func(a, b domain.Artifact) int {
			return a.Version.Compare(b.Version)
		})
	}
}
