// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/pbundle/internal/core/domain"
)

// Source is a place package versions and artifacts come from.
//
//go:generate go run go.uber.org/mock/mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks
type Source interface {
	// URL identifies the source. Filesystem sources use a file:// URL.
	URL() string

	// CanonicalName returns the source's spelling of the spec's package name.
	// Unknown packages keep their name. It is idempotent.
	CanonicalName(ctx context.Context, spec *domain.PackageSpec) (string, error)

	// AvailableVersions lists the versions the source offers for the spec, in
	// ascending order. An empty list means "not available here"; an error
	// wrapping domain.ErrSourceUnavailable means the source could not be queried.
	AvailableVersions(ctx context.Context, spec *domain.PackageSpec) ([]domain.Version, error)

	// GetDistribution returns an artifact descriptor for the spec's exact version.
	GetDistribution(ctx context.Context, spec *domain.PackageSpec) (*domain.Artifact, error)
}

// SourceFactory builds sources for declared URLs and local paths.
type SourceFactory interface {
	// ForURL returns the source serving a declared source URL.
	ForURL(url string) (Source, error)

	// ForPath returns a filesystem source over a local directory.
	ForPath(path string) Source
}
