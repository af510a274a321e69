package ports

import (
	"context"

	"go.trai.ch/pbundle/internal/core/domain"
)

// LocalStore is the content-addressed artifact cache keyed by (name, version).
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type LocalStore interface {
	// Get returns the cached artifact for the spec's exact version.
	// Returns nil, nil on a miss and domain.ErrNotExactVersion without an exact version.
	Get(ctx context.Context, spec *domain.PackageSpec) (*domain.Artifact, error)

	// Prepare obtains the artifact from source and makes it locally available.
	Prepare(ctx context.Context, spec *domain.PackageSpec, source Source) (*domain.Artifact, error)

	// Install performs the build step for a source artifact. It is idempotent.
	Install(ctx context.Context, spec *domain.PackageSpec, artifact *domain.Artifact) (*domain.Artifact, error)
}
