package ports

import "go.trai.ch/pbundle/internal/core/domain"

// Activator turns resolved artifacts into a process environment.
//
//go:generate go run go.uber.org/mock/mockgen -source=activator.go -destination=mocks/mock_activator.go -package=mocks
type Activator interface {
	// Environment returns "KEY=VALUE" entries that make the artifacts importable.
	Environment(bundle *domain.Bundlefile, artifacts []*domain.Artifact) []string
}
