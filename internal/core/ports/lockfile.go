package ports

import "go.trai.ch/pbundle/internal/core/domain"

// LockfileStore persists lock files next to the requirement file.
//
//go:generate go run go.uber.org/mock/mockgen -source=lockfile.go -destination=mocks/mock_lockfile.go -package=mocks
type LockfileStore interface {
	// Read returns the lock file in root, or nil, nil if there is none.
	Read(root string) (*domain.Lockfile, error)

	// Write replaces the lock file in root atomically.
	Write(root string, lock *domain.Lockfile) error
}
