package ports

import "go.trai.ch/pbundle/internal/core/domain"

// MetadataReader reads package metadata out of artifact files.
//
//go:generate go run go.uber.org/mock/mockgen -source=metadata.go -destination=mocks/mock_metadata.go -package=mocks
type MetadataReader interface {
	// Inspect derives name, version and kind from an artifact file name.
	// ok is false for files that are not recognized artifacts.
	Inspect(filename string) (artifact domain.Artifact, ok bool)

	// ReadDependencies returns the requirements declared inside the artifact at path.
	ReadDependencies(path string) ([]domain.Dependency, error)

	// Unpack extracts the archive at path into dest and returns the project directory.
	Unpack(path, dest string) (string, error)
}
