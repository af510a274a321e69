package ports

import "go.trai.ch/pbundle/internal/core/domain"

// ConfigLoader defines the interface for loading the requirement file.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the requirement file named filename at or above cwd and parses it.
	// An empty filename selects the default requirement file name.
	Load(cwd, filename string) (*domain.Bundlefile, error)
}
