package config

// Cheesefile represents the structure of the cheese.yaml requirement file.
type Cheesefile struct {
	Version  string       `yaml:"version"`
	Sources  []string     `yaml:"sources" validate:"dive,required,url"`
	Packages []PackageDTO `yaml:"packages" validate:"dive"`
}

// PackageDTO represents a declared package in the requirement file.
type PackageDTO struct {
	Name     string `yaml:"name" validate:"required"`
	Version  string `yaml:"version"`
	Path     string `yaml:"path"`
	Group    string `yaml:"group"`
	Platform string `yaml:"platform"`
}
