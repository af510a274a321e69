package lockfile

// lockDTO is the on-disk layout of cheese.lock.
type lockDTO struct {
	Version  int           `yaml:"version"`
	Declared []declaredDTO `yaml:"declared"`
	Sources  []sourceDTO   `yaml:"sources"`
}

type declaredDTO struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Path    string `yaml:"path,omitempty"`
}

type sourceDTO struct {
	URL      string       `yaml:"url"`
	Packages []packageDTO `yaml:"packages"`
}

type packageDTO struct {
	Name     string          `yaml:"name"`
	Version  string          `yaml:"version"`
	Requires []dependencyDTO `yaml:"requires,omitempty"`
}

type dependencyDTO struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}
