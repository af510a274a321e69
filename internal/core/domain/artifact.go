package domain

// ArtifactKind tells whether an artifact needs a build step before activation.
type ArtifactKind string

const (
	// KindSource is a source distribution that is unpacked by LocalStore.Install.
	KindSource ArtifactKind = "sdist"
	// KindBuilt is a pre-built distribution that can be activated as is.
	KindBuilt ArtifactKind = "wheel"
)

// Dependency is a (name, constraint) pair declared by an artifact.
type Dependency struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"version,omitempty"`
}

// Artifact is a concrete distribution of one package version.
type Artifact struct {
	// Name is the distribution name as published.
	Name string

	// Version is the distribution version.
	Version Version

	// Kind tells whether the artifact is a source or built distribution.
	Kind ArtifactKind

	// Filename is the published file name, e.g. "six-1.16.0-py2.py3-none-any.whl".
	Filename string

	// URL is the remote download location, empty for local artifacts.
	URL string

	// Integrity is the published "<algo>-<hex>" digest, if any.
	Integrity string

	// Digest addresses the artifact bytes in the local store.
	Digest string

	// Checksum is a fast content checksum of local artifacts.
	Checksum string

	// Location is the artifact file, or its unpacked directory once installed.
	Location string

	// Installed is set once a source artifact has been unpacked.
	Installed bool

	// Dependencies are the requirements declared by the artifact metadata.
	Dependencies []Dependency
}

// Requires returns the dependencies declared by the artifact.
func (a *Artifact) Requires() []Dependency {
	return a.Dependencies
}

// NeedsInstall reports whether the artifact still needs the install step.
func (a *Artifact) NeedsInstall() bool {
	return a.Kind == KindSource && !a.Installed
}

// ActivationPath returns the path put on the import path of activated processes.
// Built artifacts are importable directly, installed sources from their unpacked tree.
func (a *Artifact) ActivationPath() string {
	return a.Location
}
