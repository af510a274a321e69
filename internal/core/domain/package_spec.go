package domain

import (
	"path/filepath"
	"strings"
)

// SpecState is the resolution state of a PackageSpec.
type SpecState int

const (
	// StateUnbound means no source has been chosen yet.
	StateUnbound SpecState = iota
	// StateSourceBound means a source and an exact version are chosen.
	StateSourceBound
	// StateDistributionBound means a concrete artifact is bound.
	StateDistributionBound
	// StateInstalled means the artifact is ready for activation.
	StateInstalled
)

// String returns a human readable name of the state.
func (s SpecState) String() string {
	switch s {
	case StateSourceBound:
		return "source-bound"
	case StateDistributionBound:
		return "distribution-bound"
	case StateInstalled:
		return "installed"
	default:
		return "unbound"
	}
}

// FileSourcePrefix prefixes the URL of filesystem sources.
const FileSourcePrefix = "file://"

// FileSourceURL returns the source URL of a local directory.
func FileSourceURL(path string) string {
	return FileSourcePrefix + filepath.ToSlash(filepath.Clean(path))
}

// IsFileSourceURL reports whether url names a filesystem source.
func IsFileSourceURL(url string) bool {
	return strings.HasPrefix(url, FileSourcePrefix)
}

// FileSourcePath returns the directory named by a filesystem source URL.
func FileSourcePath(url string) string {
	return filepath.FromSlash(strings.TrimPrefix(url, FileSourcePrefix))
}

// PackageSpec is a single requirement moving through resolution.
type PackageSpec struct {
	// Key is the canonical identifier used for set membership.
	Key InternedString

	// Name is the display name; sources may rewrite it to their canonical spelling.
	Name string

	// Constraint is the parsed, possibly merged, version constraint.
	Constraint Constraint

	// OriginalConstraint is the constraint text as declared.
	OriginalConstraint string

	// Path pins the requirement to a local directory of artifacts.
	Path string

	// Source is the URL of the bound source, empty while unbound.
	Source string

	// ExactVersion is the bound version.
	ExactVersion Version

	// Artifact is the bound distribution.
	Artifact *Artifact

	// Requirements are the transitive requirements declared by the artifact.
	Requirements []Dependency

	// LockedSource is the source URL recorded by a lock file.
	LockedSource string
}

// NewPackageSpec parses a requirement into an unbound PackageSpec.
func NewPackageSpec(name, constraint, path string) (*PackageSpec, error) {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return nil, err
	}
	spec := &PackageSpec{
		Key:                CanonicalKey(name),
		Name:               strings.TrimSpace(name),
		Constraint:         c,
		OriginalConstraint: strings.TrimSpace(constraint),
		Path:               path,
	}
	if pin, ok := c.Exact(); ok {
		if v, err := ParseVersion(pin); err == nil {
			spec.ExactVersion = v
		}
	}
	return spec, nil
}

// State returns the resolution state derived from the bound fields.
func (s *PackageSpec) State() SpecState {
	switch {
	case s.Artifact != nil && !s.Artifact.NeedsInstall():
		return StateInstalled
	case s.Artifact != nil:
		return StateDistributionBound
	case s.Source != "":
		return StateSourceBound
	default:
		return StateUnbound
	}
}

// IsBound reports whether a source or an artifact is already bound.
func (s *PackageSpec) IsBound() bool {
	return s.Source != "" || s.Artifact != nil
}

// IsExact reports whether the spec carries an exact version.
func (s *PackageSpec) IsExact() bool {
	return !s.ExactVersion.IsZero()
}

// IsLocal reports whether the spec is pinned to a local path.
func (s *PackageSpec) IsLocal() bool {
	return s.Path != ""
}

// UseFrom binds the spec to a source at an exact version.
func (s *PackageSpec) UseFrom(source string, version Version) {
	s.Source = source
	s.ExactVersion = version
}

// UseArtifact binds a concrete artifact to the spec.
func (s *PackageSpec) UseArtifact(a *Artifact) {
	s.Artifact = a
	if s.ExactVersion.IsZero() {
		s.ExactVersion = a.Version
	}
}

// Rename adopts a source's canonical spelling of the name.
func (s *PackageSpec) Rename(name string) {
	if name != "" {
		s.Name = name
	}
}

// String returns "name constraint" for log lines.
func (s *PackageSpec) String() string {
	if s.IsExact() {
		return s.Name + " " + s.ExactVersion.String()
	}
	return s.Name + " " + s.Constraint.String()
}
