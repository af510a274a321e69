package cas

import (
	"go.trai.ch/pbundle/internal/core/domain"
)

// manifest is the on-disk record of one cached (name, version).
type manifest struct {
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	Kind         domain.ArtifactKind  `json:"kind"`
	Filename     string               `json:"filename"`
	URL          string               `json:"url,omitempty"`
	Integrity    string               `json:"integrity,omitempty"`
	Digest       string               `json:"digest"`
	Checksum     string               `json:"checksum,omitempty"`
	Location     string               `json:"location"`
	Installed    bool                 `json:"installed"`
	Dependencies []manifestDependency `json:"dependencies,omitempty"`
}

type manifestDependency struct {
	Name       string `json:"name"`
	Constraint string `json:"version"`
}

func toManifest(a *domain.Artifact) manifest {
	m := manifest{
		Name:      a.Name,
		Version:   a.Version.String(),
		Kind:      a.Kind,
		Filename:  a.Filename,
		URL:       a.URL,
		Integrity: a.Integrity,
		Digest:    a.Digest,
		Checksum:  a.Checksum,
		Location:  a.Location,
		Installed: a.Installed,
	}
	for _, d := range a.Dependencies {
		m.Dependencies = append(m.Dependencies, manifestDependency{Name: d.Name, Constraint: d.Constraint})
	}
	return m
}

func (m manifest) artifact() (*domain.Artifact, error) {
	v, err := domain.ParseVersion(m.Version)
	if err != nil {
		return nil, err
	}
	a := &domain.Artifact{
		Name:      m.Name,
		Version:   v,
		Kind:      m.Kind,
		Filename:  m.Filename,
		URL:       m.URL,
		Integrity: m.Integrity,
		Digest:    m.Digest,
		Checksum:  m.Checksum,
		Location:  m.Location,
		Installed: m.Installed,
	}
	for _, d := range m.Dependencies {
		a.Dependencies = append(a.Dependencies, domain.Dependency{Name: d.Name, Constraint: d.Constraint})
	}
	return a, nil
}
