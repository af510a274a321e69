package domain

import (
	"cmp"
	"path/filepath"
	"slices"

	"go.trai.ch/zerr"
)

// RequirementSet is the owned collection of package specs keyed by canonical name.
// It is mutated only by the resolution engine.
type RequirementSet struct {
	specs map[InternedString]*PackageSpec
}

// NewRequirementSet creates an empty RequirementSet.
func NewRequirementSet() *RequirementSet {
	return &RequirementSet{
		specs: make(map[InternedString]*PackageSpec),
	}
}

// NewRequirementSetFrom builds a set from declared requirements, merging duplicates.
func NewRequirementSetFrom(declared []Requirement) (*RequirementSet, error) {
	set := NewRequirementSet()
	for _, r := range declared {
		spec, err := NewPackageSpec(r.Name, r.Version, r.Path)
		if err != nil {
			return nil, zerr.With(err, "package", r.Name)
		}
		if _, err := set.Add(spec); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Add inserts spec unless a spec with the same key exists. On collision the
// constraints are intersected into the existing spec, and a conflict is
// reported if the two requirements cannot both hold.
func (rs *RequirementSet) Add(spec *PackageSpec) (bool, error) {
	existing, ok := rs.specs[spec.Key]
	if !ok {
		rs.specs[spec.Key] = spec
		return true, nil
	}

	if existing.Path != "" && spec.Path != "" && filepath.Clean(existing.Path) != filepath.Clean(spec.Path) {
		err := zerr.With(ErrResolutionConflict, "package", existing.Name)
		err = zerr.With(err, "path", existing.Path)
		return false, zerr.With(err, "conflicting_path", spec.Path)
	}

	if existing.IsExact() && spec.IsExact() && !existing.ExactVersion.Equal(spec.ExactVersion) {
		err := zerr.With(ErrResolutionConflict, "package", existing.Name)
		err = zerr.With(err, "version", existing.ExactVersion.String())
		return false, zerr.With(err, "conflicting_version", spec.ExactVersion.String())
	}

	merged := existing.Constraint.Intersect(spec.Constraint)
	if existing.IsExact() && !merged.Check(existing.ExactVersion) {
		err := zerr.Wrap(ErrResolutionConflict,
			"package "+existing.Name+" "+existing.ExactVersion.String()+" does not satisfy "+merged.String())
		err = zerr.With(err, "package", existing.Name)
		err = zerr.With(err, "version", existing.ExactVersion.String())
		if existing.Path != "" {
			err = zerr.With(err, "path", existing.Path)
		}
		return false, zerr.With(err, "constraint", merged.String())
	}

	existing.Constraint = merged
	if existing.Path == "" && spec.Path != "" && !existing.IsBound() {
		existing.Path = spec.Path
	}
	return false, nil
}

// Get returns the spec registered under the canonical key of name.
func (rs *RequirementSet) Get(name string) (*PackageSpec, bool) {
	spec, ok := rs.specs[CanonicalKey(name)]
	return spec, ok
}

// Len returns the number of specs in the set.
func (rs *RequirementSet) Len() int {
	return len(rs.specs)
}

// Specs returns a snapshot of the set ordered by canonical key.
func (rs *RequirementSet) Specs() []*PackageSpec {
	out := make([]*PackageSpec, 0, len(rs.specs))
	for _, spec := range rs.specs {
		out = append(out, spec)
	}
	slices.SortFunc(out, func(a, b *PackageSpec) int {
		return cmp.Compare(a.Key.String(), b.Key.String())
	})
	return out
}
