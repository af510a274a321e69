package domain

import (
	"cmp"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Lockfile is a reproducible snapshot of a resolution: the declared
// requirements it was computed from and every resolved package per source.
type Lockfile struct {
	// Version is the lockfile format version.
	Version int

	// Declared are the top-level requirements, in declaration order.
	Declared []Requirement

	// Sources group the resolved packages by the source they came from.
	Sources []LockedSource
}

// LockedSource is one source URL and the packages resolved from it.
type LockedSource struct {
	URL      string
	Packages []LockedPackage
}

// LockedPackage is a resolved package with its recorded transitive requirements.
type LockedPackage struct {
	Name     string
	Version  string
	Requires []Dependency
}

// NewLockfile snapshots a resolved set. Sources appear in declaration order,
// followed by filesystem sources sorted by URL; packages are sorted by key.
func NewLockfile(set *RequirementSet, declared []Requirement, sources []string) *Lockfile {
	lock := &Lockfile{
		Version:  LockfileVersion,
		Declared: make([]Requirement, 0, len(declared)),
	}
	for _, r := range declared {
		lock.Declared = append(lock.Declared, Requirement{Name: r.Name, Version: r.Version, Path: r.Path})
	}

	bySource := make(map[string][]LockedPackage)
	for _, spec := range set.Specs() {
		if spec.Source == "" {
			continue
		}
		bySource[spec.Source] = append(bySource[spec.Source], LockedPackage{
			Name:     spec.Name,
			Version:  spec.ExactVersion.String(),
			Requires: slices.Clone(spec.Requirements),
		})
	}

	order := make([]string, 0, len(bySource))
	for _, url := range sources {
		if _, ok := bySource[url]; ok && !slices.Contains(order, url) {
			order = append(order, url)
		}
	}
	extra := make([]string, 0)
	for url := range bySource {
		if !slices.Contains(order, url) {
			extra = append(extra, url)
		}
	}
	slices.Sort(extra)
	order = append(order, extra...)

	for _, url := range order {
		lock.Sources = append(lock.Sources, LockedSource{URL: url, Packages: bySource[url]})
	}
	return lock
}

// MatchesRequirementSet reports whether declared is, as a set, the same
// collection of (name, constraint, path) the lock was computed from.
func (l *Lockfile) MatchesRequirementSet(declared []Requirement) bool {
	if l == nil {
		return false
	}
	return slices.Equal(requirementKeys(l.Declared), requirementKeys(declared))
}

func requirementKeys(reqs []Requirement) []string {
	keys := make([]string, 0, len(reqs))
	for _, r := range reqs {
		path := ""
		if r.Path != "" {
			path = filepath.Clean(r.Path)
		}
		keys = append(keys, strings.Join([]string{
			CanonicalKey(r.Name).String(),
			strings.TrimSpace(r.Version),
			path,
		}, "\x00"))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// ToRequirementSet hydrates the recorded packages into specs pinned to their
// exact versions. Packages recorded under a filesystem source are pinned to
// that directory and keep their declared constraint, so the version found
// there when resolving again may differ from the recorded one.
func (l *Lockfile) ToRequirementSet() (*RequirementSet, error) {
	set := NewRequirementSet()
	for _, src := range l.Sources {
		path := ""
		if IsFileSourceURL(src.URL) {
			path = FileSourcePath(src.URL)
		}
		for _, pkg := range src.Packages {
			spec, err := l.lockedSpec(pkg, path)
			if err != nil {
				err = zerr.With(err, "package", pkg.Name)
				return nil, zerr.With(err, "source", src.URL)
			}
			spec.LockedSource = src.URL
			spec.Requirements = slices.Clone(pkg.Requires)
			if _, err := set.Add(spec); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

func (l *Lockfile) lockedSpec(pkg LockedPackage, path string) (*PackageSpec, error) {
	if path == "" {
		return NewPackageSpec(pkg.Name, "=="+pkg.Version, "")
	}

	constraint := "*"
	key := CanonicalKey(pkg.Name)
	for _, r := range l.Declared {
		if r.Path != "" && CanonicalKey(r.Name) == key {
			constraint = r.Version
			break
		}
	}
	spec, err := NewPackageSpec(pkg.Name, constraint, path)
	if err != nil {
		return nil, err
	}
	v, err := ParseVersion(pkg.Version)
	if err != nil {
		return nil, err
	}
	spec.ExactVersion = v
	return spec, nil
}

// Package returns the locked package with the given name and the URL of the
// source it was recorded under.
func (l *Lockfile) Package(name string) (LockedPackage, string, bool) {
	key := CanonicalKey(name)
	for _, src := range l.Sources {
		for _, pkg := range src.Packages {
			if CanonicalKey(pkg.Name) == key {
				return pkg, src.URL, true
			}
		}
	}
	return LockedPackage{}, "", false
}

// SortPackages orders packages within each source by canonical key.
func (l *Lockfile) SortPackages() {
	for i := range l.Sources {
		slices.SortFunc(l.Sources[i].Packages, func(a, b LockedPackage) int {
			return cmp.Compare(CanonicalKey(a.Name).String(), CanonicalKey(b.Name).String())
		})
	}
}
