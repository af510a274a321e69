package domain

import "slices"

// Requirement is a declared top-level requirement.
type Requirement struct {
	Name     string
	Version  string
	Path     string
	Group    string
	Platform string
}

// Bundlefile is a parsed requirement file.
type Bundlefile struct {
	// Root is the directory containing the requirement file.
	Root string

	// Path is the requirement file itself.
	Path string

	// Sources are the declared source URLs, in priority order.
	Sources []string

	// Requirements are the declared packages in declaration order.
	Requirements []Requirement
}

// Collect returns the requirements that belong to one of groups and apply to platform.
// A requirement without a group belongs to the default group; one without a
// platform applies everywhere.
func (b *Bundlefile) Collect(groups []string, platform string) []Requirement {
	if len(groups) == 0 {
		groups = []string{DefaultGroup}
	}
	out := make([]Requirement, 0, len(b.Requirements))
	for _, r := range b.Requirements {
		group := r.Group
		if group == "" {
			group = DefaultGroup
		}
		if !slices.Contains(groups, group) {
			continue
		}
		if r.Platform != "" && platform != "" && r.Platform != platform {
			continue
		}
		out = append(out, r)
	}
	return out
}
