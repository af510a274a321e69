package distmeta

import (
	"regexp"
	"strings"

	"go.trai.ch/pbundle/internal/core/domain"
)

var pep508Name = regexp.MustCompile(`^([A-Za-z0-9][-A-Za-z0-9._]*[A-Za-z0-9]|[A-Za-z0-9])(\s*\[.*?\])?`)

// ParseRequirement splits a PEP 508 requirement line into a dependency and its
// environment marker. Extras are dropped; a missing specifier becomes "*".
func ParseRequirement(line string) (domain.Dependency, string) {
	spec, marker, _ := strings.Cut(line, ";")
	spec = strings.TrimSpace(spec)
	marker = strings.TrimSpace(marker)

	var name, constraint string
	if m := pep508Name.FindStringSubmatch(spec); m != nil {
		name = strings.TrimSpace(m[1])
		constraint = strings.TrimSpace(spec[len(m[0]):])
		constraint = strings.TrimSpace(strings.Trim(constraint, "()"))
	} else {
		name = spec
	}
	if idx := strings.Index(name, "["); idx != -1 {
		name = name[:idx]
	}
	if constraint == "" {
		constraint = "*"
	}
	return domain.Dependency{Name: name, Constraint: constraint}, marker
}

// parseRequirements keeps the unconditional requirements of lines. Blank lines
// and comments are ignored; a "[section]" header ends the unconditional block
// of an egg-info requires.txt.
func parseRequirements(lines []string) []domain.Dependency {
	deps := make([]domain.Dependency, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			break
		}
		dep, marker := ParseRequirement(line)
		if marker != "" || dep.Name == "" {
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}
