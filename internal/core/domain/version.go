package domain

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

var (
	pep440Suffix = regexp.MustCompile(
		`^(\d+(?:\.\d+)*)[._-]?((?:a|b|c|rc|alpha|beta|pre|preview|dev|post)[._-]?\d*)$`,
	)
	clausePattern = regexp.MustCompile(`^(===|==|~=|!=|<=|>=|<|>|=)?\s*(.*)$`)
	releasePrefix = regexp.MustCompile(`^\d+(?:\.\d+)*`)
)

// Version is a parsed package version that remembers its original spelling.
type Version struct {
	raw string
	sv  *semver.Version
}

// ParseVersion parses a PEP 440 style version by normalizing it to semver.
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	sv, err := semver.NewVersion(normalizeVersion(raw))
	if err != nil {
		return Version{}, zerr.With(zerr.Wrap(err, ErrInvalidVersion.Error()), "version", raw)
	}
	return Version{raw: raw, sv: sv}, nil
}

// MustParseVersion is like ParseVersion but panics on malformed input.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as it was spelled by its source.
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether the version is unset.
func (v Version) IsZero() bool {
	return v.sv == nil
}

// Compare returns -1, 0 or 1 comparing v to o by precedence.
func (v Version) Compare(o Version) int {
	switch {
	case v.sv == nil && o.sv == nil:
		return 0
	case v.sv == nil:
		return -1
	case o.sv == nil:
		return 1
	}
	return v.sv.Compare(o.sv)
}

// Equal reports whether both versions have the same precedence.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// normalizeVersion rewrites PEP 440 pre, dev and post suffixes into semver form.
// Post releases become build metadata so they never sort below their release.
func normalizeVersion(s string) string {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v")
	m := pep440Suffix.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	suffix := strings.NewReplacer(".", "", "_", "", "-", "").Replace(m[2])
	if strings.HasPrefix(suffix, "post") {
		return m[1] + "+" + suffix
	}
	return m[1] + "-" + suffix
}

// Constraint is a conjunction of version requirements. A requirement that was
// declared more than once carries one part per declaration.
type Constraint struct {
	parts []constraintPart
}

type constraintPart struct {
	raw   string
	exact string
	c     *semver.Constraints
}

// AnyConstraint returns a constraint satisfied by every version.
func AnyConstraint() Constraint {
	return Constraint{}
}

// ParseConstraint parses a PEP 440 style specifier such as ">=1.0,<2" or "==1.2".
// An empty string or "*" matches any version.
func ParseConstraint(s string) (Constraint, error) {
	raw := strings.TrimSpace(s)
	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")"))
	if text == "" || text == "*" {
		return AnyConstraint(), nil
	}

	clauses := strings.Split(text, ",")
	translated := make([]string, 0, len(clauses))
	exact := ""
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		t, pin, err := translateClause(clause)
		if err != nil {
			return Constraint{}, zerr.With(err, "constraint", raw)
		}
		translated = append(translated, t)
		if len(clauses) == 1 {
			exact = pin
		}
	}
	if len(translated) == 0 {
		return AnyConstraint(), nil
	}

	c, err := semver.NewConstraint(strings.Join(translated, ", "))
	if err != nil {
		return Constraint{}, zerr.With(zerr.Wrap(err, ErrInvalidConstraint.Error()), "constraint", raw)
	}
	return Constraint{parts: []constraintPart{{raw: raw, exact: exact, c: c}}}, nil
}

// MustParseConstraint is like ParseConstraint but panics on malformed input.
func MustParseConstraint(s string) Constraint {
	c, err := ParseConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ExactConstraint returns the constraint pinning exactly v.
func ExactConstraint(v Version) Constraint {
	c, err := ParseConstraint("==" + v.String())
	if err != nil {
		return AnyConstraint()
	}
	return c
}

// translateClause converts one PEP 440 clause to semver syntax. The second
// return value holds the pinned version for "==" clauses without wildcards.
func translateClause(clause string) (string, string, error) {
	m := clausePattern.FindStringSubmatch(clause)
	op, ver := m[1], strings.TrimSpace(m[2])
	if ver == "" {
		return "", "", zerr.With(ErrInvalidConstraint, "clause", clause)
	}

	switch op {
	case "", "=", "==", "===":
		if strings.HasSuffix(ver, ".*") {
			return "=" + strings.TrimSuffix(ver, ".*") + ".x", "", nil
		}
		return "=" + normalizeVersion(ver), ver, nil
	case "!=":
		if strings.HasSuffix(ver, ".*") {
			return "!=" + strings.TrimSuffix(ver, ".*") + ".x", "", nil
		}
		return "!=" + normalizeVersion(ver), "", nil
	case "~=":
		upper, err := compatibleUpperBound(ver)
		if err != nil {
			return "", "", zerr.With(err, "clause", clause)
		}
		return ">=" + normalizeVersion(ver) + ", <" + upper, "", nil
	default:
		return op + normalizeVersion(ver), "", nil
	}
}

// compatibleUpperBound returns the exclusive upper bound of a "~=" clause:
// the release prefix without its last segment, with the new last segment bumped.
func compatibleUpperBound(ver string) (string, error) {
	segments := strings.Split(releasePrefix.FindString(ver), ".")
	if len(segments) < 2 {
		return "", ErrInvalidConstraint
	}
	segments = segments[:len(segments)-1]
	last, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil {
		return "", zerr.Wrap(err, ErrInvalidConstraint.Error())
	}
	segments[len(segments)-1] = strconv.Itoa(last + 1)
	return strings.Join(segments, "."), nil
}

// Check reports whether v satisfies every part of the constraint.
func (c Constraint) Check(v Version) bool {
	if v.sv == nil {
		return false
	}
	for _, p := range c.parts {
		if !p.c.Check(v.sv) {
			return false
		}
	}
	return true
}

// Intersect returns the conjunction of c and o.
func (c Constraint) Intersect(o Constraint) Constraint {
	merged := make([]constraintPart, 0, len(c.parts)+len(o.parts))
	merged = append(merged, c.parts...)
	for _, p := range o.parts {
		dup := false
		for _, q := range merged {
			if q.raw == p.raw {
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, p)
		}
	}
	return Constraint{parts: merged}
}

// IsAny reports whether the constraint accepts every version.
func (c Constraint) IsAny() bool {
	return len(c.parts) == 0
}

// IsMerged reports whether the constraint combines more than one declaration.
func (c Constraint) IsMerged() bool {
	return len(c.parts) > 1
}

// Exact returns the pinned version text of a single "==" declaration.
func (c Constraint) Exact() (string, bool) {
	if len(c.parts) != 1 || c.parts[0].exact == "" {
		return "", false
	}
	return c.parts[0].exact, true
}

// String renders the constraint with parts joined by ", ".
func (c Constraint) String() string {
	if len(c.parts) == 0 {
		return "*"
	}
	raws := make([]string, len(c.parts))
	for i, p := range c.parts {
		raws[i] = p.raw
	}
	return strings.Join(raws, ", ")
}
