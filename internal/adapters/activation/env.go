// Package activation builds the environment that makes a resolved bundle importable.
package activation

import (
	"os"
	"strings"

	"go.trai.ch/pbundle/internal/core/domain"
)

const (
	// PythonPathVar is the import search path variable.
	PythonPathVar = "PYTHONPATH"
	// RequirementFileVar points activated processes at the requirement file.
	RequirementFileVar = "PBUNDLE_CHEESEFILE"
)

// Environment implements ports.Activator.
type Environment struct{}

// New creates a new Environment.
func New() *Environment {
	return &Environment{}
}

// Environment returns the PYTHONPATH of the artifacts' activation paths, in
// resolution order, and the requirement file location.
func (e *Environment) Environment(bundle *domain.Bundlefile, artifacts []*domain.Artifact) []string {
	seen := make(map[string]bool, len(artifacts))
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		p := a.ActivationPath()
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}

	env := make([]string, 0, 2)
	if len(paths) > 0 {
		env = append(env, PythonPathVar+"="+strings.Join(paths, string(os.PathListSeparator)))
	}
	if bundle != nil && bundle.Path != "" {
		env = append(env, RequirementFileVar+"="+bundle.Path)
	}
	return env
}
