package shell

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEnvironment(t *testing.T) {
	sep := string(os.PathListSeparator)
	tests := []struct {
		name      string
		sysEnv    []string
		activated []string
		expected  []string
	}{
		{
			name:     "System Only",
			sysEnv:   []string{"USER=test", "PATH=/bin"},
			expected: []string{"USER=test", "PATH=/bin"},
		},
		{
			name:      "New Variable",
			sysEnv:    []string{"USER=test"},
			activated: []string{"PBUNDLE_CHEESEFILE=/work/bundle.yaml"},
			expected:  []string{"USER=test", "PBUNDLE_CHEESEFILE=/work/bundle.yaml"},
		},
		{
			name:      "Prepend PYTHONPATH",
			sysEnv:    []string{"PYTHONPATH=/site"},
			activated: []string{"PYTHONPATH=/cache/six" + sep + "/cache/attrs"},
			expected:  []string{"PYTHONPATH=/cache/six" + sep + "/cache/attrs" + sep + "/site"},
		},
		{
			name:      "Prepend PATH",
			sysEnv:    []string{"PATH=/bin"},
			activated: []string{"PATH=/venv/bin"},
			expected:  []string{"PATH=/venv/bin" + sep + "/bin"},
		},
		{
			name:      "Override Scalar",
			sysEnv:    []string{"PBUNDLE_CHEESEFILE=/old", "HOME=/home/test"},
			activated: []string{"PBUNDLE_CHEESEFILE=/new"},
			expected:  []string{"PBUNDLE_CHEESEFILE=/new", "HOME=/home/test"},
		},
		{
			name:      "Malformed Entries Ignored",
			sysEnv:    []string{"USER=test", "garbage"},
			activated: []string{"alsogarbage"},
			expected:  []string{"USER=test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveEnvironment(tt.sysEnv, tt.activated))
		})
	}
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	tool := dir + "/tool"
	//nolint:gosec // Test requires executable file
	assert.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o700))

	got, err := lookPath("tool", []string{"PATH=/nonexistent" + string(os.PathListSeparator) + dir})
	assert.NoError(t, err)
	assert.Equal(t, tool, got)

	_, err = lookPath("tool", []string{"HOME=/"})
	assert.Error(t, err)
}
