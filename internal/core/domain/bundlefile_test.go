package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/pbundle/internal/core/domain"
)

func TestBundlefile_Collect(t *testing.T) {
	bundle := &domain.Bundlefile{
		Requirements: []domain.Requirement{
			{Name: "requests"},
			{Name: "pytest", Group: "dev"},
			{Name: "pypy-only", Platform: "pypy"},
			{Name: "cpython-only", Platform: "cpython"},
		},
	}

	names := func(reqs []domain.Requirement) []string {
		out := make([]string, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, r.Name)
		}
		return out
	}

	assert.Equal(t, []string{"requests", "cpython-only"}, names(bundle.Collect(nil, "cpython")))
	assert.Equal(t, []string{"requests", "pytest", "cpython-only"},
		names(bundle.Collect([]string{"default", "dev"}, "cpython")))
	assert.Equal(t, []string{"pytest"}, names(bundle.Collect([]string{"dev"}, "cpython")))
	assert.Equal(t, []string{"requests", "pypy-only", "cpython-only"}, names(bundle.Collect(nil, "")))
}
