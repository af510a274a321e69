package activation_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/pbundle/internal/adapters/activation"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
)

var _ ports.Activator = (*activation.Environment)(nil)

func TestEnvironment(t *testing.T) {
	sep := string(os.PathListSeparator)
	bundle := &domain.Bundlefile{Root: "/work", Path: "/work/bundle.yaml"}
	artifacts := []*domain.Artifact{
		{Name: "six", Kind: domain.KindBuilt, Location: "/cache/blobs/sha256/ab/six-1.16.0-py2.py3-none-any.whl"},
		{Name: "attrs", Kind: domain.KindSource, Installed: true, Location: "/cache/builds/attrs/23.1.0/attrs-23.1.0"},
		{Name: "dup", Location: "/cache/builds/attrs/23.1.0/attrs-23.1.0"},
		{Name: "empty"},
	}

	env := activation.New().Environment(bundle, artifacts)

	assert.Equal(t, []string{
		"PYTHONPATH=/cache/blobs/sha256/ab/six-1.16.0-py2.py3-none-any.whl" + sep + "/cache/builds/attrs/23.1.0/attrs-23.1.0",
		"PBUNDLE_CHEESEFILE=/work/bundle.yaml",
	}, env)
}

func TestEnvironment_Empty(t *testing.T) {
	env := activation.New().Environment(nil, nil)
	assert.Empty(t, env)
}
