package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pbundle/internal/core/domain"
)

func mustSpec(t *testing.T, name, constraint, path string) *domain.PackageSpec {
	t.Helper()
	spec, err := domain.NewPackageSpec(name, constraint, path)
	require.NoError(t, err)
	return spec
}

func TestNewPackageSpec(t *testing.T) {
	spec := mustSpec(t, "Flask", ">=2.0", "")
	assert.Equal(t, domain.CanonicalKey("flask"), spec.Key)
	assert.Equal(t, "Flask", spec.Name)
	assert.Equal(t, ">=2.0", spec.OriginalConstraint)
	assert.False(t, spec.IsExact())
	assert.Equal(t, domain.StateUnbound, spec.State())

	pinned := mustSpec(t, "six", "==1.16.0", "")
	assert.True(t, pinned.IsExact())
	assert.Equal(t, "1.16.0", pinned.ExactVersion.String())
	assert.Equal(t, domain.StateUnbound, pinned.State())

	_, err := domain.NewPackageSpec("broken", ">=", "")
	require.Error(t, err)
}

func TestPackageSpec_State(t *testing.T) {
	spec := mustSpec(t, "a", "*", "")
	assert.Equal(t, "unbound", spec.State().String())

	spec.UseFrom("https://pypi.org", domain.MustParseVersion("1.0"))
	assert.Equal(t, domain.StateSourceBound, spec.State())
	assert.True(t, spec.IsBound())

	spec.UseArtifact(&domain.Artifact{Name: "a", Version: domain.MustParseVersion("1.0"), Kind: domain.KindSource})
	assert.Equal(t, domain.StateDistributionBound, spec.State())

	spec.Artifact.Installed = true
	assert.Equal(t, domain.StateInstalled, spec.State())

	built := mustSpec(t, "b", "*", "")
	built.UseArtifact(&domain.Artifact{Name: "b", Version: domain.MustParseVersion("2.0"), Kind: domain.KindBuilt})
	assert.Equal(t, domain.StateInstalled, built.State())
	assert.Equal(t, "2.0", built.ExactVersion.String())
}

func TestRequirementSet_AddIfAbsent(t *testing.T) {
	set := domain.NewRequirementSet()

	added, err := set.Add(mustSpec(t, "Requests", ">=2.0", ""))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = set.Add(mustSpec(t, "requests", ">=2.0", ""))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, set.Len())

	spec, ok := set.Get("REQUESTS")
	require.True(t, ok)
	assert.Equal(t, "Requests", spec.Name)
	assert.False(t, spec.Constraint.IsMerged())
}

func TestRequirementSet_MergesConstraints(t *testing.T) {
	set := domain.NewRequirementSet()
	_, err := set.Add(mustSpec(t, "b", ">=1.0", ""))
	require.NoError(t, err)

	added, err := set.Add(mustSpec(t, "B", "<2.0", ""))
	require.NoError(t, err)
	assert.False(t, added)

	spec, _ := set.Get("b")
	assert.True(t, spec.Constraint.IsMerged())
	assert.True(t, spec.Constraint.Check(domain.MustParseVersion("1.5")))
	assert.False(t, spec.Constraint.Check(domain.MustParseVersion("2.0")))
}

func TestRequirementSet_Conflicts(t *testing.T) {
	t.Run("bound version violates new constraint", func(t *testing.T) {
		set := domain.NewRequirementSet()
		existing := mustSpec(t, "b", "*", "")
		existing.UseFrom("https://pypi.org", domain.MustParseVersion("1.0"))
		_, err := set.Add(existing)
		require.NoError(t, err)

		_, err = set.Add(mustSpec(t, "b", ">=2.0", ""))
		require.ErrorContains(t, err, domain.ErrResolutionConflict.Error())
	})

	t.Run("bound local version violates new constraint", func(t *testing.T) {
		set := domain.NewRequirementSet()
		local := mustSpec(t, "mylib", "*", "/srv/dist")
		local.UseFrom(domain.FileSourceURL("/srv/dist"), domain.MustParseVersion("0.3"))
		_, err := set.Add(local)
		require.NoError(t, err)

		_, err = set.Add(mustSpec(t, "mylib", ">=1.0", ""))
		require.ErrorIs(t, err, domain.ErrResolutionConflict)
		assert.ErrorContains(t, err, "mylib 0.3 does not satisfy >=1.0")
	})

	t.Run("different exact pins", func(t *testing.T) {
		set := domain.NewRequirementSet()
		_, err := set.Add(mustSpec(t, "b", "==1.0", ""))
		require.NoError(t, err)

		_, err = set.Add(mustSpec(t, "b", "==2.0", ""))
		require.ErrorContains(t, err, domain.ErrResolutionConflict.Error())
	})

	t.Run("different local paths", func(t *testing.T) {
		set := domain.NewRequirementSet()
		_, err := set.Add(mustSpec(t, "b", "*", "/tmp/one"))
		require.NoError(t, err)

		_, err = set.Add(mustSpec(t, "b", "*", "/tmp/two"))
		require.ErrorContains(t, err, domain.ErrResolutionConflict.Error())
	})

	t.Run("compatible bound version", func(t *testing.T) {
		set := domain.NewRequirementSet()
		existing := mustSpec(t, "b", "*", "")
		existing.UseFrom("https://pypi.org", domain.MustParseVersion("1.5"))
		_, err := set.Add(existing)
		require.NoError(t, err)

		_, err = set.Add(mustSpec(t, "b", ">=1.0,<2", ""))
		require.NoError(t, err)
	})
}

func TestRequirementSet_SpecsAreOrdered(t *testing.T) {
	set := domain.NewRequirementSet()
	for _, name := range []string{"zope", "Alpha", "mid"} {
		_, err := set.Add(mustSpec(t, name, "*", ""))
		require.NoError(t, err)
	}

	var keys []string
	for _, spec := range set.Specs() {
		keys = append(keys, spec.Key.String())
	}
	assert.Equal(t, []string{"alpha", "mid", "zope"}, keys)
}

func TestNewRequirementSetFrom(t *testing.T) {
	set, err := domain.NewRequirementSetFrom([]domain.Requirement{
		{Name: "a", Version: ">=1.0"},
		{Name: "A", Version: "<3"},
		{Name: "local", Version: "*", Path: "/srv/dist"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	local, ok := set.Get("local")
	require.True(t, ok)
	assert.True(t, local.IsLocal())

	_, err = domain.NewRequirementSetFrom([]domain.Requirement{{Name: "bad", Version: "~=1"}})
	require.Error(t, err)
}
