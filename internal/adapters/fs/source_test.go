package fs_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pbundle/internal/adapters/distmeta"
	"go.trai.ch/pbundle/internal/adapters/fs"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newSource(t *testing.T, root string) (*fs.Source, *mocks.MockMetadataReader) {
	t.Helper()
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockMetadataReader(ctrl)
	reader.EXPECT().Inspect(gomock.Any()).DoAndReturn(distmeta.InspectFilename).AnyTimes()
	return fs.NewSource(root, fs.NewWalker(), fs.NewHasher(), reader), reader
}

func localSpec(t *testing.T, name, root string) *domain.PackageSpec {
	t.Helper()
	spec, err := domain.NewPackageSpec(name, "*", root)
	require.NoError(t, err)
	return spec
}

func TestSource_AvailableVersions(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "my_lib-0.3-py3-none-any.whl"), "wheel")
	touch(t, filepath.Join(root, "my-lib-0.3.tar.gz"), "sdist")
	touch(t, filepath.Join(root, "my-lib-0.1.tar.gz"), "old")
	touch(t, filepath.Join(root, "other-1.0.tar.gz"), "")

	src, _ := newSource(t, root)
	assert.Equal(t, domain.FileSourceURL(root), src.URL())

	versions, err := src.AvailableVersions(context.Background(), localSpec(t, "My.Lib", root))
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "0.1", versions[0].String())
	assert.Equal(t, "0.3", versions[1].String())

	name, err := src.CanonicalName(context.Background(), localSpec(t, "My.Lib", root))
	require.NoError(t, err)
	assert.Equal(t, "My.Lib", name)
}

func TestSource_NoArtifacts(t *testing.T) {
	src, _ := newSource(t, filepath.Join(t.TempDir(), "missing"))

	versions, err := src.AvailableVersions(context.Background(), localSpec(t, "mylib", ""))
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestSource_GetDistribution_PrefersBuilt(t *testing.T) {
	root := t.TempDir()
	wheel := filepath.Join(root, "my_lib-0.3-py3-none-any.whl")
	touch(t, wheel, "wheel")
	touch(t, filepath.Join(root, "my-lib-0.3.tar.gz"), "sdist")

	src, reader := newSource(t, root)
	deps := []domain.Dependency{{Name: "six", Constraint: "*"}}
	reader.EXPECT().ReadDependencies(wheel).Return(deps, nil)

	spec := localSpec(t, "my-lib", root)
	spec.UseFrom(src.URL(), domain.MustParseVersion("0.3"))

	artifact, err := src.GetDistribution(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, wheel, artifact.Location)
	assert.Equal(t, domain.KindBuilt, artifact.Kind)
	assert.Equal(t, deps, artifact.Dependencies)
	assert.Len(t, artifact.Checksum, 16)
	assert.Empty(t, artifact.URL)
}

func TestSource_GetDistribution_Errors(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "mylib-0.3.tar.gz"), "")
	src, _ := newSource(t, root)

	_, err := src.GetDistribution(context.Background(), localSpec(t, "mylib", root))
	require.ErrorContains(t, err, domain.ErrNotExactVersion.Error())

	spec := localSpec(t, "mylib", root)
	spec.UseFrom(src.URL(), domain.MustParseVersion("9.9"))
	_, err = src.GetDistribution(context.Background(), spec)
	require.ErrorContains(t, err, domain.ErrPackageNotFound.Error())
}
