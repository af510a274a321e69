package cas_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/git-pkgs/registries/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pbundle/internal/adapters/cas"
	"go.trai.ch/pbundle/internal/adapters/distmeta"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fakeFetcher struct {
	files map[string][]byte
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Artifact, error) {
	f.calls++
	data, ok := f.files[url]
	if !ok {
		return nil, fetch.ErrNotFound
	}
	return &fetch.Artifact{Body: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data))}, nil
}

func (f *fakeFetcher) Head(_ context.Context, url string) (int64, string, error) {
	data, ok := f.files[url]
	if !ok {
		return 0, "", fetch.ErrNotFound
	}
	return int64(len(data)), "application/octet-stream", nil
}

func sdist(t *testing.T, top string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     top + "/" + name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func exactSpec(t *testing.T, name, version string) *domain.PackageSpec {
	t.Helper()
	spec, err := domain.NewPackageSpec(name, "=="+version, "")
	require.NoError(t, err)
	spec.UseFrom("https://pypi.org", domain.MustParseVersion(version))
	return spec
}

const artifactURL = "https://files.example/a-1.0.tar.gz"

func newStore(t *testing.T, root string, fetcher fetch.FetcherInterface) *cas.Store {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return cas.NewStore(root, fetcher, distmeta.NewReader(), log)
}

func remoteSource(t *testing.T, integrity string, deps []domain.Dependency) *mocks.MockSource {
	t.Helper()
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().GetDistribution(gomock.Any(), gomock.Any()).Return(&domain.Artifact{
		Name:         "a",
		Version:      domain.MustParseVersion("1.0"),
		Kind:         domain.KindSource,
		Filename:     "a-1.0.tar.gz",
		URL:          artifactURL,
		Integrity:    integrity,
		Dependencies: deps,
	}, nil).AnyTimes()
	return src
}

func TestStore_GetMiss(t *testing.T) {
	store := newStore(t, t.TempDir(), &fakeFetcher{})

	a, err := store.Get(context.Background(), exactSpec(t, "a", "1.0"))
	require.NoError(t, err)
	assert.Nil(t, a)

	unpinned, err := domain.NewPackageSpec("a", ">=1.0", "")
	require.NoError(t, err)
	_, err = store.Get(context.Background(), unpinned)
	require.ErrorContains(t, err, domain.ErrNotExactVersion.Error())
}

func TestStore_PrepareRemote(t *testing.T) {
	root := t.TempDir()
	data := sdist(t, "a-1.0", map[string]string{"PKG-INFO": "Name: a\n", "a/__init__.py": ""})
	sum := sha256Hex(data)
	fetcher := &fakeFetcher{files: map[string][]byte{artifactURL: data}}
	deps := []domain.Dependency{{Name: "B", Constraint: ">=1.0"}}

	store := newStore(t, root, fetcher)
	spec := exactSpec(t, "a", "1.0")

	a, err := store.Prepare(context.Background(), spec, remoteSource(t, "sha256-"+sum, deps))
	require.NoError(t, err)
	assert.Equal(t, "sha256:"+sum, a.Digest)
	assert.Equal(t, filepath.Join(root, "blobs", "sha256", sum, "a-1.0.tar.gz"), a.Location)
	assert.Equal(t, deps, a.Dependencies)
	assert.True(t, a.NeedsInstall())
	assert.FileExists(t, filepath.Join(root, "index", "a", "1.0", domain.ManifestFileName))

	// A fresh store sees the persisted manifest without downloading again.
	reopened := newStore(t, root, fetcher)
	got, err := reopened.Get(context.Background(), spec)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a, got)
	assert.Equal(t, 1, fetcher.calls)
}

func TestStore_PrepareReadsDependenciesFromArtifact(t *testing.T) {
	data := sdist(t, "a-1.0", map[string]string{"PKG-INFO": "Name: a\nRequires-Dist: six>=1.0\n"})
	fetcher := &fakeFetcher{files: map[string][]byte{artifactURL: data}}
	store := newStore(t, t.TempDir(), fetcher)

	a, err := store.Prepare(context.Background(), exactSpec(t, "a", "1.0"), remoteSource(t, "", nil))
	require.NoError(t, err)
	assert.Equal(t, []domain.Dependency{{Name: "six", Constraint: ">=1.0"}}, a.Dependencies)
}

func TestStore_PrepareErrors(t *testing.T) {
	t.Run("integrity mismatch", func(t *testing.T) {
		root := t.TempDir()
		data := sdist(t, "a-1.0", map[string]string{"PKG-INFO": "Name: a\n"})
		store := newStore(t, root, &fakeFetcher{files: map[string][]byte{artifactURL: data}})

		_, err := store.Prepare(context.Background(), exactSpec(t, "a", "1.0"),
			remoteSource(t, "sha256-"+sha256Hex([]byte("other")), nil))
		require.ErrorContains(t, err, domain.ErrIntegrityMismatch.Error())
		assert.NoFileExists(t, filepath.Join(root, "index", "a", "1.0", domain.ManifestFileName))
	})

	t.Run("missing upstream file", func(t *testing.T) {
		store := newStore(t, t.TempDir(), &fakeFetcher{})

		_, err := store.Prepare(context.Background(), exactSpec(t, "a", "1.0"), remoteSource(t, "", nil))
		require.ErrorIs(t, err, domain.ErrPackageNotFound)
	})
}

func TestStore_PrepareLocal(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "mylib-0.3.tar.gz")
	require.NoError(t, os.WriteFile(local, sdist(t, "mylib-0.3", map[string]string{"PKG-INFO": "Name: mylib\n"}), 0o600))

	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().GetDistribution(gomock.Any(), gomock.Any()).Return(&domain.Artifact{
		Name:     "mylib",
		Version:  domain.MustParseVersion("0.3"),
		Kind:     domain.KindSource,
		Filename: "mylib-0.3.tar.gz",
		Location: local,
	}, nil)

	fetcher := &fakeFetcher{}
	store := newStore(t, t.TempDir(), fetcher)
	a, err := store.Prepare(context.Background(), exactSpec(t, "mylib", "0.3"), src)
	require.NoError(t, err)
	assert.NotEqual(t, local, a.Location)
	assert.FileExists(t, a.Location)
	assert.Zero(t, fetcher.calls)
}

func TestStore_Install(t *testing.T) {
	root := t.TempDir()
	data := sdist(t, "a-1.0", map[string]string{"PKG-INFO": "Name: a\n", "a/__init__.py": "X = 1\n"})
	store := newStore(t, root, &fakeFetcher{files: map[string][]byte{artifactURL: data}})
	spec := exactSpec(t, "a", "1.0")

	prepared, err := store.Prepare(context.Background(), spec, remoteSource(t, "", nil))
	require.NoError(t, err)

	installed, err := store.Install(context.Background(), spec, prepared)
	require.NoError(t, err)
	assert.True(t, installed.Installed)
	assert.False(t, installed.NeedsInstall())
	assert.Equal(t, filepath.Join(root, "builds", "a", "1.0", "a-1.0"), installed.ActivationPath())
	assert.FileExists(t, filepath.Join(installed.Location, "a", "__init__.py"))

	// Installing twice is a no-op.
	again, err := store.Install(context.Background(), spec, installed)
	require.NoError(t, err)
	assert.Equal(t, installed, again)

	got, err := newStore(t, root, &fakeFetcher{}).Get(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, installed, got)
}

func TestStore_InstallLocalReusesUnchangedChecksum(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	archive := filepath.Join(dir, "mylib-0.3.tar.gz")
	write := func(body string) {
		data := sdist(t, "mylib-0.3", map[string]string{"PKG-INFO": "Name: mylib\n", "mylib/__init__.py": body})
		require.NoError(t, os.WriteFile(archive, data, 0o600))
	}
	local := func(checksum string) *domain.Artifact {
		return &domain.Artifact{
			Name:     "mylib",
			Version:  domain.MustParseVersion("0.3"),
			Kind:     domain.KindSource,
			Filename: "mylib-0.3.tar.gz",
			Checksum: checksum,
			Location: archive,
		}
	}
	store := newStore(t, root, &fakeFetcher{})
	spec := exactSpec(t, "mylib", "0.3")
	module := filepath.Join(root, "builds", "mylib", "0.3", "mylib-0.3", "mylib", "__init__.py")

	write("V = 1\n")
	first, err := store.Install(context.Background(), spec, local("00000000000000aa"))
	require.NoError(t, err)
	assert.True(t, first.Installed)
	assert.FileExists(t, module)

	// The archive is not read again while its checksum is unchanged.
	require.NoError(t, os.Remove(archive))
	again, err := store.Install(context.Background(), spec, local("00000000000000aa"))
	require.NoError(t, err)
	assert.Equal(t, first.Location, again.Location)

	write("V = 2\n")
	rebuilt, err := store.Install(context.Background(), spec, local("00000000000000bb"))
	require.NoError(t, err)
	assert.Equal(t, first.Location, rebuilt.Location)
	body, err := os.ReadFile(module)
	require.NoError(t, err)
	assert.Equal(t, "V = 2\n", string(body))
}

func TestStore_InstallBuiltIsNoop(t *testing.T) {
	store := newStore(t, t.TempDir(), &fakeFetcher{})
	wheel := &domain.Artifact{Name: "b", Version: domain.MustParseVersion("1.0"), Kind: domain.KindBuilt, Location: "/x.whl"}

	got, err := store.Install(context.Background(), exactSpec(t, "b", "1.0"), wheel)
	require.NoError(t, err)
	assert.Same(t, wheel, got)
}

func TestStore_PrepareOverHTTP(t *testing.T) {
	data := sdist(t, "a-1.0", map[string]string{"PKG-INFO": "Name: a\n"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().GetDistribution(gomock.Any(), gomock.Any()).Return(&domain.Artifact{
		Name:      "a",
		Version:   domain.MustParseVersion("1.0"),
		Kind:      domain.KindSource,
		Filename:  "a-1.0.tar.gz",
		URL:       server.URL + "/a-1.0.tar.gz",
		Integrity: "sha256-" + sha256Hex(data),
	}, nil)

	store := newStore(t, t.TempDir(), fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(fetch.WithMaxRetries(0))))
	a, err := store.Prepare(context.Background(), exactSpec(t, "a", "1.0"), src)
	require.NoError(t, err)
	assert.Equal(t, "sha256:"+sha256Hex(data), a.Digest)
}
