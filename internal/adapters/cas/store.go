// Package cas implements the content addressable artifact cache.
package cas

import (
	"bytes"
	"context"
	_ "crypto/sha256" // registers digest.SHA256
	_ "crypto/sha512" // registers digest.SHA512
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/git-pkgs/registries/fetch"
	"github.com/natefinch/atomic"
	"github.com/opencontainers/go-digest"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var _ ports.LocalStore = (*Store)(nil)

// Store implements ports.LocalStore on a cache directory:
//
//	blobs/sha256/<hex>/<filename>        artifact bytes
//	index/<key>/<version>/artifact.json  manifest
//	builds/<key>/<version>/              unpacked source artifacts
type Store struct {
	root    string
	fetcher fetch.FetcherInterface
	reader  ports.MetadataReader
	logger  ports.Logger

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*domain.Artifact
}

// NewStore creates a store rooted at root.
func NewStore(root string, fetcher fetch.FetcherInterface, reader ports.MetadataReader, logger ports.Logger) *Store {
	return &Store{
		root:    filepath.Clean(root),
		fetcher: fetcher,
		reader:  reader,
		logger:  logger,
		cache:   make(map[string]*domain.Artifact),
	}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Get returns the cached artifact for the spec's exact version, or nil on a miss.
func (s *Store) Get(_ context.Context, spec *domain.PackageSpec) (*domain.Artifact, error) {
	if spec.ExactVersion.IsZero() {
		return nil, zerr.With(domain.ErrNotExactVersion, "package", spec.Name)
	}
	id := cacheKey(spec)

	s.mu.RLock()
	cached, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return clone(cached), nil
	}

	path := s.manifestPath(spec)
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the cache root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}
	a, err := m.artifact()
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}

	// A manifest whose files were removed is a miss.
	if _, err := os.Stat(a.Location); err != nil {
		return nil, nil
	}

	s.remember(id, a)
	return clone(a), nil
}

// Prepare obtains the artifact of the spec's exact version from source and
// stores it. Concurrent calls for the same version share one download.
func (s *Store) Prepare(ctx context.Context, spec *domain.PackageSpec, source ports.Source) (*domain.Artifact, error) {
	if spec.ExactVersion.IsZero() {
		return nil, zerr.With(domain.ErrNotExactVersion, "package", spec.Name)
	}

	v, err, _ := s.group.Do(cacheKey(spec), func() (any, error) {
		return s.prepare(ctx, spec, source)
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(*domain.Artifact)), nil
}

func (s *Store) prepare(ctx context.Context, spec *domain.PackageSpec, source ports.Source) (*domain.Artifact, error) {
	a, err := source.GetDistribution(ctx, spec)
	if err != nil {
		return nil, err
	}

	body, err := s.open(ctx, a)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck // Best effort close in defer

	dgst, location, err := s.writeBlob(body, a)
	if err != nil {
		return nil, err
	}

	out := clone(a)
	out.Digest = dgst.String()
	out.Location = location
	out.Installed = false

	if len(out.Dependencies) == 0 {
		deps, err := s.reader.ReadDependencies(location)
		if err != nil {
			s.logger.Warn("Could not read dependencies of " + out.Filename + ": " + err.Error())
		}
		out.Dependencies = deps
	}

	if err := s.writeManifest(spec, out); err != nil {
		return nil, err
	}
	s.remember(cacheKey(spec), out)
	return out, nil
}

// open returns the artifact bytes, downloading remote artifacts.
func (s *Store) open(ctx context.Context, a *domain.Artifact) (io.ReadCloser, error) {
	if a.URL == "" {
		f, err := os.Open(a.Location) //nolint:gosec // location comes from a local source
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", a.Location)
		}
		return f, nil
	}

	art, err := s.fetcher.Fetch(ctx, a.URL)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return nil, zerr.With(errors.Join(domain.ErrPackageNotFound, err), "url", a.URL)
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrDownloadFailed.Error()), "url", a.URL)
	}
	return art.Body, nil
}

// writeBlob stores r under its sha256 digest, verifying the published integrity.
func (s *Store) writeBlob(r io.Reader, a *domain.Artifact) (digest.Digest, string, error) {
	tmpDir := filepath.Join(s.root, "tmp")
	if err := os.MkdirAll(tmpDir, domain.DirPerm); err != nil {
		return "", "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	tmp, err := os.CreateTemp(tmpDir, "blob-*")
	if err != nil {
		return "", "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	canonical := digest.Canonical.Digester()
	writers := []io.Writer{tmp, canonical.Hash()}

	expected, err := parseIntegrity(a.Integrity)
	if err != nil {
		_ = tmp.Close()
		return "", "", zerr.With(err, "package", a.Name)
	}
	var verifier digest.Digester
	if expected != "" && expected.Algorithm() != digest.Canonical {
		verifier = expected.Algorithm().Digester()
		writers = append(writers, verifier.Hash())
	}

	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		_ = tmp.Close()
		return "", "", zerr.With(zerr.Wrap(err, domain.ErrDownloadFailed.Error()), "filename", a.Filename)
	}
	if err := tmp.Close(); err != nil {
		return "", "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	dgst := canonical.Digest()
	if expected != "" {
		actual := dgst
		if verifier != nil {
			actual = verifier.Digest()
		}
		if actual != expected {
			err := zerr.With(domain.ErrIntegrityMismatch, "expected", expected.String())
			return "", "", zerr.With(zerr.With(err, "actual", actual.String()), "filename", a.Filename)
		}
	}

	location := filepath.Join(s.root, domain.BlobsDirName, string(dgst.Algorithm()), dgst.Encoded(), a.Filename)
	if err := os.MkdirAll(filepath.Dir(location), domain.DirPerm); err != nil {
		return "", "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := atomic.ReplaceFile(tmp.Name(), location); err != nil {
		return "", "", zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", location)
	}
	return dgst, location, nil
}

// parseIntegrity converts "<algo>-<hex>" into a digest. Unknown algorithms
// are not verified.
func parseIntegrity(integrity string) (digest.Digest, error) {
	algo, encoded, ok := strings.Cut(integrity, "-")
	if !ok || encoded == "" {
		return "", nil
	}
	alg := digest.Algorithm(algo)
	if !alg.Available() {
		return "", nil
	}
	d := digest.NewDigestFromEncoded(alg, strings.ToLower(encoded))
	if err := d.Validate(); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrIntegrityMismatch.Error()), "integrity", integrity)
	}
	return d, nil
}

// Install unpacks a source artifact into the builds directory. Artifacts that
// need no install step are returned unchanged.
func (s *Store) Install(_ context.Context, spec *domain.PackageSpec, a *domain.Artifact) (*domain.Artifact, error) {
	if !a.NeedsInstall() {
		return a, nil
	}

	parent := filepath.Join(s.root, domain.BuildsDirName, spec.Key.String())
	dest := filepath.Join(parent, a.Version.String())
	stamp := dest + ".checksum"

	// Local artifacts are unpacked again only when their content changed.
	if a.Digest == "" && a.Checksum != "" {
		if project, ok := readStamp(stamp, a.Checksum, dest); ok {
			out := clone(a)
			out.Location = project
			out.Installed = true
			return out, nil
		}
	}

	if err := os.MkdirAll(parent, domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrInstallFailed.Error())
	}

	staging, err := os.MkdirTemp(parent, a.Version.String()+".tmp-*")
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrInstallFailed.Error())
	}
	defer os.RemoveAll(staging) //nolint:errcheck // renamed away on success

	project, err := s.reader.Unpack(a.Location, staging)
	if err != nil {
		return nil, zerr.With(err, "package", spec.String())
	}
	rel, err := filepath.Rel(staging, project)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrInstallFailed.Error())
	}

	if err := os.RemoveAll(dest); err != nil {
		return nil, zerr.Wrap(err, domain.ErrInstallFailed.Error())
	}
	if err := os.Rename(staging, dest); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrInstallFailed.Error()), "path", dest)
	}

	out := clone(a)
	out.Location = filepath.Join(dest, rel)
	out.Installed = true

	// Artifacts used in place from a local directory are not indexed.
	if out.Digest != "" {
		if err := s.writeManifest(spec, out); err != nil {
			return nil, err
		}
		s.remember(cacheKey(spec), out)
		return out, nil
	}

	if a.Checksum != "" {
		if err := atomic.WriteFile(stamp, strings.NewReader(a.Checksum+"\n"+rel+"\n")); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", stamp)
		}
	} else if err := os.Remove(stamp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", stamp)
	}
	return out, nil
}

// readStamp returns the unpacked project recorded for a local artifact when
// the stamp carries checksum and the project still exists.
func readStamp(stamp, checksum, dest string) (string, bool) {
	data, err := os.ReadFile(stamp) //nolint:gosec // path is derived from the cache root
	if err != nil {
		return "", false
	}
	recorded, rel, ok := strings.Cut(strings.TrimSuffix(string(data), "\n"), "\n")
	if !ok || recorded != checksum {
		return "", false
	}
	project := filepath.Join(dest, rel)
	if fi, err := os.Stat(project); err != nil || !fi.IsDir() {
		return "", false
	}
	return project, true
}

func (s *Store) writeManifest(spec *domain.PackageSpec, a *domain.Artifact) error {
	path := s.manifestPath(spec)
	data, err := json.MarshalIndent(toManifest(a), "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	return nil
}

func (s *Store) manifestPath(spec *domain.PackageSpec) string {
	return filepath.Join(s.root, domain.IndexDirName, spec.Key.String(), spec.ExactVersion.String(), domain.ManifestFileName)
}

func (s *Store) remember(id string, a *domain.Artifact) {
	s.mu.Lock()
	s.cache[id] = clone(a)
	s.mu.Unlock()
}

func cacheKey(spec *domain.PackageSpec) string {
	return spec.Key.String() + "@" + spec.ExactVersion.String()
}

func clone(a *domain.Artifact) *domain.Artifact {
	out := *a
	out.Dependencies = append([]domain.Dependency(nil), a.Dependencies...)
	return &out
}
