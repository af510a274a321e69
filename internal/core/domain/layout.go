package domain

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// BundleFileName is the name of the requirement file.
	BundleFileName = "cheese.yaml"

	// LockFileName is the name of the lock file written next to the requirement file.
	LockFileName = "cheese.lock"

	// CacheDirName is the name of the cache directory under the user cache dir.
	CacheDirName = "pbundle"

	// BlobsDirName holds artifact bytes addressed by digest.
	BlobsDirName = "blobs"

	// IndexDirName holds per (name, version) manifests.
	IndexDirName = "index"

	// BuildsDirName holds unpacked source artifacts.
	BuildsDirName = "builds"

	// ManifestFileName is the name of a cache manifest.
	ManifestFileName = "artifact.json"

	// DefaultGroup is the group of requirements without an explicit group.
	DefaultGroup = "default"

	// DefaultPlatform is the platform tag used when none is configured.
	DefaultPlatform = "cpython"

	// LockfileVersion is the current lock file format version.
	LockfileVersion = 1

	// CacheEnvVar overrides the cache root.
	CacheEnvVar = "PBUNDLE_CACHE"

	// PlatformEnvVar overrides the platform tag.
	PlatformEnvVar = "PBUNDLE_PLATFORM"

	// HTTPTimeoutEnvVar overrides the registry HTTP timeout (Go duration syntax).
	HTTPTimeoutEnvVar = "PBUNDLE_HTTP_TIMEOUT"

	// BundleFileEnvVar is exported to activated processes.
	BundleFileEnvVar = "PBUNDLE_CHEESEFILE"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// DefaultHTTPTimeout bounds a single registry or download request.
	DefaultHTTPTimeout = 30 * time.Second
)

// DefaultCachePath returns the cache root, honoring PBUNDLE_CACHE.
func DefaultCachePath() string {
	if p := os.Getenv(CacheEnvVar); p != "" {
		return p
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, CacheDirName)
	}
	return filepath.Join(os.TempDir(), CacheDirName)
}

// DefaultPlatformTag returns the platform tag, honoring PBUNDLE_PLATFORM.
func DefaultPlatformTag() string {
	if p := os.Getenv(PlatformEnvVar); p != "" {
		return p
	}
	return DefaultPlatform
}

// HTTPTimeout returns the per-request timeout, honoring PBUNDLE_HTTP_TIMEOUT.
// Unparseable or non-positive values fall back to DefaultHTTPTimeout.
func HTTPTimeout() time.Duration {
	if v := os.Getenv(HTTPTimeoutEnvVar); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return DefaultHTTPTimeout
}
