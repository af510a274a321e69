package domain

import "go.trai.ch/zerr"

var (
	// ErrPackageNotFound is returned when a local path holds no artifact for a requirement.
	ErrPackageNotFound = zerr.New("package not found")

	// ErrUnresolvableRequirement is returned when no declared source offers a version
	// satisfying a requirement.
	ErrUnresolvableRequirement = zerr.New("no source satisfies requirement")

	// ErrAmbiguousLocalVersion is returned when a local path holds more than one version of a package.
	ErrAmbiguousLocalVersion = zerr.New("ambiguous local version")

	// ErrSourceUnavailable is returned when a source cannot be reached.
	ErrSourceUnavailable = zerr.New("source unavailable")

	// ErrResolutionConflict is returned when two requirements for the same package cannot both hold.
	ErrResolutionConflict = zerr.New("resolution conflict")

	// ErrResolutionDivergence is returned when the resolution loop exceeds its pass bound.
	ErrResolutionDivergence = zerr.New("resolution did not converge")

	// ErrNotExactVersion is returned when an operation needs a package spec with an exact version.
	ErrNotExactVersion = zerr.New("package spec has no exact version")

	// ErrInvalidConstraint is returned when a version constraint cannot be parsed.
	ErrInvalidConstraint = zerr.New("invalid version constraint")

	// ErrInvalidVersion is returned when a version string cannot be parsed.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrConfigNotFound is returned when no requirement file is found in the directory tree.
	ErrConfigNotFound = zerr.New("could not find requirement file")

	// ErrConfigReadFailed is returned when the requirement file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read requirement file")

	// ErrConfigParseFailed is returned when the requirement file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse requirement file")

	// ErrConfigInvalid is returned when the requirement file fails validation.
	ErrConfigInvalid = zerr.New("invalid requirement file")

	// ErrLockReadFailed is returned when the lock file cannot be read or parsed.
	ErrLockReadFailed = zerr.New("failed to read lock file")

	// ErrLockWriteFailed is returned when the lock file cannot be written.
	ErrLockWriteFailed = zerr.New("failed to write lock file")

	// ErrStoreReadFailed is returned when a cache manifest cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache entry")

	// ErrStoreWriteFailed is returned when a cache entry cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache entry")

	// ErrDownloadFailed is returned when an artifact cannot be downloaded.
	ErrDownloadFailed = zerr.New("failed to download artifact")

	// ErrIntegrityMismatch is returned when downloaded bytes do not match the published digest.
	ErrIntegrityMismatch = zerr.New("artifact integrity mismatch")

	// ErrInstallFailed is returned when a source artifact cannot be installed.
	ErrInstallFailed = zerr.New("failed to install artifact")

	// ErrMetadataReadFailed is returned when artifact metadata cannot be read.
	ErrMetadataReadFailed = zerr.New("failed to read artifact metadata")

	// ErrUnsupportedArtifact is returned when an artifact format is not recognized.
	ErrUnsupportedArtifact = zerr.New("unsupported artifact format")

	// ErrPackageNotResolved is returned when a requested package is not part of the resolved bundle.
	ErrPackageNotResolved = zerr.New("package is not part of the bundle")

	// ErrLockStale is returned when the lock file was not computed from the declared requirements.
	ErrLockStale = zerr.New("lock file does not match the requirement file, run `pbundle install`")

	// ErrNoCommand is returned when exec is called without a command.
	ErrNoCommand = zerr.New("no command specified")

	// ErrCommandFailed is returned when an executed command fails.
	ErrCommandFailed = zerr.New("command failed")
)
