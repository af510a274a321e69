package distmeta

import (
	"path/filepath"
	"strings"

	"go.trai.ch/pbundle/internal/core/domain"
)

var sdistExtensions = []string{".tar.gz", ".tgz", ".tar.bz2", ".tar", ".zip"}

// Inspect derives name, version and kind from an artifact file name such as
// "six-1.16.0-py2.py3-none-any.whl" or "python-dateutil-2.8.2.tar.gz".
func (r *Reader) Inspect(filename string) (domain.Artifact, bool) {
	return InspectFilename(filename)
}

// InspectFilename is Inspect without a Reader.
func InspectFilename(filename string) (domain.Artifact, bool) {
	base := filepath.Base(filename)
	lower := strings.ToLower(base)

	var name, version string
	kind := domain.KindSource
	switch {
	case strings.HasSuffix(lower, ".whl"):
		parts := strings.Split(strings.TrimSuffix(base, base[len(base)-4:]), "-")
		if len(parts) < 5 {
			return domain.Artifact{}, false
		}
		name, version, kind = parts[0], parts[1], domain.KindBuilt
	case strings.HasSuffix(lower, ".egg"):
		parts := strings.Split(strings.TrimSuffix(base, base[len(base)-4:]), "-")
		if len(parts) < 2 {
			return domain.Artifact{}, false
		}
		name, version, kind = parts[0], parts[1], domain.KindBuilt
	default:
		stem, ok := trimSdistExtension(base)
		if !ok {
			return domain.Artifact{}, false
		}
		name, version, ok = splitNameVersion(stem)
		if !ok {
			return domain.Artifact{}, false
		}
	}

	v, err := domain.ParseVersion(version)
	if err != nil {
		return domain.Artifact{}, false
	}
	return domain.Artifact{
		Name:     name,
		Version:  v,
		Kind:     kind,
		Filename: base,
	}, true
}

func trimSdistExtension(base string) (string, bool) {
	lower := strings.ToLower(base)
	for _, ext := range sdistExtensions {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)], true
		}
	}
	return "", false
}

// splitNameVersion splits "name-version" at the first hyphen followed by a digit.
func splitNameVersion(stem string) (string, string, bool) {
	for i := 0; i < len(stem)-1; i++ {
		if stem[i] == '-' && stem[i+1] >= '0' && stem[i+1] <= '9' {
			return stem[:i], stem[i+1:], i > 0
		}
	}
	return "", "", false
}
