package registry

import (
	"context"
	"net/url"
	"path"
	"strings"
)

// releaseFile is one downloadable file of a release as listed by the
// per-version JSON API.
type releaseFile struct {
	URL         string            `json:"url"`
	Filename    string            `json:"filename"`
	PackageType string            `json:"packagetype"`
	Digests     map[string]string `json:"digests"`
	Yanked      bool              `json:"yanked"`
}

type releaseResponse struct {
	URLs []releaseFile `json:"urls"`
}

func (f releaseFile) name() string {
	if f.Filename != "" {
		return f.Filename
	}
	return fileName(f.URL)
}

func (f releaseFile) integrity() string {
	if sum, ok := f.Digests["sha256"]; ok && sum != "" {
		return "sha256-" + sum
	}
	return ""
}

// rank orders files by portability: pure wheels first, then source
// distributions, then everything else.
func (f releaseFile) rank() int {
	name := strings.ToLower(f.name())
	switch {
	case strings.HasSuffix(name, ".whl") && isPureWheel(name):
		return 0
	case f.PackageType == "sdist" || strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".zip"):
		return 1
	default:
		return 2
	}
}

// isPureWheel reports whether a wheel filename carries the "none-any" ABI
// and platform tags of a pure Python wheel.
func isPureWheel(filename string) bool {
	fields := strings.Split(strings.TrimSuffix(filename, ".whl"), "-")
	if len(fields) < 5 {
		return false
	}
	n := len(fields)
	return strings.HasPrefix(fields[n-3], "py") && fields[n-2] == "none" && fields[n-1] == "any"
}

// pickFile returns the most portable non-yanked file. Ties keep listing order.
func pickFile(files []releaseFile) (releaseFile, bool) {
	var (
		best  releaseFile
		found bool
	)
	for _, f := range files {
		if f.URL == "" || f.Yanked {
			continue
		}
		if !found || f.rank() < best.rank() {
			best, found = f, true
		}
	}
	return best, found
}

// releaseFiles lists the files of one release. A release the registry does
// not know yields no files.
func (s *Source) releaseFiles(ctx context.Context, name, number string) ([]releaseFile, error) {
	endpoint := strings.TrimSuffix(s.url, "/") + "/pypi/" + url.PathEscape(name) + "/" + url.PathEscape(number) + "/json"

	var resp releaseResponse
	_, err := s.call(ctx, func(ctx context.Context) error {
		return s.client.GetJSON(ctx, endpoint, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.URLs, nil
}

func fileName(rawURL string) string {
	name := path.Base(rawURL)
	if idx := strings.IndexAny(name, "?#"); idx != -1 {
		name = name[:idx]
	}
	return name
}
