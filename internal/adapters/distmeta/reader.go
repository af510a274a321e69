// Package distmeta reads Python distribution files: their names, their
// declared requirements and their archived contents.
package distmeta

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"cmp"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"maps"
	"net/mail"
	"os"
	"path"
	"slices"
	"strings"

	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/zerr"
)

// maxMetadataSize bounds how much of a single metadata member is read.
const maxMetadataSize = 4 << 20

// Reader implements ports.MetadataReader.
type Reader struct{}

// NewReader creates a metadata reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadDependencies returns the unconditional requirements declared by the
// artifact at p. Requirements guarded by an environment marker are skipped.
func (r *Reader) ReadDependencies(p string) ([]domain.Dependency, error) {
	members, err := readMembers(p, isMetadataMember)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrMetadataReadFailed.Error()), "path", p)
	}

	names := slices.SortedFunc(maps.Keys(members), func(a, b string) int {
		return cmp.Or(cmp.Compare(strings.Count(a, "/"), strings.Count(b, "/")), cmp.Compare(a, b))
	})

	// METADATA wins over PKG-INFO, which wins over requires.txt. Shallower
	// members win among equals.
	for _, suffix := range []string{".dist-info/METADATA", "PKG-INFO"} {
		for _, name := range names {
			if !strings.HasSuffix(name, suffix) {
				continue
			}
			deps, err := parseMetadata(members[name])
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, domain.ErrMetadataReadFailed.Error()), "member", name)
			}
			if len(deps) > 0 {
				return deps, nil
			}
		}
	}
	for _, name := range names {
		if strings.HasSuffix(name, "requires.txt") {
			return parseRequirements(splitLines(members[name])), nil
		}
	}
	return nil, nil
}

// isMetadataMember matches the metadata files of wheels, eggs and sdists.
// Only the first two path levels are considered so that vendored packages
// do not leak their requirements.
func isMetadataMember(name string) bool {
	name = strings.TrimPrefix(name, "./")
	depth := strings.Count(name, "/")
	base := path.Base(name)
	dir := path.Dir(name)
	switch {
	case base == "METADATA" && depth == 1 && strings.HasSuffix(dir, ".dist-info"):
		return true
	case base == "PKG-INFO" && depth <= 1:
		return true
	case base == "PKG-INFO" && depth == 2 && (strings.HasSuffix(dir, ".egg-info") || strings.HasSuffix(dir, "EGG-INFO")):
		return true
	case base == "requires.txt" && depth <= 2 && (strings.HasSuffix(dir, ".egg-info") || strings.HasSuffix(dir, "EGG-INFO")):
		return true
	}
	return false
}

func parseMetadata(data []byte) ([]domain.Dependency, error) {
	// Some metadata files have no body separator; mail.ReadMessage needs one.
	if !bytes.Contains(data, []byte("\n\n")) {
		data = append(data, '\n', '\n')
	}
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	lines := msg.Header["Requires-Dist"]
	if len(lines) == 0 {
		lines = msg.Header["Requires"]
	}
	return parseRequirements(lines), nil
}

func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// readMembers returns the contents of the archive members of p accepted by keep.
func readMembers(p string, keep func(string) bool) (map[string][]byte, error) {
	members := make(map[string][]byte)

	if isZipArchive(p) {
		zr, err := zip.OpenReader(p)
		if err != nil {
			return nil, err
		}
		defer func() { _ = zr.Close() }()

		for _, f := range zr.File {
			if f.FileInfo().IsDir() || !keep(f.Name) {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(io.LimitReader(rc, maxMetadataSize))
			_ = rc.Close()
			if err != nil {
				return nil, err
			}
			members[f.Name] = data
		}
		return members, nil
	}

	tr, closer, err := openTar(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg || !keep(hdr.Name) {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxMetadataSize))
		if err != nil {
			return nil, err
		}
		members[hdr.Name] = data
	}
	return members, nil
}

func isZipArchive(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasSuffix(lower, ".whl") ||
		strings.HasSuffix(lower, ".egg") ||
		strings.HasSuffix(lower, ".zip")
}

// openTar opens a plain, gzip or bzip2 compressed tarball.
func openTar(p string) (*tar.Reader, io.Closer, error) {
	f, err := os.Open(p) //nolint:gosec // artifact paths come from sources and the store
	if err != nil {
		return nil, nil, err
	}

	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return tar.NewReader(gz), f, nil
	case strings.HasSuffix(lower, ".tar.bz2"):
		return tar.NewReader(bzip2.NewReader(f)), f, nil
	case strings.HasSuffix(lower, ".tar"):
		return tar.NewReader(f), f, nil
	}
	_ = f.Close()
	return nil, nil, zerr.With(domain.ErrUnsupportedArtifact, "path", p)
}
