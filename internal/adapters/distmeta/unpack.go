package distmeta

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/zerr"
)

// Unpack extracts the archive at p into dest. When every member lives under
// one top-level directory, as sdists do, that directory is returned.
func (r *Reader) Unpack(p, dest string) (string, error) {
	if err := os.MkdirAll(dest, domain.DirPerm); err != nil {
		return "", zerr.Wrap(err, domain.ErrInstallFailed.Error())
	}

	var (
		tops map[string]struct{}
		err  error
	)
	if isZipArchive(p) {
		tops, err = unzip(p, dest)
	} else {
		tops, err = untar(p, dest)
	}
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrInstallFailed.Error()), "path", p)
	}

	if len(tops) == 1 {
		for top := range tops {
			dir := filepath.Join(dest, top)
			if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
				return dir, nil
			}
		}
	}
	return dest, nil
}

// target resolves an archive member name below dest, rejecting names that escape it.
func target(dest, name string) (string, string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(name, "./")))
	if clean == "." {
		return "", "", nil
	}
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", "", zerr.With(zerr.New("archive member escapes destination"), "member", name)
	}
	top, _, _ := strings.Cut(filepath.ToSlash(clean), "/")
	return filepath.Join(dest, clean), top, nil
}

func unzip(p, dest string) (map[string]struct{}, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	tops := make(map[string]struct{})
	for _, f := range zr.File {
		out, top, err := target(dest, f.Name)
		if err != nil {
			return nil, err
		}
		if out == "" {
			continue
		}
		tops[top] = struct{}{}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(out, domain.DirPerm); err != nil {
				return nil, err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = writeMember(out, rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return tops, nil
}

func untar(p, dest string) (map[string]struct{}, error) {
	tr, closer, err := openTar(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()

	tops := make(map[string]struct{})
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return tops, nil
		}
		if err != nil {
			return nil, err
		}
		out, top, err := target(dest, hdr.Name)
		if err != nil {
			return nil, err
		}
		if out == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			tops[top] = struct{}{}
			if err := os.MkdirAll(out, domain.DirPerm); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			tops[top] = struct{}{}
			if err := writeMember(out, tr); err != nil {
				return nil, err
			}
		default:
			// Links and special files are not needed to import a package.
		}
	}
}

func writeMember(out string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(out), domain.DirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.FilePerm) //nolint:gosec // out is checked by target
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil { //nolint:gosec // archive sizes are bounded by the source
		_ = f.Close()
		return err
	}
	return f.Close()
}
