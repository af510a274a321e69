package distmeta_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pbundle/internal/adapters/distmeta"
	"go.trai.ch/pbundle/internal/core/domain"
)

func TestReader_Unpack_SingleTopLevel(t *testing.T) {
	path := tempPath(t, "a-1.0.tar.gz")
	writeTarGz(t, path,
		member{"a-1.0/PKG-INFO", "Name: a\n"},
		member{"a-1.0/a/__init__.py", "VALUE = 1\n"},
	)
	dest := t.TempDir()

	dir, err := distmeta.NewReader().Unpack(path, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "a-1.0"), dir)

	data, err := os.ReadFile(filepath.Join(dir, "a", "__init__.py"))
	require.NoError(t, err)
	assert.Equal(t, "VALUE = 1\n", string(data))
}

func TestReader_Unpack_FlatZip(t *testing.T) {
	path := tempPath(t, "a-1.0.zip")
	writeZip(t, path,
		member{"a/__init__.py", ""},
		member{"setup.py", ""},
	)
	dest := t.TempDir()

	dir, err := distmeta.NewReader().Unpack(path, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, dir)
	assert.FileExists(t, filepath.Join(dest, "setup.py"))
}

func TestReader_Unpack_RejectsTraversal(t *testing.T) {
	path := tempPath(t, "evil-1.0.tar.gz")
	writeTarGz(t, path, member{"../escape.txt", "x"})
	dest := t.TempDir()

	_, err := distmeta.NewReader().Unpack(path, dest)
	require.ErrorContains(t, err, domain.ErrInstallFailed.Error())
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape.txt"))
}
