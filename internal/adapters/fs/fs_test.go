package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pbundle/internal/adapters/fs"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWalker_Files(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, filepath.Join(tmpDir, ".git", "config"), "git config")
	touch(t, filepath.Join(tmpDir, "nested", "b-1.0.tar.gz"), "")
	touch(t, filepath.Join(tmpDir, ".hidden-1.0.tar.gz"), "")
	touch(t, filepath.Join(tmpDir, "b-1.0.tar.gz"), "")
	touch(t, filepath.Join(tmpDir, "a-1.0.tar.gz"), "")
	touch(t, filepath.Join(tmpDir, "notes.txt"), "")

	files, err := fs.NewWalker().Files(tmpDir, []string{"*.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "a-1.0.tar.gz"),
		filepath.Join(tmpDir, "b-1.0.tar.gz"),
	}, files)
}

func TestWalker_MissingDir(t *testing.T) {
	files, err := fs.NewWalker().Files(filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestHasher_Checksum(t *testing.T) {
	tmpDir := t.TempDir()
	first := filepath.Join(tmpDir, "first")
	second := filepath.Join(tmpDir, "second")
	touch(t, first, "content")
	touch(t, second, "content")

	hasher := fs.NewHasher()
	a, err := hasher.Checksum(first)
	require.NoError(t, err)
	b, err := hasher.Checksum(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	touch(t, second, "changed")
	c, err := hasher.Checksum(second)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = hasher.Checksum(filepath.Join(tmpDir, "missing"))
	require.Error(t, err)
}
