package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirCreatesNested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir, 0755))
	assert.True(t, DirExists(dir))
}

func TestEnsureDirIdempotentOnExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureDir(dir, 0755))
	require.NoError(t, EnsureDir(dir, 0755))
}

func TestEnsureDirRejectsFileInThePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notadir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.Error(t, EnsureDir(file, 0755))
}

func TestFileExistsAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.True(t, FileExists(file))
	assert.False(t, DirExists(file))
	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0644))

	assert.Equal(t, int64(5), FileSize(file))
	assert.Equal(t, int64(0), FileSize(filepath.Join(dir, "missing")))
	assert.Equal(t, int64(0), FileSize(dir))
}

func TestRemoveAllIgnoresMissingPath(t *testing.T) {
	assert.NoError(t, RemoveAll(filepath.Join(t.TempDir(), "missing")))
}

func TestRemoveAllDeletesTree(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, EnsureDir(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "f"), []byte("x"), 0644))

	require.NoError(t, RemoveAll(dir))
	assert.False(t, DirExists(dir))
}

func TestListFilesAndListDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("2"), 0644))
	require.NoError(t, EnsureDir(filepath.Join(dir, "sub"), 0755))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	dirs, err := ListDirs(dir)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "sub", filepath.Base(dirs[0]))
}

func TestIsHiddenAndFilterHidden(t *testing.T) {
	assert.True(t, IsHidden("/tmp/.DS_Store"))
	assert.True(t, IsHidden(".git"))
	assert.False(t, IsHidden("/tmp/visible"))

	in := []string{"/a/visible", "/a/.hidden", "/a/also-visible"}
	assert.Equal(t, []string{"/a/visible", "/a/also-visible"}, FilterHidden(in))
}

func TestCleanPathAndAbsPath(t *testing.T) {
	assert.Equal(t, filepath.Clean("a/./b/../c"), CleanPath("a/./b/../c"))

	abs, err := AbsPath(".")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
}
