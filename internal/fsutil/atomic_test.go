package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFileCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "leaf")

	require.NoError(t, AtomicWriteFile(target, []byte("hello"), 0644))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestAtomicWriteFileReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "leaf")

	require.NoError(t, AtomicWriteFile(target, []byte("v1"), 0644))
	require.NoError(t, AtomicWriteFile(target, []byte("v2"), 0644))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestAtomicWriteFileLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "leaf")
	require.NoError(t, AtomicWriteFile(target, []byte("v"), 0644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "leaf", entries[0].Name())
}

func TestSafeRenameMovesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	require.NoError(t, SafeRename(src, dst))

	assert.NoFileExists(t, src)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
