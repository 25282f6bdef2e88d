package posixfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/borgbackup/borgstore/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsNonEmptyRoot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray"), []byte("x"), 0644))

	b := New(dir)
	err := b.Create(ctx, nil)
	assert.ErrorIs(t, err, backend.ErrBackendAlreadyExists)
}

func TestCreateAllowsEmptyExistingRoot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b := New(dir)
	require.NoError(t, b.Create(ctx, nil))
}

func TestOpenRequiresExistingRoot(t *testing.T) {
	ctx := context.Background()
	b := New(filepath.Join(t.TempDir(), "missing"))
	err := b.Open(ctx)
	assert.ErrorIs(t, err, backend.ErrBackendDoesNotExist)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)
	require.NoError(t, b.Create(ctx, nil))

	require.NoError(t, b.Store(ctx, "data/aa/bb/cc/aabbccdd", []byte("hello")))

	st, err := os.Stat(filepath.Join(dir, "data", "aa", "bb", "cc", "aabbccdd"))
	require.NoError(t, err)
	assert.False(t, st.IsDir())

	got, err := b.Load(ctx, "data/aa/bb/cc/aabbccdd", 0, backend.ReadToEOF)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestLoadPartialBeyondEOF(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)
	require.NoError(t, b.Create(ctx, nil))
	require.NoError(t, b.Store(ctx, "k", []byte("01234")))

	got, err := b.Load(ctx, "k", 3, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("34"), got)
}

func TestMoveRejectsExistingDest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)
	require.NoError(t, b.Create(ctx, nil))
	require.NoError(t, b.Store(ctx, "a", []byte("1")))
	require.NoError(t, b.Store(ctx, "b", []byte("2")))

	err := b.Move(ctx, "a", "b")
	assert.ErrorIs(t, err, backend.ErrObjectAlreadyExists)
}

func TestDeleteMissingObject(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)
	require.NoError(t, b.Create(ctx, nil))

	err := b.Delete(ctx, "nope")
	assert.ErrorIs(t, err, backend.ErrObjectNotFound)
}

func TestListMissingDirReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)
	require.NoError(t, b.Create(ctx, nil))

	entries, err := b.List(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
