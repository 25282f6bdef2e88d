package memblob

import (
	"context"
	"testing"

	"github.com/borgbackup/borgstore/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOpenLifecycle(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Create(ctx, nil))
	require.NoError(t, b.Open(ctx))
	require.NoError(t, b.Close(ctx))
	require.NoError(t, b.Close(ctx)) // idempotent
}

func TestStoreLoadDelete(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.Create(ctx, nil))

	require.NoError(t, b.Store(ctx, "ns/key", []byte("hello")))

	got, err := b.Load(ctx, "ns/key", 0, backend.ReadToEOF)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	got, err = b.Load(ctx, "ns/key", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("ell"), got)

	require.NoError(t, b.Delete(ctx, "ns/key"))
	_, err = b.Load(ctx, "ns/key", 0, backend.ReadToEOF)
	assert.ErrorIs(t, err, backend.ErrObjectNotFound)
}

func TestMoveRejectsExistingDest(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.Create(ctx, nil))
	require.NoError(t, b.Store(ctx, "a", []byte("1")))
	require.NoError(t, b.Store(ctx, "b", []byte("2")))

	err := b.Move(ctx, "a", "b")
	assert.ErrorIs(t, err, backend.ErrObjectAlreadyExists)
}

func TestListDirectoryEmulation(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.Create(ctx, nil))
	require.NoError(t, b.Store(ctx, "ns/aa/key1", []byte("1")))
	require.NoError(t, b.Store(ctx, "ns/bb/key2", []byte("2")))
	require.NoError(t, b.Store(ctx, "ns/flat", []byte("3")))

	entries, err := b.List(ctx, "ns")
	require.NoError(t, err)

	var dirs, files int
	for _, e := range entries {
		if e.Directory {
			dirs++
		} else {
			files++
		}
	}
	assert.Equal(t, 2, dirs)
	assert.Equal(t, 1, files)
}

func TestCreateRejectsNonEmpty(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.Create(ctx, nil))
	require.NoError(t, b.Store(ctx, "k", []byte("v")))

	err := b.Create(ctx, nil)
	assert.ErrorIs(t, err, backend.ErrBackendAlreadyExists)
}
