package stats

import (
	"context"
	"testing"
	"time"

	"github.com/borgbackup/borgstore/backend/memblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountsCallsAndBytes(t *testing.T) {
	ctx := context.Background()
	inner := memblob.New()
	require.NoError(t, inner.Create(ctx, nil))

	b := Wrap(inner)
	require.NoError(t, b.Store(ctx, "k", []byte("hello")))
	_, err := b.Load(ctx, "k", 0, -1)
	require.NoError(t, err)

	snap := b.Snapshot()
	assert.Equal(t, uint64(1), snap.PerOp["store"].Calls)
	assert.Equal(t, uint64(5), snap.PerOp["store"].BytesIn)
	assert.Equal(t, uint64(1), snap.PerOp["load"].Calls)
	assert.Equal(t, uint64(5), snap.PerOp["load"].BytesOut)
}

func TestDebugLogInvoked(t *testing.T) {
	ctx := context.Background()
	inner := memblob.New()
	require.NoError(t, inner.Create(ctx, nil))

	var loggedOp, loggedName string
	var loggedBytes int64
	b := Wrap(inner, WithDebugLog(func(op, name string, bytes int64, seconds float64) {
		loggedOp, loggedName, loggedBytes = op, name, bytes
	}))

	require.NoError(t, b.Store(ctx, "k", []byte("abc")))
	assert.Equal(t, "store", loggedOp)
	assert.Equal(t, "k", loggedName)
	assert.Equal(t, int64(3), loggedBytes)
}

func TestLatencyEmulation(t *testing.T) {
	ctx := context.Background()
	inner := memblob.New()
	require.NoError(t, inner.Create(ctx, nil))

	b := Wrap(inner, WithLatency(20*time.Millisecond))
	start := time.Now()
	require.NoError(t, b.Store(ctx, "k", []byte("v")))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
