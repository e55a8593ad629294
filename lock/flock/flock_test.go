package flock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockExclusive(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "vps.json.lock")

	l := New(path)
	ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "same instance must not re-enter")

	other := New(path)
	ok, err = other.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second fd must see the flock")

	require.NoError(t, l.Unlock(ctx))
	ok, err = other.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, other.Unlock(ctx))
}

func TestLockTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")
	holder := New(path)
	require.NoError(t, holder.Lock(context.Background()))
	defer holder.Unlock(context.Background()) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.Error(t, New(path).Lock(ctx))
}
