package json

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/types"
	"github.com/projecteru2/vpsbot/utils"
)

func newAccounts(t *testing.T) (*Store[types.AccountIndex], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	return New[types.AccountIndex](path+".lock", path), path
}

func TestMissingFileLoadsInitialized(t *testing.T) {
	s, path := newAccounts(t)
	err := s.With(context.Background(), func(idx *types.AccountIndex) error {
		assert.NotNil(t, *idx)
		assert.Empty(t, *idx)
		return nil
	})
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "With must not create the file")
}

func TestUpdatePersistsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newAccounts(t)

	require.NoError(t, s.Update(ctx, func(idx *types.AccountIndex) error {
		idx.GetOrCreate("1").Credits = 10
		return nil
	}))

	boom := errors.New("boom")
	err := s.Update(ctx, func(idx *types.AccountIndex) error {
		idx.GetOrCreate("1").Credits = 999
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.With(ctx, func(idx *types.AccountIndex) error {
		assert.Equal(t, int64(10), idx.Balance("1"))
		return nil
	}))
}

func TestCorruptFileStartsFresh(t *testing.T) {
	ctx := context.Background()
	s, path := newAccounts(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	require.NoError(t, s.With(ctx, func(idx *types.AccountIndex) error {
		assert.Empty(t, *idx)
		return nil
	}))
	copies := utils.CorruptCopies(path)
	require.Len(t, copies, 1)
	raw, err := os.ReadFile(copies[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))
}

func TestLegacyVPSShapeIsNormalizedOnSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vps.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": {"container_name": "vps-a-1", "status": "running"}}`), 0o600))
	s := New[types.VPSIndex](path+".lock", path)

	require.NoError(t, s.Update(ctx, func(idx *types.VPSIndex) error { return nil }))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"1": [`)
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	s, path := newAccounts(t)
	other := New[types.AccountIndex](path+".lock", path)

	var wg sync.WaitGroup
	for i := range 20 {
		st := s
		if i%2 == 1 {
			st = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, st.Update(ctx, func(idx *types.AccountIndex) error {
				idx.GetOrCreate("1").Credits++
				return nil
			}))
		}()
	}
	wg.Wait()

	require.NoError(t, s.With(ctx, func(idx *types.AccountIndex) error {
		assert.Equal(t, int64(20), idx.Balance("1"))
		return nil
	}))
}

func TestTryLockThenWrite(t *testing.T) {
	ctx := context.Background()
	s, _ := newAccounts(t)
	ok, err := s.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Write(ctx, func(idx *types.AccountIndex) error {
		idx.GetOrCreate("2").Credits = 3
		return nil
	}))
	require.NoError(t, s.Read(ctx, func(idx *types.AccountIndex) error {
		assert.Equal(t, int64(3), idx.Balance("2"))
		return nil
	}))
	require.NoError(t, s.Unlock(ctx))
}
