package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/types"
)

func newRepo(t *testing.T) (*Repository, *config.Config) {
	t.Helper()
	conf := config.DefaultConfig()
	conf.RootDir = filepath.Join(t.TempDir(), "data")
	conf.MainAdmin = "1"
	repo, err := New(conf)
	require.NoError(t, err)
	return repo, conf
}

func TestGetOrCreateAccountPersists(t *testing.T) {
	ctx := context.Background()
	repo, conf := newRepo(t)

	acct, err := repo.GetOrCreateAccount(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.Credits)

	raw, err := os.ReadFile(conf.AccountsPath())
	require.NoError(t, err)
	assert.JSONEq(t, `{"42":{"credits":0}}`, string(raw))
}

func TestAdminDefaults(t *testing.T) {
	ctx := context.Background()
	repo, conf := newRepo(t)

	require.NoError(t, repo.UpdateAdmin(ctx, func(*types.AdminConfig) error { return nil }))
	raw, err := os.ReadFile(conf.AdminPath())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"admins": ["1"],
		"purge_protection": {"enabled": true, "protected_users": [], "protected_vps": 0},
		"custom_plans": {"paid": [], "boost": [], "invite": []},
		"maintenance": false
	}`, string(raw))
}

func TestCollectionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	repo, conf := newRepo(t)

	require.NoError(t, repo.UpdateVPS(ctx, func(idx *types.VPSIndex) error {
		idx.Users["1"] = append(idx.Users["1"], &types.VPS{ContainerName: "vps-a-1", Status: types.StatusRunning})
		return nil
	}))
	_, err := os.Stat(conf.AccountsPath())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		assert.True(t, idx.NameTaken("vps-a-1"))
		return nil
	}))
}
