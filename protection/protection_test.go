package protection

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/repository"
	"github.com/projecteru2/vpsbot/types"
)

const mainAdmin = "1"

func setup(t *testing.T) (*Policy, *repository.Repository) {
	t.Helper()
	conf := config.DefaultConfig()
	conf.RootDir = filepath.Join(t.TempDir(), "data")
	conf.MainAdmin = mainAdmin
	repo, err := repository.New(conf)
	require.NoError(t, err)
	return New(repo, admin.New(repo, false)), repo
}

func giveRecords(t *testing.T, repo *repository.Repository, user string, n int) {
	t.Helper()
	require.NoError(t, repo.UpdateVPS(context.Background(), func(idx *types.VPSIndex) error {
		for range n {
			idx.Users[user] = append(idx.Users[user], &types.VPS{ContainerName: fmt.Sprintf("vps-%s-%d", user, idx.Count(user)+1)})
		}
		return nil
	}))
}

func TestProtectCounterIsSnapshot(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t)
	giveRecords(t, repo, "u", 3)

	n, err := p.Protect(ctx, mainAdmin, "u")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	giveRecords(t, repo, "u", 2)
	info, err := p.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.ProtectedVPS, "counter is not recomputed")
	assert.Equal(t, []string{"u"}, info.ProtectedUsers)

	_, err = p.Protect(ctx, mainAdmin, "u")
	assert.ErrorIs(t, err, types.ErrAlreadyInState)
	info, err = p.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.ProtectedVPS)
}

func TestUnprotectFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t)

	_, err := p.Protect(ctx, mainAdmin, "u")
	require.NoError(t, err)
	giveRecords(t, repo, "u", 4)

	n, err := p.Unprotect(ctx, mainAdmin, "u")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	info, err := p.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.ProtectedVPS)
	assert.Empty(t, info.ProtectedUsers)

	_, err = p.Unprotect(ctx, mainAdmin, "u")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBulkAllowed(t *testing.T) {
	ctx := context.Background()
	p, _ := setup(t)
	_, err := p.Protect(ctx, mainAdmin, "u")
	require.NoError(t, err)

	ok, err := p.IsBulkOperationAllowedFor(ctx, "u")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = p.IsBulkOperationAllowedFor(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, p.Disable(ctx, "u"), types.ErrPermissionDenied)
	require.NoError(t, p.Disable(ctx, mainAdmin))
	ok, err = p.IsBulkOperationAllowedFor(ctx, "u")
	require.NoError(t, err)
	assert.True(t, ok, "disabled policy protects nobody")

	require.NoError(t, p.Enable(ctx, mainAdmin))
	ok, err = p.IsBulkOperationAllowedFor(ctx, "u")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProtectRequiresAdmin(t *testing.T) {
	p, _ := setup(t)
	_, err := p.Protect(context.Background(), "nobody", "u")
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
}
