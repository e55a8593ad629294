package admin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/repository"
	"github.com/projecteru2/vpsbot/types"
)

const mainAdmin = "1"

func newRegistry(t *testing.T, forceMaintenance bool) *Registry {
	t.Helper()
	conf := config.DefaultConfig()
	conf.RootDir = filepath.Join(t.TempDir(), "data")
	conf.MainAdmin = mainAdmin
	repo, err := repository.New(conf)
	require.NoError(t, err)
	return New(repo, forceMaintenance)
}

func TestAuthorizeTiers(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, false)
	require.NoError(t, r.AddAdmin(ctx, mainAdmin, "2"))

	tests := []struct {
		actor string
		tier  Tier
		err   error
	}{
		{mainAdmin, TierMain, nil},
		{mainAdmin, TierAdmin, nil},
		{"2", TierAdmin, nil},
		{"2", TierMain, types.ErrPermissionDenied},
		{"3", TierUser, nil},
		{"3", TierAdmin, types.ErrPermissionDenied},
		{"", TierUser, types.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.actor+"/"+tt.tier.String(), func(t *testing.T) {
			err := r.Authorize(ctx, tt.actor, tt.tier)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMaintenanceGate(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, false)
	require.NoError(t, r.AddAdmin(ctx, mainAdmin, "2"))

	assert.ErrorIs(t, r.SetMaintenance(ctx, "2", true), types.ErrPermissionDenied)
	require.NoError(t, r.SetMaintenance(ctx, mainAdmin, true))

	exempt, err := r.MaintenanceExempt(ctx, "2")
	require.NoError(t, err)
	assert.False(t, exempt)
	assert.ErrorIs(t, r.Authorize(ctx, "2", TierAdmin), types.ErrMaintenance)
	assert.NoError(t, r.Authorize(ctx, mainAdmin, TierUser))

	require.NoError(t, r.SetMaintenance(ctx, mainAdmin, false))
	assert.NoError(t, r.Authorize(ctx, "3", TierUser))
}

func TestForcedMaintenance(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, true)
	require.NoError(t, r.SetMaintenance(ctx, mainAdmin, false))
	on, err := r.Maintenance(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestAdminMembership(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, false)

	assert.ErrorIs(t, r.AddAdmin(ctx, "2", "3"), types.ErrPermissionDenied)
	require.NoError(t, r.AddAdmin(ctx, mainAdmin, "2"))
	assert.ErrorIs(t, r.AddAdmin(ctx, mainAdmin, "2"), types.ErrAlreadyInState)

	admins, err := r.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{mainAdmin, "2"}, admins)

	assert.ErrorIs(t, r.RemoveAdmin(ctx, mainAdmin, mainAdmin), types.ErrPermissionDenied)
	require.NoError(t, r.RemoveAdmin(ctx, mainAdmin, "2"))
	assert.ErrorIs(t, r.RemoveAdmin(ctx, mainAdmin, "2"), types.ErrNotFound)
}

func TestPlanCatalog(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, false)

	p, err := r.FindPlan(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, 8, p.RAMGB)
	price, _ := p.Price("amd")
	assert.Equal(t, int64(164), price)

	custom := types.Plan{Name: "Mega", Type: types.PlanPaid, RAMGB: 32, CPU: 8, StorageGB: 100, PriceIntel: 500, PriceAMD: 700}
	require.NoError(t, r.AddPlan(ctx, mainAdmin, custom))
	assert.ErrorIs(t, r.AddPlan(ctx, mainAdmin, custom), types.ErrAlreadyInState)

	got, err := r.FindPlan(ctx, "MEGA")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())

	bad := []types.Plan{
		{Name: "", Type: types.PlanPaid, RAMGB: 1, CPU: 1, StorageGB: 1, PriceIntel: 1},
		{Name: "Zero", Type: types.PlanPaid, RAMGB: 0, CPU: 1, StorageGB: 1, PriceIntel: 1},
		{Name: "Free", Type: types.PlanPaid, RAMGB: 1, CPU: 1, StorageGB: 1},
		{Name: "Odd", Type: "gold", RAMGB: 1, CPU: 1, StorageGB: 1},
	}
	for _, b := range bad {
		assert.ErrorIs(t, r.AddPlan(ctx, mainAdmin, b), types.ErrInvalidInput, b.Name)
	}

	boost := types.Plan{Name: "Boost Mega", Type: types.PlanFreeBoost, RAMGB: 6, CPU: 2, StorageGB: 15, Boosts: 3}
	require.NoError(t, r.AddPlan(ctx, mainAdmin, boost))

	assert.ErrorIs(t, r.RemovePlan(ctx, mainAdmin, "starter"), types.ErrPermissionDenied)
	require.NoError(t, r.RemovePlan(ctx, mainAdmin, "boost mega"))
	assert.ErrorIs(t, r.RemovePlan(ctx, mainAdmin, "boost mega"), types.ErrNotFound)

	plans, err := r.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, len(builtinPlans)+1)
}

func TestAddPlanPricesBothProcessors(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, false)

	require.NoError(t, r.AddPlan(ctx, mainAdmin, types.Plan{Name: "Mega", Type: types.PlanPaid, RAMGB: 32, CPU: 8, StorageGB: 100, PriceIntel: 500}))
	got, err := r.FindPlan(ctx, "mega")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.PriceIntel)
	assert.Equal(t, int64(500), got.PriceAMD)

	require.NoError(t, r.AddPlan(ctx, mainAdmin, types.Plan{Name: "Tailored", Type: types.PlanCustom, RAMGB: 6, CPU: 2, StorageGB: 20, PriceAMD: 70}))
	got, err = r.FindPlan(ctx, "tailored")
	require.NoError(t, err)
	assert.Equal(t, int64(70), got.PriceIntel)

	err = r.AddPlan(ctx, mainAdmin, types.Plan{Name: "Gratis", Type: types.PlanCustom, RAMGB: 6, CPU: 2, StorageGB: 20})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
