package lifecycle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/types"
)

// Upgrade changes memory and CPU limits in three phases: stop, reconfigure,
// start. Between the stop and the final start the record is persisted as
// "upgrading"; a failure after the stop leaves it there with upgrade_error
// set, and whatever limits were applied are reflected in the record.
// Suspended records are refused; unsuspend them first. Admin only.
func (m *Manager) Upgrade(ctx context.Context, actor string, ref Ref, ramGB, cpu int) (out types.VPS, err error) {
	defer func() { observe(ctx, types.ActionUpgrade, ref.String(), err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return out, err
	}
	if ramGB <= 0 || cpu <= 0 {
		return out, fmt.Errorf("%w: ram=%d cpu=%d must be positive", types.ErrInvalidInput, ramGB, cpu)
	}
	err = m.locked(ctx, ref, func(_ string, rec types.VPS) error {
		name := rec.ContainerName
		if rec.Status == types.StatusSuspended {
			return fmt.Errorf("%w: %s is suspended", types.ErrInvalidInput, name)
		}

		// Phase 1: stop.
		if rec.Status == types.StatusRunning {
			if err := m.runtime.Stop(ctx, name, false); err != nil {
				return err
			}
		}
		if _, err := m.save(ctx, name, func(r *types.VPS) {
			r.Touch(types.StatusUpgrading)
			r.UpgradeError = ""
		}); err != nil {
			return err
		}

		// Phase 2: reconfigure.
		if err := m.runtime.SetMemory(ctx, name, int64(ramGB)*1024); err != nil { //nolint:mnd
			return m.upgradeFailed(ctx, name, "set memory", err, nil)
		}
		if err := m.runtime.SetCPU(ctx, name, cpu); err != nil {
			return m.upgradeFailed(ctx, name, "set cpu", err, func(r *types.VPS) {
				r.RAM = types.FormatGB(ramGB)
			})
		}

		// Phase 3: start.
		applied := func(r *types.VPS) {
			r.RAM = types.FormatGB(ramGB)
			r.CPU = strconv.Itoa(cpu)
		}
		if err := m.runtime.Start(ctx, name); err != nil {
			return m.upgradeFailed(ctx, name, "start", err, applied)
		}
		out, err = m.save(ctx, name, func(r *types.VPS) {
			applied(r)
			r.Touch(types.StatusRunning)
			r.UpgradedAt = types.TimestampPtr(r.LastUpdated)
			r.UpgradedBy = actor
			r.UpgradeError = ""
		})
		return err
	})
	return out, err
}

// upgradeFailed records the failed phase on the record, which stays in
// the upgrading state, and returns the original error.
func (m *Manager) upgradeFailed(ctx context.Context, name, phase string, cause error, partial func(*types.VPS)) error {
	if _, err := m.save(ctx, name, func(r *types.VPS) {
		if partial != nil {
			partial(r)
		}
		r.UpgradeError = fmt.Sprintf("%s: %v", phase, cause)
		r.LastUpdated = types.Now()
	}); err != nil {
		return fmt.Errorf("upgrade %s: %w (recording failure: %v)", phase, cause, err)
	}
	return fmt.Errorf("upgrade %s: %w", phase, cause)
}
