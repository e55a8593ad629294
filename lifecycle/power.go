package lifecycle

import (
	"context"
	"fmt"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/types"
)

// Start boots a stopped container. Starting a running record is a no-op with
// no external call. Only admins may start a suspended record, which lifts
// the suspension.
func (m *Manager) Start(ctx context.Context, actor string, ref Ref) (out types.VPS, err error) {
	defer func() { observe(ctx, types.ActionStart, ref.String(), err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierUser); err != nil {
		return out, err
	}
	err = m.locked(ctx, ref, func(owner string, rec types.VPS) error {
		if err := m.access(ctx, actor, owner, rec); err != nil {
			return err
		}
		if rec.Status == types.StatusRunning {
			out = rec
			return nil
		}
		if rec.Status == types.StatusSuspended {
			if err := m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
				return fmt.Errorf("%w: %s is suspended", types.ErrPermissionDenied, rec.ContainerName)
			}
		}
		if err := m.runtime.Start(ctx, rec.ContainerName); err != nil {
			return err
		}
		out, err = m.save(ctx, rec.ContainerName, func(r *types.VPS) {
			r.Touch(types.StatusRunning)
			r.StoppedReason, r.StoppedBy = "", ""
			r.ClearSuspension()
		})
		return err
	})
	return out, err
}

// Stop shuts a running container down gracefully.
func (m *Manager) Stop(ctx context.Context, actor string, ref Ref) (out types.VPS, err error) {
	defer func() { observe(ctx, types.ActionStop, ref.String(), err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierUser); err != nil {
		return out, err
	}
	err = m.locked(ctx, ref, func(owner string, rec types.VPS) error {
		if err := m.access(ctx, actor, owner, rec); err != nil {
			return err
		}
		if rec.Status != types.StatusRunning {
			return fmt.Errorf("%w: %s is %s", types.ErrAlreadyInState, rec.ContainerName, rec.Status)
		}
		if err := m.runtime.Stop(ctx, rec.ContainerName, false); err != nil {
			return err
		}
		out, err = m.save(ctx, rec.ContainerName, func(r *types.VPS) {
			r.Touch(types.StatusStopped)
			r.StoppedBy, r.StoppedReason = actor, ""
		})
		return err
	})
	return out, err
}

// Suspend force-stops the container whatever its status and records who
// suspended it. Admin only.
func (m *Manager) Suspend(ctx context.Context, actor string, ref Ref) (out types.VPS, err error) {
	defer func() { observe(ctx, types.ActionSuspend, ref.String(), err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return out, err
	}
	err = m.locked(ctx, ref, func(_ string, rec types.VPS) error {
		if err := m.runtime.Stop(ctx, rec.ContainerName, true); err != nil {
			return err
		}
		out, err = m.save(ctx, rec.ContainerName, func(r *types.VPS) {
			r.Touch(types.StatusSuspended)
			r.SuspendedAt = types.TimestampPtr(r.LastUpdated)
			r.SuspendedBy = actor
		})
		return err
	})
	return out, err
}

// Unsuspend starts a suspended container and clears the suspension. Admin only.
func (m *Manager) Unsuspend(ctx context.Context, actor string, ref Ref) (out types.VPS, err error) {
	defer func() { observe(ctx, types.ActionUnsuspend, ref.String(), err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return out, err
	}
	err = m.locked(ctx, ref, func(_ string, rec types.VPS) error {
		if rec.Status != types.StatusSuspended {
			return fmt.Errorf("%w: %s is not suspended", types.ErrAlreadyInState, rec.ContainerName)
		}
		if err := m.runtime.Start(ctx, rec.ContainerName); err != nil {
			return err
		}
		out, err = m.save(ctx, rec.ContainerName, func(r *types.VPS) {
			r.Touch(types.StatusRunning)
			r.ClearSuspension()
		})
		return err
	})
	return out, err
}
