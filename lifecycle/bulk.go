package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/lock"
	"github.com/projecteru2/vpsbot/metrics"
	"github.com/projecteru2/vpsbot/protection"
	"github.com/projecteru2/vpsbot/types"
)

// Bulk stop triggers.
const (
	TriggerManual = "manual"
	TriggerCPU    = "cpu"
)

// Bulk stop modes.
const (
	// ModeAll is one host-wide force stop.
	ModeAll = "all"
	// ModeEach force-stops every eligible container individually.
	ModeEach = "each"
)

var errNotRunning = errors.New("not running")

// BulkResult reports what a bulk stop did.
type BulkResult struct {
	Mode    string   `json:"mode"`
	Stopped []string `json:"stopped"`
	// Protected lists running containers left alone by the protection policy.
	Protected []string `json:"protected,omitempty"`
}

// StopAll force-stops every running container not exempted by the
// protection policy and records reason and actor. Admin only.
func (m *Manager) StopAll(ctx context.Context, actor, reason string) (res BulkResult, err error) {
	defer func() { observe(ctx, types.ActionBulkStop, "all", err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return res, err
	}
	if reason == "" {
		reason = "Administrative maintenance"
	}
	return m.bulkStop(ctx, actor, reason, TriggerManual)
}

// EmergencyStop is StopAll without authorization, for the CPU safety task.
func (m *Manager) EmergencyStop(ctx context.Context, reason string) (res BulkResult, err error) {
	defer func() { observe(ctx, types.ActionBulkStop, "emergency", err) }()
	return m.bulkStop(ctx, SystemActor, reason, TriggerCPU)
}

// bulkStop uses one host-wide stop only when no protected user owns any
// record, whatever its declared status, since a declared status may be stale.
// Otherwise it stops eligible containers one by one, best effort.
func (m *Manager) bulkStop(ctx context.Context, actor, reason, trigger string) (BulkResult, error) {
	logger := log.WithFunc("lifecycle.bulkStop")
	metrics.ObserveBulkStop(trigger)

	info, err := m.policy.Info(ctx)
	if err != nil {
		return BulkResult{}, err
	}
	var (
		targets, protected []string
		guarded            bool
	)
	if err := m.repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		idx.Each(func(owner string, r *types.VPS) {
			allowed := protection.Allowed(info, owner)
			guarded = guarded || !allowed
			if r.Status != types.StatusRunning {
				return
			}
			if allowed {
				targets = append(targets, r.ContainerName)
			} else {
				protected = append(protected, r.ContainerName)
			}
		})
		return nil
	}); err != nil {
		return BulkResult{}, err
	}
	slices.Sort(targets)
	slices.Sort(protected)

	mark := func(r *types.VPS) {
		r.Touch(types.StatusStopped)
		r.StoppedReason, r.StoppedBy = reason, actor
	}

	if !guarded {
		res := BulkResult{Mode: ModeAll}
		err := m.withKeys(ctx, targets, func() error {
			if err := m.runtime.StopAll(ctx, true); err != nil {
				return err
			}
			return m.repo.UpdateVPS(ctx, func(idx *types.VPSIndex) error {
				for _, name := range targets {
					if _, _, r := idx.Find(name); r != nil && r.Status == types.StatusRunning {
						mark(r)
						res.Stopped = append(res.Stopped, name)
					}
				}
				return nil
			})
		})
		logger.Infof(ctx, "bulk stop (%s) by %s: %d stopped: %s", trigger, actor, len(res.Stopped), reason)
		return res, err
	}

	res := BulkResult{Mode: ModeEach, Protected: protected}
	var errs []error
	for _, name := range targets {
		err := m.locks.Do(ctx, name, func() error {
			_, _, rec, err := m.resolve(ctx, Ref{Name: name})
			if err != nil {
				return err
			}
			if rec.Status != types.StatusRunning {
				return errNotRunning
			}
			if err := m.runtime.Stop(ctx, name, true); err != nil {
				return err
			}
			_, err = m.save(ctx, name, mark)
			return err
		})
		if errors.Is(err, errNotRunning) {
			continue
		}
		if err != nil {
			logger.Warnf(ctx, "bulk stop %s: %v", name, err)
			errs = append(errs, fmt.Errorf("VPS %s: %w", name, err))
			continue
		}
		res.Stopped = append(res.Stopped, name)
	}
	logger.Infof(ctx, "bulk stop (%s) by %s: %d stopped, %d protected: %s", trigger, actor, len(res.Stopped), len(protected), reason)
	return res, errors.Join(errs...)
}

// withKeys holds the key locks of every name (in sorted order) while fn runs.
func (m *Manager) withKeys(ctx context.Context, names []string, fn func() error) error {
	held := make([]lock.Locker, 0, len(names))
	defer func() {
		for _, l := range held {
			l.Unlock(ctx) //nolint:errcheck
		}
	}()
	for _, name := range names {
		l := m.locks.Get(name)
		if err := l.Lock(ctx); err != nil {
			return err
		}
		held = append(held, l)
	}
	return fn()
}
