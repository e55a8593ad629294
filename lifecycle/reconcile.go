package lifecycle

import (
	"context"
	"sync/atomic"

	"github.com/projecteru2/core/log"
	"golang.org/x/sync/errgroup"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/metrics"
	"github.com/projecteru2/vpsbot/types"
)

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Reconcile queries the live status of every record and overwrites the
// declared status where they differ, with two exceptions to a plain
// overwrite: a query that fails or reports unknown/error is no information and leaves
// the record alone, and a stopped container is consistent with a suspended
// or upgrading record, so those holds survive. Leaving suspended clears the
// suspension marks.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileResult, error) {
	logger := log.WithFunc("lifecycle.Reconcile")

	var names []string
	if err := m.repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		idx.Each(func(_ string, r *types.VPS) {
			if r.ContainerName != "" {
				names = append(names, r.ContainerName)
			}
		})
		return nil
	}); err != nil {
		metrics.ObserveReconcile(0, err)
		return ReconcileResult{}, err
	}

	var updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.conf.PoolSize, 1))
	for _, name := range names {
		g.Go(func() error {
			return m.locks.Do(gctx, name, func() error {
				live, err := m.runtime.Status(gctx, name)
				if err != nil {
					failed.Add(1)
					logger.Warnf(gctx, "status of %s: %v", name, err)
					return nil
				}
				_, _, rec, err := m.resolve(gctx, Ref{Name: name})
				if err != nil || !needsUpdate(rec.Status, live) {
					return nil
				}
				logger.Infof(gctx, "%s: declared %s, live %s", name, rec.Status, live)
				if _, err := m.save(gctx, name, func(r *types.VPS) {
					if r.Status == types.StatusSuspended {
						r.ClearSuspension()
					}
					r.Touch(live)
				}); err != nil {
					logger.Warnf(gctx, "update %s: %v", name, err)
					return nil
				}
				updated.Add(1)
				return nil
			})
		})
	}
	err := g.Wait()
	res := ReconcileResult{Checked: len(names), Updated: int(updated.Load()), Failed: int(failed.Load())}
	metrics.ObserveReconcile(res.Updated, err)
	return res, err
}

// ReconcileAs runs Reconcile on behalf of an admin.
func (m *Manager) ReconcileAs(ctx context.Context, actor string) (res ReconcileResult, err error) {
	defer func() { observe(ctx, types.ActionReconcile, "all", err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return res, err
	}
	return m.Reconcile(ctx)
}

func needsUpdate(declared, live types.Status) bool {
	switch live {
	case types.StatusError, types.StatusUnknown:
		return false
	case types.StatusStopped:
		return declared != live && !declared.Held()
	case types.StatusRunning, types.StatusSuspended, types.StatusUpgrading:
		return declared != live
	}
	return false
}
