package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/lifecycle"
	"github.com/projecteru2/vpsbot/lock"
	"github.com/projecteru2/vpsbot/metrics"
)

// Task names.
const (
	TaskReconcile = "reconcile"
	TaskCPUGuard  = "cpu-guard"
)

// CPUReason is recorded on containers stopped by the CPU safety task.
const CPUReason = "cpu threshold exceeded"

// Reconciler is the subset of lifecycle.Manager the reconcile task needs.
type Reconciler interface {
	Reconcile(ctx context.Context) (lifecycle.ReconcileResult, error)
}

// EmergencyStopper is the subset of lifecycle.Manager the CPU task needs.
type EmergencyStopper interface {
	EmergencyStop(ctx context.Context, reason string) (lifecycle.BulkResult, error)
}

// ReconcileTask corrects declared statuses from live state every interval.
// locker, when non-nil, keeps a CLI-triggered pass and the loop apart.
func ReconcileTask(r Reconciler, interval time.Duration, locker lock.Locker) Task[lifecycle.ReconcileResult] {
	return Task[lifecycle.ReconcileResult]{
		Name:     TaskReconcile,
		Interval: interval,
		Locker:   locker,
		Sample:   r.Reconcile,
		Act: func(ctx context.Context, res lifecycle.ReconcileResult) error {
			logger := log.WithFunc("monitor.reconcile")
			if res.Updated > 0 || res.Failed > 0 {
				logger.Infof(ctx, "checked %d, updated %d, failed %d", res.Checked, res.Updated, res.Failed)
			}
			return nil
		},
	}
}

// CPUGuardTask samples host CPU and force-stops unprotected containers when
// utilisation exceeds threshold percent.
func CPUGuardTask(s EmergencyStopper, sampler CPUSampler, threshold float64, interval time.Duration) Task[float64] {
	return Task[float64]{
		Name:     TaskCPUGuard,
		Interval: interval,
		Sample: func(ctx context.Context) (float64, error) {
			pct, err := sampler.CPUPercent(ctx)
			if err != nil {
				return 0, fmt.Errorf("sample cpu: %w", err)
			}
			metrics.SetHostCPU(pct)
			return pct, nil
		},
		Act: func(ctx context.Context, pct float64) error {
			if pct <= threshold {
				return nil
			}
			logger := log.WithFunc("monitor.cpuGuard")
			logger.Warnf(ctx, "host cpu %.1f%% above %.1f%%, stopping containers", pct, threshold)
			res, err := s.EmergencyStop(ctx, CPUReason)
			logger.Infof(ctx, "emergency stop (%s): %d stopped, %d protected", res.Mode, len(res.Stopped), len(res.Protected))
			return err
		},
	}
}
