package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/lifecycle"
	"github.com/projecteru2/vpsbot/lock/keyed"
)

type fixedCPU struct {
	pct float64
	err error
}

func (f fixedCPU) CPUPercent(context.Context) (float64, error) { return f.pct, f.err }

type recordingStopper struct {
	reasons []string
}

func (r *recordingStopper) EmergencyStop(_ context.Context, reason string) (lifecycle.BulkResult, error) {
	r.reasons = append(r.reasons, reason)
	return lifecycle.BulkResult{Mode: lifecycle.ModeAll, Stopped: []string{"vps-a-1"}}, nil
}

type countingReconciler struct {
	runs    atomic.Int64
	running atomic.Int64
	overlap atomic.Bool
}

func (c *countingReconciler) Reconcile(context.Context) (lifecycle.ReconcileResult, error) {
	if c.running.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.running.Add(-1)
	c.runs.Add(1)
	time.Sleep(2 * time.Millisecond)
	return lifecycle.ReconcileResult{Checked: 1}, nil
}

func TestCPUGuard(t *testing.T) {
	tests := []struct {
		name    string
		pct     float64
		stopped bool
	}{
		{"below", 50, false},
		{"at threshold", 90, false},
		{"above", 95.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stopper := &recordingStopper{}
			s := New()
			Register(s, CPUGuardTask(stopper, fixedCPU{pct: tt.pct}, 90, time.Minute))
			require.NoError(t, s.RunOnce(context.Background(), TaskCPUGuard))
			if tt.stopped {
				assert.Equal(t, []string{CPUReason}, stopper.reasons)
			} else {
				assert.Empty(t, stopper.reasons)
			}
		})
	}
}

func TestCPUGuardSampleError(t *testing.T) {
	stopper := &recordingStopper{}
	s := New()
	Register(s, CPUGuardTask(stopper, fixedCPU{err: errors.New("no /proc")}, 90, time.Minute))
	assert.Error(t, s.RunOnce(context.Background(), TaskCPUGuard))
	assert.Empty(t, stopper.reasons)
}

func TestRegisterSkipsDisabled(t *testing.T) {
	s := New()
	Register(s, ReconcileTask(&countingReconciler{}, 0, nil))
	Register(s, CPUGuardTask(&recordingStopper{}, fixedCPU{}, 90, time.Minute))
	assert.Equal(t, []string{TaskCPUGuard}, s.Tasks())

	err := s.RunOnce(context.Background(), TaskReconcile)
	assert.Error(t, err)
}

func TestRunOnceSkipsWhenBusy(t *testing.T) {
	ctx := context.Background()
	locks := keyed.New()
	held := locks.Get("reconcile")
	require.NoError(t, held.Lock(ctx))

	r := &countingReconciler{}
	s := New()
	Register(s, ReconcileTask(r, time.Minute, locks.Get("reconcile")))

	assert.ErrorIs(t, s.RunOnce(ctx, TaskReconcile), ErrBusy)
	assert.Zero(t, r.runs.Load())

	require.NoError(t, held.Unlock(ctx))
	require.NoError(t, s.RunOnce(ctx, TaskReconcile))
	assert.Equal(t, int64(1), r.runs.Load())
}

func TestRunFiresTasksSerially(t *testing.T) {
	r := &countingReconciler{}
	stopper := &recordingStopper{}
	s := New()
	Register(s, ReconcileTask(r, 5*time.Millisecond, nil))
	Register(s, CPUGuardTask(stopper, fixedCPU{pct: 10}, 90, 3*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return r.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, r.overlap.Load())
	assert.Empty(t, stopper.reasons)
}

func TestRunWithoutTasksBlocksUntilCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.NoError(t, New().Run(ctx))
}
