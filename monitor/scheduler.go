// Package monitor runs the engine's periodic jobs: reconciliation and the
// host CPU safety check.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/metrics"
)

// ErrBusy is returned by RunOnce when the task's lock is held elsewhere.
var ErrBusy = errors.New("task busy")

// Scheduler runs registered tasks serially from one goroutine, so no two
// tasks ever overlap.
type Scheduler struct {
	tasks []runner
}

// New creates an empty Scheduler.
func New() *Scheduler { return &Scheduler{} }

// Register adds a typed Task. Tasks with a non-positive interval are ignored.
// This is a package-level function because Go methods cannot have type
// parameters.
func Register[S any](s *Scheduler, t Task[S]) {
	if t.Interval <= 0 || t.Sample == nil {
		return
	}
	s.tasks = append(s.tasks, t)
}

// Tasks returns the registered task names in registration order.
func (s *Scheduler) Tasks() []string {
	out := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.name())
	}
	return out
}

// Run fires each task every interval until ctx ends. A failed task is
// logged and rescheduled; it never stops the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := log.WithFunc("monitor.Run")
	if len(s.tasks) == 0 {
		<-ctx.Done()
		return nil
	}
	logger.Infof(ctx, "scheduler started: %v", s.Tasks())

	now := time.Now()
	due := make([]time.Time, len(s.tasks))
	for i, t := range s.tasks {
		due[i] = now.Add(t.interval())
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		i := earliest(due)
		timer.Reset(time.Until(due[i]))
		select {
		case <-ctx.Done():
			logger.Info(ctx, "scheduler stopped")
			return nil
		case <-timer.C:
		}
		if err := s.fire(ctx, s.tasks[i]); err != nil && !errors.Is(err, ErrBusy) {
			logger.Warnf(ctx, "task %s: %v", s.tasks[i].name(), err)
		}
		due[i] = time.Now().Add(s.tasks[i].interval())
	}
}

// RunOnce fires the named task immediately.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	i := slices.IndexFunc(s.tasks, func(t runner) bool { return t.name() == name })
	if i < 0 {
		return fmt.Errorf("unknown task %q", name)
	}
	return s.fire(ctx, s.tasks[i])
}

func (s *Scheduler) fire(ctx context.Context, t runner) (err error) {
	if l := t.locker(); l != nil {
		ok, lerr := l.TryLock(ctx)
		if lerr != nil {
			return fmt.Errorf("lock %s: %w", t.name(), lerr)
		}
		if !ok {
			log.WithFunc("monitor.fire").Warnf(ctx, "skip %s: lock held by another operation", t.name())
			return ErrBusy
		}
		defer l.Unlock(ctx) //nolint:errcheck
	}
	defer func() { metrics.ObserveTask(t.name(), err) }()
	return t.run(ctx)
}

func earliest(due []time.Time) int {
	best := 0
	for i := range due {
		if due[i].Before(due[best]) {
			best = i
		}
	}
	return best
}
