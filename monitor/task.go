package monitor

import (
	"context"
	"time"

	"github.com/projecteru2/vpsbot/lock"
)

// Task is one periodic job. Sample reads the state the job acts on and Act
// reacts to it; S is the sample type.
type Task[S any] struct {
	Name     string
	Interval time.Duration

	// Locker is optional. When set, a tick whose TryLock fails is skipped
	// and retried on the next interval.
	Locker lock.Locker

	Sample func(ctx context.Context) (S, error)
	// Act is optional.
	Act func(ctx context.Context, sample S) error
}

// runner is the internal interface Scheduler uses to hold heterogeneous
// Task[S] values.
type runner interface {
	name() string
	interval() time.Duration
	locker() lock.Locker
	run(ctx context.Context) error
}

func (t Task[S]) name() string            { return t.Name }
func (t Task[S]) interval() time.Duration { return t.Interval }
func (t Task[S]) locker() lock.Locker     { return t.Locker }

func (t Task[S]) run(ctx context.Context) error {
	s, err := t.Sample(ctx)
	if err != nil {
		return err
	}
	if t.Act == nil {
		return nil
	}
	return t.Act(ctx, s)
}
