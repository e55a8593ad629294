// Package lifecycle drives VPS records through their state machine, keeping
// the persisted declared state in step with the container runtime.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/container"
	"github.com/projecteru2/vpsbot/economy"
	"github.com/projecteru2/vpsbot/lock/keyed"
	"github.com/projecteru2/vpsbot/metrics"
	"github.com/projecteru2/vpsbot/protection"
	"github.com/projecteru2/vpsbot/repository"
	"github.com/projecteru2/vpsbot/types"
)

// SystemActor is recorded for transitions the engine performs on its own.
const SystemActor = "system"

// Ref identifies a record either by container name or by owner plus
// 1-based position in the owner's list.
type Ref struct {
	Owner string
	Index int
	Name  string
}

func (r Ref) String() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%s#%d", r.Owner, r.Index)
}

// Manager is the single entry point for lifecycle transitions.
type Manager struct {
	conf    *config.Config
	repo    *repository.Repository
	runtime container.Runtime
	economy *economy.Guard
	admins  *admin.Registry
	policy  *protection.Policy

	// locks serializes transitions and reconciliation per container name.
	locks *keyed.Set

	mu       sync.Mutex
	reserved map[string]struct{}
	pending  map[string]*pendingReinstall

	clock func() time.Time
}

// New wires a Manager.
func New(conf *config.Config, repo *repository.Repository, rt container.Runtime,
	eco *economy.Guard, admins *admin.Registry, policy *protection.Policy) *Manager {
	return &Manager{
		conf:     conf,
		repo:     repo,
		runtime:  rt,
		economy:  eco,
		admins:   admins,
		policy:   policy,
		locks:    keyed.New(),
		reserved: make(map[string]struct{}),
		pending:  make(map[string]*pendingReinstall),
		clock:    time.Now,
	}
}

// resolve returns a detached copy of the record ref points at.
func (m *Manager) resolve(ctx context.Context, ref Ref) (owner string, pos int, rec types.VPS, err error) {
	err = m.repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		if ref.Name != "" {
			var r *types.VPS
			if owner, pos, r = idx.Find(ref.Name); r == nil {
				return fmt.Errorf("%w: VPS %s", types.ErrNotFound, ref.Name)
			}
			rec = *r
			pos++
			return nil
		}
		r, err := idx.Get(ref.Owner, ref.Index)
		if err != nil {
			return err
		}
		owner, pos, rec = ref.Owner, ref.Index, *r
		return nil
	})
	return owner, pos, rec, err
}

// locked resolves ref, takes the record's key lock and re-reads the record
// under it, so fn always sees the latest declared state.
func (m *Manager) locked(ctx context.Context, ref Ref, fn func(owner string, rec types.VPS) error) error {
	_, _, rec, err := m.resolve(ctx, ref)
	if err != nil {
		return err
	}
	name := rec.ContainerName
	return m.locks.Do(ctx, name, func() error {
		owner, _, fresh, err := m.resolve(ctx, Ref{Name: name})
		if err != nil {
			return err
		}
		return fn(owner, fresh)
	})
}

// save applies mutate to the stored record named name and returns the result.
func (m *Manager) save(ctx context.Context, name string, mutate func(*types.VPS)) (types.VPS, error) {
	var out types.VPS
	err := m.repo.UpdateVPS(ctx, func(idx *types.VPSIndex) error {
		_, _, rec := idx.Find(name)
		if rec == nil {
			return fmt.Errorf("%w: VPS %s", types.ErrNotFound, name)
		}
		mutate(rec)
		out = *rec
		return nil
	})
	return out, err
}

// access checks that actor owns rec, holds shared access, or is an admin.
func (m *Manager) access(ctx context.Context, actor, owner string, rec types.VPS) error {
	if actor == owner || rec.IsSharedWith(actor) {
		return nil
	}
	ok, err := m.admins.IsAdmin(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s has no access to %s", types.ErrPermissionDenied, actor, rec.ContainerName)
	}
	return nil
}

// observe logs and counts the outcome of one lifecycle action.
func observe(ctx context.Context, action types.Action, target string, err error) {
	logger := log.WithFunc("lifecycle." + string(action))
	if err != nil {
		metrics.ObserveLifecycle(string(action), metrics.ResultError)
		logger.Warnf(ctx, "%s %s: %v", action, target, err)
		return
	}
	metrics.ObserveLifecycle(string(action), metrics.ResultOK)
	logger.Infof(ctx, "%s %s: ok", action, target)
}
