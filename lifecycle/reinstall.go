package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/container"
	"github.com/projecteru2/vpsbot/types"
)

// Confirmation is the first half of a two-step destructive operation.
type Confirmation struct {
	Token     string    `json:"token"`
	Container string    `json:"container"`
	ExpiresAt time.Time `json:"expires_at"`
}

type pendingReinstall struct {
	actor     string
	name      string
	expiresAt time.Time
}

// RequestReinstall checks that actor is the record's owner and returns a
// token that ConfirmReinstall accepts until the confirmation window lapses.
// Shared-access holders and admins acting on others' records are refused.
func (m *Manager) RequestReinstall(ctx context.Context, actor string, ref Ref) (Confirmation, error) {
	if err := m.admins.Authorize(ctx, actor, admin.TierUser); err != nil {
		return Confirmation{}, err
	}
	owner, _, rec, err := m.resolve(ctx, ref)
	if err != nil {
		return Confirmation{}, err
	}
	if err := checkReinstall(actor, owner, rec); err != nil {
		return Confirmation{}, err
	}

	now := m.clock()
	c := Confirmation{Token: uuid.NewString(), Container: rec.ContainerName, ExpiresAt: now.Add(m.conf.ConfirmWindow())}
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok, p := range m.pending {
		if now.After(p.expiresAt) {
			delete(m.pending, tok)
		}
	}
	m.pending[c.Token] = &pendingReinstall{actor: actor, name: rec.ContainerName, expiresAt: c.ExpiresAt}
	return c, nil
}

// CancelReinstall discards a pending confirmation.
func (m *Manager) CancelReinstall(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, token)
}

// ConfirmReinstall deletes the container and relaunches it from the default
// image with the record's original resources. created_at is reset.
// If the relaunch fails the record remains, marked stopped with the reason.
func (m *Manager) ConfirmReinstall(ctx context.Context, actor, token string) (out types.VPS, err error) {
	p, err := m.takePending(actor, token)
	if err != nil {
		observe(ctx, types.ActionReinstall, token, err)
		return out, err
	}
	defer func() { observe(ctx, types.ActionReinstall, p.name, err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierUser); err != nil {
		return out, err
	}

	err = m.locked(ctx, Ref{Name: p.name}, func(owner string, rec types.VPS) error {
		if err := checkReinstall(actor, owner, rec); err != nil {
			return err
		}
		memMB, err := rec.MemoryMB()
		if err != nil {
			return err
		}
		cpu, err := rec.CPUCount()
		if err != nil {
			return err
		}

		if err := m.runtime.Delete(ctx, rec.ContainerName, true); err != nil {
			return err
		}
		image := m.conf.DefaultImage
		if err := m.runtime.Launch(ctx, container.LaunchSpec{Name: rec.ContainerName, Image: image, MemoryMB: memMB, CPU: cpu}); err != nil {
			if _, serr := m.save(ctx, rec.ContainerName, func(r *types.VPS) {
				r.Touch(types.StatusStopped)
				r.StoppedBy, r.StoppedReason = actor, "reinstall failed: "+err.Error()
			}); serr != nil {
				return fmt.Errorf("relaunch: %w (recording failure: %v)", err, serr)
			}
			return fmt.Errorf("relaunch: %w", err)
		}
		out, err = m.save(ctx, rec.ContainerName, func(r *types.VPS) {
			r.Touch(types.StatusRunning)
			r.CreatedAt = r.LastUpdated
			r.OS = image
			r.CPU = strconv.Itoa(cpu)
			r.StoppedBy, r.StoppedReason = "", ""
			r.UpgradeError = ""
		})
		return err
	})
	return out, err
}

func (m *Manager) takePending(actor, token string) (*pendingReinstall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pending[token]
	if p == nil {
		return nil, fmt.Errorf("%w: confirmation %s", types.ErrNotFound, token)
	}
	if p.actor != actor {
		return nil, fmt.Errorf("%w: confirmation belongs to another user", types.ErrPermissionDenied)
	}
	delete(m.pending, token)
	if m.clock().After(p.expiresAt) {
		return nil, fmt.Errorf("%w: reinstall of %s", types.ErrConfirmationExpired, p.name)
	}
	return p, nil
}

// checkReinstall allows only the owner, and never on a suspended record.
func checkReinstall(actor, owner string, rec types.VPS) error {
	if actor != owner {
		return fmt.Errorf("%w: only the owner can reinstall %s", types.ErrPermissionDenied, rec.ContainerName)
	}
	if rec.Status == types.StatusSuspended {
		return fmt.Errorf("%w: %s is suspended", types.ErrPermissionDenied, rec.ContainerName)
	}
	return nil
}
