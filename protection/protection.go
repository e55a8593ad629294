// Package protection decides which users bulk stops must leave alone.
package protection

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/repository"
	"github.com/projecteru2/vpsbot/types"
	"github.com/projecteru2/vpsbot/utils"
)

// Policy manages the purge-protection record in the admin collection.
type Policy struct {
	repo   *repository.Repository
	admins *admin.Registry
}

// New creates a Policy.
func New(repo *repository.Repository, admins *admin.Registry) *Policy {
	return &Policy{repo: repo, admins: admins}
}

// Protect exempts user from bulk stops and adds the number of records user
// owns right now to the protected-VPS counter. It returns that count.
func (p *Policy) Protect(ctx context.Context, actor, user string) (int, error) {
	if err := p.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return 0, err
	}
	count, err := p.ownedCount(ctx, user)
	if err != nil {
		return 0, err
	}
	if err := p.repo.UpdateAdmin(ctx, func(cfg *types.AdminConfig) error {
		pp := &cfg.PurgeProtection
		var added bool
		if pp.ProtectedUsers, added = utils.AppendUnique(pp.ProtectedUsers, user); !added {
			return fmt.Errorf("%w: %s is already protected", types.ErrAlreadyInState, user)
		}
		pp.ProtectedVPS += count
		return nil
	}); err != nil {
		return 0, err
	}
	log.WithFunc("protection.Protect").Infof(ctx, "%s protected by %s (%d VPS)", user, actor, count)
	return count, nil
}

// Unprotect is the inverse of Protect. The counter never drops below zero.
func (p *Policy) Unprotect(ctx context.Context, actor, user string) (int, error) {
	if err := p.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return 0, err
	}
	count, err := p.ownedCount(ctx, user)
	if err != nil {
		return 0, err
	}
	if err := p.repo.UpdateAdmin(ctx, func(cfg *types.AdminConfig) error {
		pp := &cfg.PurgeProtection
		var removed bool
		if pp.ProtectedUsers, removed = utils.RemoveValue(pp.ProtectedUsers, user); !removed {
			return fmt.Errorf("%w: %s is not protected", types.ErrNotFound, user)
		}
		pp.ProtectedVPS = max(pp.ProtectedVPS-count, 0)
		return nil
	}); err != nil {
		return 0, err
	}
	log.WithFunc("protection.Unprotect").Infof(ctx, "%s unprotected by %s (%d VPS)", user, actor, count)
	return count, nil
}

// Enable turns the policy on. Main admin only.
func (p *Policy) Enable(ctx context.Context, actor string) error {
	return p.setEnabled(ctx, actor, true)
}

// Disable turns the policy off; bulk stops then touch every user. Main admin only.
func (p *Policy) Disable(ctx context.Context, actor string) error {
	return p.setEnabled(ctx, actor, false)
}

func (p *Policy) setEnabled(ctx context.Context, actor string, on bool) error {
	if err := p.admins.Authorize(ctx, actor, admin.TierMain); err != nil {
		return err
	}
	return p.repo.UpdateAdmin(ctx, func(cfg *types.AdminConfig) error {
		cfg.PurgeProtection.Enabled = on
		return nil
	})
}

// Info returns a copy of the protection record.
func (p *Policy) Info(ctx context.Context) (types.PurgeProtection, error) {
	var out types.PurgeProtection
	return out, p.repo.WithAdmin(ctx, func(cfg *types.AdminConfig) error {
		out = cfg.PurgeProtection
		out.ProtectedUsers = append([]string{}, cfg.PurgeProtection.ProtectedUsers...)
		return nil
	})
}

// IsBulkOperationAllowedFor reports whether a bulk stop may act on user's records.
func (p *Policy) IsBulkOperationAllowedFor(ctx context.Context, user string) (bool, error) {
	info, err := p.Info(ctx)
	if err != nil {
		return false, err
	}
	return Allowed(info, user), nil
}

// Allowed evaluates the policy against a snapshot, for callers checking many users.
func Allowed(info types.PurgeProtection, user string) bool {
	return !info.Enabled || !info.IsProtected(user)
}

func (p *Policy) ownedCount(ctx context.Context, user string) (int, error) {
	var n int
	return n, p.repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		n = idx.Count(user)
		return nil
	})
}
