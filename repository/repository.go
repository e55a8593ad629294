// Package repository owns the three persisted collections. Every mutation of
// accounts, VPS records or admin state goes through it.
package repository

import (
	"context"
	"fmt"

	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/storage"
	storejson "github.com/projecteru2/vpsbot/storage/json"
	"github.com/projecteru2/vpsbot/types"
	"github.com/projecteru2/vpsbot/utils"
)

// Repository gives locked access to each collection. There is no
// transaction spanning collections.
type Repository struct {
	accounts storage.Store[types.AccountIndex]
	vps      storage.Store[types.VPSIndex]
	admin    storage.Store[types.AdminConfig]

	mainAdmin         string
	defaultProtection bool
}

// New opens the collections under conf.RootDir.
func New(conf *config.Config) (*Repository, error) {
	if err := utils.EnsureDirs(conf.RootDir); err != nil {
		return nil, fmt.Errorf("ensure dirs: %w", err)
	}
	return &Repository{
		accounts:          storejson.New[types.AccountIndex](config.LockPath(conf.AccountsPath()), conf.AccountsPath()),
		vps:               storejson.New[types.VPSIndex](config.LockPath(conf.VPSPath()), conf.VPSPath()),
		admin:             storejson.New[types.AdminConfig](config.LockPath(conf.AdminPath()), conf.AdminPath()),
		mainAdmin:         conf.MainAdmin,
		defaultProtection: conf.PurgeProtection,
	}, nil
}

// MainAdmin returns the immutable main administrator.
func (r *Repository) MainAdmin() string { return r.mainAdmin }

func (r *Repository) WithAccounts(ctx context.Context, fn func(*types.AccountIndex) error) error {
	return r.accounts.With(ctx, fn)
}

func (r *Repository) UpdateAccounts(ctx context.Context, fn func(*types.AccountIndex) error) error {
	return r.accounts.Update(ctx, fn)
}

// GetOrCreateAccount returns user's account, persisting a zero-balance
// account first if none exists.
func (r *Repository) GetOrCreateAccount(ctx context.Context, user string) (types.Account, error) {
	var acct types.Account
	var exists bool
	if err := r.accounts.With(ctx, func(idx *types.AccountIndex) error {
		var a *types.Account
		if a, exists = (*idx)[user]; exists && a != nil {
			acct = *a
		}
		return nil
	}); err != nil {
		return acct, err
	}
	if exists {
		return acct, nil
	}
	return acct, r.accounts.Update(ctx, func(idx *types.AccountIndex) error {
		acct = *idx.GetOrCreate(user)
		return nil
	})
}

func (r *Repository) WithVPS(ctx context.Context, fn func(*types.VPSIndex) error) error {
	return r.vps.With(ctx, fn)
}

func (r *Repository) UpdateVPS(ctx context.Context, fn func(*types.VPSIndex) error) error {
	return r.vps.Update(ctx, fn)
}

// WithAdmin passes the admin document with first-run defaults applied.
func (r *Repository) WithAdmin(ctx context.Context, fn func(*types.AdminConfig) error) error {
	return r.admin.With(ctx, func(cfg *types.AdminConfig) error {
		cfg.Seed(r.mainAdmin, r.defaultProtection)
		return fn(cfg)
	})
}

// UpdateAdmin is WithAdmin followed by a save when fn succeeds.
func (r *Repository) UpdateAdmin(ctx context.Context, fn func(*types.AdminConfig) error) error {
	return r.admin.Update(ctx, func(cfg *types.AdminConfig) error {
		cfg.Seed(r.mainAdmin, r.defaultProtection)
		return fn(cfg)
	})
}

// VPSStore exposes the record collection for callers that coordinate with
// TryLock, such as the scheduler.
func (r *Repository) VPSStore() storage.Store[types.VPSIndex] { return r.vps }
