// Package admin holds the administrator registry, the maintenance gate and
// the plan catalog.
package admin

import (
	"context"
	"fmt"
	"slices"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/repository"
	"github.com/projecteru2/vpsbot/types"
	"github.com/projecteru2/vpsbot/utils"
)

// Tier is the authorization level a command requires.
type Tier int

const (
	TierUser Tier = iota
	TierAdmin
	TierMain
)

func (t Tier) String() string {
	switch t {
	case TierUser:
		return "user"
	case TierAdmin:
		return "admin"
	case TierMain:
		return "main admin"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Registry answers who may do what.
type Registry struct {
	repo *repository.Repository
	// forceMaintenance is the configured maintenance flag; it ORs with the
	// persisted one.
	forceMaintenance bool
}

// New creates a Registry. forceMaintenance keeps maintenance on regardless
// of the persisted flag.
func New(repo *repository.Repository, forceMaintenance bool) *Registry {
	return &Registry{repo: repo, forceMaintenance: forceMaintenance}
}

// IsMainAdmin reports whether user is the immutable main administrator.
func (r *Registry) IsMainAdmin(user string) bool {
	return user != "" && user == r.repo.MainAdmin()
}

// IsAdmin reports whether user is the main admin or a listed admin.
func (r *Registry) IsAdmin(ctx context.Context, user string) (bool, error) {
	if r.IsMainAdmin(user) {
		return true, nil
	}
	var ok bool
	return ok, r.repo.WithAdmin(ctx, func(cfg *types.AdminConfig) error {
		ok = slices.Contains(cfg.Admins, user)
		return nil
	})
}

// Maintenance reports whether maintenance mode is on.
func (r *Registry) Maintenance(ctx context.Context) (bool, error) {
	if r.forceMaintenance {
		return true, nil
	}
	var on bool
	return on, r.repo.WithAdmin(ctx, func(cfg *types.AdminConfig) error {
		on = cfg.Maintenance
		return nil
	})
}

// MaintenanceExempt reports whether actor may act right now. Only the main
// admin passes while maintenance is on.
func (r *Registry) MaintenanceExempt(ctx context.Context, actor string) (bool, error) {
	if r.IsMainAdmin(actor) {
		return true, nil
	}
	on, err := r.Maintenance(ctx)
	return !on, err
}

// Authorize applies the maintenance gate, then checks that actor holds tier.
func (r *Registry) Authorize(ctx context.Context, actor string, tier Tier) error {
	if actor == "" {
		return fmt.Errorf("%w: missing actor", types.ErrInvalidInput)
	}
	exempt, err := r.MaintenanceExempt(ctx, actor)
	if err != nil {
		return err
	}
	if !exempt {
		return types.ErrMaintenance
	}
	switch tier {
	case TierUser:
		return nil
	case TierMain:
		if r.IsMainAdmin(actor) {
			return nil
		}
	case TierAdmin:
		ok, err := r.IsAdmin(ctx, actor)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires %s", types.ErrPermissionDenied, actor, tier)
}

// SetMaintenance toggles the persisted maintenance flag. Main admin only.
func (r *Registry) SetMaintenance(ctx context.Context, actor string, on bool) error {
	if !r.IsMainAdmin(actor) {
		return fmt.Errorf("%w: maintenance is main admin only", types.ErrPermissionDenied)
	}
	if err := r.repo.UpdateAdmin(ctx, func(cfg *types.AdminConfig) error {
		cfg.Maintenance = on
		return nil
	}); err != nil {
		return err
	}
	log.WithFunc("admin.SetMaintenance").Infof(ctx, "maintenance set to %v by %s", on, actor)
	return nil
}

// AddAdmin lists user as an administrator. Main admin only.
func (r *Registry) AddAdmin(ctx context.Context, actor, user string) error {
	if err := r.Authorize(ctx, actor, TierMain); err != nil {
		return err
	}
	if user == "" {
		return fmt.Errorf("%w: empty user", types.ErrInvalidInput)
	}
	return r.repo.UpdateAdmin(ctx, func(cfg *types.AdminConfig) error {
		var added bool
		if cfg.Admins, added = utils.AppendUnique(cfg.Admins, user); !added {
			return fmt.Errorf("%w: %s is already an admin", types.ErrAlreadyInState, user)
		}
		return nil
	})
}

// RemoveAdmin delists user. The main admin cannot be removed.
func (r *Registry) RemoveAdmin(ctx context.Context, actor, user string) error {
	if err := r.Authorize(ctx, actor, TierMain); err != nil {
		return err
	}
	if r.IsMainAdmin(user) {
		return fmt.Errorf("%w: the main admin cannot be removed", types.ErrPermissionDenied)
	}
	return r.repo.UpdateAdmin(ctx, func(cfg *types.AdminConfig) error {
		var removed bool
		if cfg.Admins, removed = utils.RemoveValue(cfg.Admins, user); !removed {
			return fmt.Errorf("%w: %s is not an admin", types.ErrNotFound, user)
		}
		return nil
	})
}

// ListAdmins returns the administrators, main admin first.
func (r *Registry) ListAdmins(ctx context.Context) ([]string, error) {
	var out []string
	return out, r.repo.WithAdmin(ctx, func(cfg *types.AdminConfig) error {
		out = slices.Clone(cfg.Admins)
		return nil
	})
}
