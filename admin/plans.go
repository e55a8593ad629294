package admin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/projecteru2/vpsbot/types"
)

var validate = validator.New()

// builtinPlans is the fixed catalog. Paid plans carry Intel and AMD prices.
var builtinPlans = []types.Plan{
	{Name: "Starter", Type: types.PlanPaid, RAMGB: 4, CPU: 1, StorageGB: 10, PriceIntel: 42, PriceAMD: 83, Builtin: true},
	{Name: "Basic", Type: types.PlanPaid, RAMGB: 8, CPU: 1, StorageGB: 10, PriceIntel: 96, PriceAMD: 164, Builtin: true},
	{Name: "Standard", Type: types.PlanPaid, RAMGB: 12, CPU: 2, StorageGB: 10, PriceIntel: 192, PriceAMD: 320, Builtin: true},
	{Name: "Pro", Type: types.PlanPaid, RAMGB: 16, CPU: 2, StorageGB: 10, PriceIntel: 220, PriceAMD: 340, Builtin: true},
	{Name: "Boost Starter", Type: types.PlanFreeBoost, RAMGB: 2, CPU: 1, StorageGB: 5, Boosts: 1, Builtin: true},
	{Name: "Boost Basic", Type: types.PlanFreeBoost, RAMGB: 4, CPU: 1, StorageGB: 10, Boosts: 2, Builtin: true},
	{Name: "Invite Starter", Type: types.PlanFreeInvite, RAMGB: 1, CPU: 1, StorageGB: 5, Invites: 5, Builtin: true},
	{Name: "Invite Basic", Type: types.PlanFreeInvite, RAMGB: 2, CPU: 1, StorageGB: 8, Invites: 10, Builtin: true},
}

// ListPlans returns built-in plans followed by custom ones.
func (r *Registry) ListPlans(ctx context.Context) ([]types.Plan, error) {
	out := slices.Clone(builtinPlans)
	return out, r.repo.WithAdmin(ctx, func(cfg *types.AdminConfig) error {
		out = append(out, cfg.CustomPlans.Paid...)
		out = append(out, cfg.CustomPlans.Boost...)
		out = append(out, cfg.CustomPlans.Invite...)
		return nil
	})
}

// FindPlan looks a plan up by case-insensitive name.
func (r *Registry) FindPlan(ctx context.Context, name string) (types.Plan, error) {
	plans, err := r.ListPlans(ctx)
	if err != nil {
		return types.Plan{}, err
	}
	for _, p := range plans {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return types.Plan{}, fmt.Errorf("%w: plan %q", types.ErrNotFound, name)
}

// AddPlan stores a custom plan. Names must be unique across the catalog.
func (r *Registry) AddPlan(ctx context.Context, actor string, plan types.Plan) error {
	if err := r.Authorize(ctx, actor, TierAdmin); err != nil {
		return err
	}
	plan.Name = strings.TrimSpace(plan.Name)
	plan.Builtin = false
	if err := validate.Struct(plan); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	if plan.ForSale() {
		// A single price covers both processors.
		switch {
		case plan.PriceIntel == 0 && plan.PriceAMD == 0:
			return fmt.Errorf("%w: plan %q is sold but has no price", types.ErrInvalidInput, plan.Name)
		case plan.PriceIntel == 0:
			plan.PriceIntel = plan.PriceAMD
		case plan.PriceAMD == 0:
			plan.PriceAMD = plan.PriceIntel
		}
	}
	if _, err := r.FindPlan(ctx, plan.Name); err == nil {
		return fmt.Errorf("%w: plan %q exists", types.ErrAlreadyInState, plan.Name)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = types.Now()
	}
	return r.repo.UpdateAdmin(ctx, func(cfg *types.AdminConfig) error {
		bucket := cfg.CustomPlans.PlansOf(plan.Type)
		*bucket = append(*bucket, plan)
		return nil
	})
}

// RemovePlan deletes a custom plan by name. Built-in plans cannot be removed.
func (r *Registry) RemovePlan(ctx context.Context, actor, name string) error {
	if err := r.Authorize(ctx, actor, TierAdmin); err != nil {
		return err
	}
	for _, p := range builtinPlans {
		if strings.EqualFold(p.Name, name) {
			return fmt.Errorf("%w: %q is a built-in plan", types.ErrPermissionDenied, p.Name)
		}
	}
	return r.repo.UpdateAdmin(ctx, func(cfg *types.AdminConfig) error {
		for _, bucket := range []*[]types.Plan{&cfg.CustomPlans.Paid, &cfg.CustomPlans.Boost, &cfg.CustomPlans.Invite} {
			n := len(*bucket)
			*bucket = slices.DeleteFunc(*bucket, func(p types.Plan) bool { return strings.EqualFold(p.Name, name) })
			if len(*bucket) != n {
				return nil
			}
		}
		return fmt.Errorf("%w: plan %q", types.ErrNotFound, name)
	})
}
