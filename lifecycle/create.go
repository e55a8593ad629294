package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/container"
	"github.com/projecteru2/vpsbot/types"
)

// CreateRequest is an admin request for a container with explicit resources.
type CreateRequest struct {
	Actor     string
	Owner     string
	OwnerName string
	RAMGB     int
	CPU       int
	DiskGB    int
	OS        string
	Plan      string
	PlanType  types.PlanType
}

// BuyRequest is a user purchasing a paid plan with credits.
type BuyRequest struct {
	Owner     string
	OwnerName string
	Plan      string
	Processor string
	OS        string
}

// provision carries everything needed to launch and record one container.
type provision struct {
	owner     string
	ownerName string
	ramGB     int
	cpu       int
	diskGB    int
	image     string
	record    types.VPS
}

// Create launches a container for req.Owner and appends its record.
// Nothing is persisted if the launch fails.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (rec types.VPS, err error) {
	defer func() { observe(ctx, types.ActionCreate, req.Owner, err) }()
	if err = m.admins.Authorize(ctx, req.Actor, admin.TierAdmin); err != nil {
		return rec, err
	}
	if err = validateResources(req.RAMGB, req.CPU, req.DiskGB); err != nil {
		return rec, err
	}
	if req.Owner == "" {
		return rec, fmt.Errorf("%w: missing owner", types.ErrInvalidInput)
	}
	planType := req.PlanType
	if planType == "" {
		planType = types.PlanCustom
	}
	plan := req.Plan
	if plan == "" {
		plan = "Custom"
	}
	return m.provision(ctx, provision{
		owner: req.Owner, ownerName: req.OwnerName,
		ramGB: req.RAMGB, cpu: req.CPU, diskGB: req.DiskGB, image: req.OS,
		record: types.VPS{Plan: plan, PlanType: planType, CreatedBy: req.Actor},
	})
}

// Deploy is Create with resources taken from a catalog plan.
func (m *Manager) Deploy(ctx context.Context, actor, owner, ownerName, planName, image string) (rec types.VPS, err error) {
	defer func() { observe(ctx, types.ActionCreate, owner, err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return rec, err
	}
	if owner == "" {
		return rec, fmt.Errorf("%w: missing owner", types.ErrInvalidInput)
	}
	plan, err := m.admins.FindPlan(ctx, planName)
	if err != nil {
		return rec, err
	}
	return m.provision(ctx, provision{
		owner: owner, ownerName: ownerName,
		ramGB: plan.RAMGB, cpu: plan.CPU, diskGB: plan.StorageGB, image: image,
		record: types.VPS{Plan: plan.Name, PlanType: plan.Type, CreatedBy: actor, DeployedBy: actor},
	})
}

// Buy charges the plan price, launches, and refunds if the launch fails.
func (m *Manager) Buy(ctx context.Context, req BuyRequest) (rec types.VPS, err error) {
	defer func() { observe(ctx, types.ActionCreate, req.Owner, err) }()
	if err = m.admins.Authorize(ctx, req.Owner, admin.TierUser); err != nil {
		return rec, err
	}
	plan, err := m.admins.FindPlan(ctx, req.Plan)
	if err != nil {
		return rec, err
	}
	if !plan.ForSale() {
		return rec, fmt.Errorf("%w: plan %q is not for sale", types.ErrInvalidInput, plan.Name)
	}
	price, ok := plan.Price(req.Processor)
	if !ok {
		return rec, fmt.Errorf("%w: unknown processor %q", types.ErrInvalidInput, req.Processor)
	}
	if price <= 0 {
		return rec, fmt.Errorf("%w: plan %q has no %s price", types.ErrInvalidInput, plan.Name, req.Processor)
	}
	if err = m.economy.Charge(ctx, req.Owner, price); err != nil {
		return rec, err
	}

	rec, err = m.provision(ctx, provision{
		owner: req.Owner, ownerName: req.OwnerName,
		ramGB: plan.RAMGB, cpu: plan.CPU, diskGB: plan.StorageGB, image: req.OS,
		record: types.VPS{
			Plan: plan.Name, PlanType: plan.Type, CreatedBy: req.Owner,
			Processor: strings.ToLower(req.Processor), PurchasedWith: "credits", Cost: price,
		},
	})
	if err != nil {
		if rerr := m.economy.Refund(ctx, req.Owner, price); rerr != nil {
			return rec, errors.Join(err, fmt.Errorf("refund %d credits: %w", price, rerr))
		}
		return rec, err
	}
	return rec, nil
}

// provision reserves a name, launches the container and appends the record.
func (m *Manager) provision(ctx context.Context, p provision) (types.VPS, error) {
	logger := log.WithFunc("lifecycle.provision")
	if p.image == "" {
		p.image = m.conf.DefaultImage
	}
	name, err := m.reserveName(ctx, p.owner, p.ownerName)
	if err != nil {
		return types.VPS{}, err
	}
	defer m.release(name)

	var out types.VPS
	err = m.locks.Do(ctx, name, func() error {
		if err := m.runtime.Launch(ctx, container.LaunchSpec{
			Name: name, Image: p.image, MemoryMB: int64(p.ramGB) * 1024, CPU: p.cpu, //nolint:mnd
		}); err != nil {
			return err
		}
		now := types.Now()
		rec := p.record
		rec.ContainerName = name
		rec.OS = p.image
		rec.RAM = types.FormatGB(p.ramGB)
		rec.CPU = strconv.Itoa(p.cpu)
		rec.Storage = types.FormatGB(p.diskGB)
		rec.Status = types.StatusRunning
		rec.CreatedAt = now
		rec.LastUpdated = now
		rec.SharedWith = []string{}
		if err := m.repo.UpdateVPS(ctx, func(idx *types.VPSIndex) error {
			idx.Users[p.owner] = append(idx.Users[p.owner], &rec)
			return nil
		}); err != nil {
			logger.Errorf(ctx, err, "container %s launched but its record was not saved", name)
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

// reserveName picks vps-<owner name>-<n> with n = owned count + 1, stepping
// past names already used anywhere or reserved by an in-flight launch.
func (m *Manager) reserveName(ctx context.Context, owner, ownerName string) (string, error) {
	base := "vps-" + sanitizeName(ownerName, owner)
	var name string
	err := m.repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		for n := idx.Count(owner) + 1; ; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
			if _, busy := m.reserved[name]; !busy && !idx.NameTaken(name) {
				m.reserved[name] = struct{}{}
				return nil
			}
		}
	})
	return name, err
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, name)
}

// sanitizeName lowercases and replaces spaces with underscores. The owner id
// is used when no display name is known.
func sanitizeName(ownerName, owner string) string {
	s := strings.TrimSpace(ownerName)
	if s == "" {
		s = owner
	}
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}

func validateResources(ramGB, cpu, diskGB int) error {
	if ramGB <= 0 || cpu <= 0 || diskGB <= 0 {
		return fmt.Errorf("%w: ram=%d cpu=%d disk=%d must be positive", types.ErrInvalidInput, ramGB, cpu, diskGB)
	}
	return nil
}
