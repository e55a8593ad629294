package types

import (
	"slices"
	"strings"
)

// AdminConfig is the persisted administrative state.
type AdminConfig struct {
	Admins          []string        `json:"admins"`
	PurgeProtection PurgeProtection `json:"purge_protection"`
	CustomPlans     CustomPlans     `json:"custom_plans"`
	Maintenance     bool            `json:"maintenance"`
}

// PurgeProtection exempts users from bulk stop operations.
// ProtectedVPS is an informational counter, not reconciled against the index.
type PurgeProtection struct {
	Enabled        bool     `json:"enabled"`
	ProtectedUsers []string `json:"protected_users"`
	ProtectedVPS   int      `json:"protected_vps"`
}

// CustomPlans are admin-defined plans grouped by how they are obtained.
type CustomPlans struct {
	Paid   []Plan `json:"paid"`
	Boost  []Plan `json:"boost"`
	Invite []Plan `json:"invite"`
}

// Plan is a purchasable or claimable resource bundle.
type Plan struct {
	Name        string    `json:"name"                  validate:"required,max=64"`
	Type        PlanType  `json:"type"                  validate:"required,oneof=paid free-boost free-invite custom"`
	RAMGB       int       `json:"ram"                   validate:"gt=0"`
	CPU         int       `json:"cpu"                   validate:"gt=0"`
	StorageGB   int       `json:"storage"               validate:"gt=0"`
	PriceIntel  int64     `json:"price_intel,omitempty" validate:"gte=0"`
	PriceAMD    int64     `json:"price_amd,omitempty"   validate:"gte=0"`
	Boosts      int       `json:"boosts,omitempty"      validate:"gte=0"`
	Invites     int       `json:"invites,omitempty"     validate:"gte=0"`
	Description string    `json:"description,omitempty" validate:"max=256"`
	CreatedAt   Timestamp `json:"created_at"`
	Builtin     bool      `json:"-"`
}

// Price returns the plan's price for the named processor ("intel" or "amd").
func (p Plan) Price(processor string) (int64, bool) {
	switch strings.ToLower(processor) {
	case "intel":
		return p.PriceIntel, true
	case "amd":
		return p.PriceAMD, true
	}
	return 0, false
}

// ForSale reports whether the plan is bought with credits.
func (p Plan) ForSale() bool {
	return p.Type == PlanPaid || p.Type == PlanCustom
}

// NewAdminConfig returns the default document for a fresh deployment.
func NewAdminConfig(mainAdmin string, protectionEnabled bool) AdminConfig {
	cfg := AdminConfig{}
	cfg.Seed(mainAdmin, protectionEnabled)
	return cfg
}

// Init implements storage.Initer.
func (c *AdminConfig) Init() {
	if c.Admins == nil {
		c.Admins = []string{}
	}
	if c.PurgeProtection.ProtectedUsers == nil {
		c.PurgeProtection.ProtectedUsers = []string{}
	}
	if c.CustomPlans.Paid == nil {
		c.CustomPlans.Paid = []Plan{}
	}
	if c.CustomPlans.Boost == nil {
		c.CustomPlans.Boost = []Plan{}
	}
	if c.CustomPlans.Invite == nil {
		c.CustomPlans.Invite = []Plan{}
	}
}

// Seed applies first-run defaults when the document has never listed an admin.
// The main admin is always present in Admins afterwards.
func (c *AdminConfig) Seed(mainAdmin string, protectionEnabled bool) {
	c.Init()
	if len(c.Admins) == 0 {
		c.PurgeProtection.Enabled = protectionEnabled
	}
	if mainAdmin != "" && !slices.Contains(c.Admins, mainAdmin) {
		c.Admins = append([]string{mainAdmin}, c.Admins...)
	}
}

// IsProtected reports whether user is on the protected list.
func (p *PurgeProtection) IsProtected(user string) bool {
	return slices.Contains(p.ProtectedUsers, user)
}

// PlansOf returns the custom plan bucket for t.
func (cp *CustomPlans) PlansOf(t PlanType) *[]Plan {
	switch t {
	case PlanPaid, PlanCustom:
		return &cp.Paid
	case PlanFreeBoost:
		return &cp.Boost
	case PlanFreeInvite:
		return &cp.Invite
	}
	return nil
}
