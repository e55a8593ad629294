package types

import "fmt"

// Status is the lifecycle state of a VPS as declared in the store.
type Status string

const (
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusSuspended Status = "suspended"
	// StatusUpgrading is persisted between the stop and the final start of an
	// upgrade. A record left in this state had its upgrade interrupted.
	StatusUpgrading Status = "upgrading"

	// Query-time overlays. The lifecycle manager never persists these.
	StatusUnknown Status = "unknown"
	StatusError   Status = "error"
)

// Declared reports whether s may be stored as the declared state of a record.
func (s Status) Declared() bool {
	switch s {
	case StatusRunning, StatusStopped, StatusSuspended, StatusUpgrading:
		return true
	case StatusUnknown, StatusError:
		return false
	}
	return false
}

// Held reports whether s is an administrative hold that a stopped container
// is consistent with (the container is expected to be down).
func (s Status) Held() bool {
	return s == StatusSuspended || s == StatusUpgrading
}

// PlanType classifies how a VPS was provisioned.
type PlanType string

const (
	PlanPaid       PlanType = "paid"
	PlanFreeBoost  PlanType = "free-boost"
	PlanFreeInvite PlanType = "free-invite"
	PlanCustom     PlanType = "custom"
)

// ParsePlanType accepts the canonical names plus the short catalog aliases
// ("boost", "invite") used by the plan commands.
func ParsePlanType(s string) (PlanType, error) {
	switch s {
	case string(PlanPaid):
		return PlanPaid, nil
	case string(PlanFreeBoost), "boost":
		return PlanFreeBoost, nil
	case string(PlanFreeInvite), "invite":
		return PlanFreeInvite, nil
	case string(PlanCustom):
		return PlanCustom, nil
	}
	return "", fmt.Errorf("%w: unknown plan type %q", ErrInvalidInput, s)
}

// Action names a lifecycle transition.
type Action string

const (
	ActionCreate    Action = "create"
	ActionStart     Action = "start"
	ActionStop      Action = "stop"
	ActionSuspend   Action = "suspend"
	ActionUnsuspend Action = "unsuspend"
	ActionUpgrade   Action = "upgrade"
	ActionReinstall Action = "reinstall"
	ActionDelete    Action = "delete"
	ActionBulkStop  Action = "bulk-stop"
	ActionReconcile Action = "reconcile"
)

// Actions lists every lifecycle action, in declaration order.
var Actions = []Action{
	ActionCreate, ActionStart, ActionStop, ActionSuspend, ActionUnsuspend,
	ActionUpgrade, ActionReinstall, ActionDelete, ActionBulkStop, ActionReconcile,
}

// AdminOnly reports whether the action requires an administrator.
func (a Action) AdminOnly() bool {
	switch a {
	case ActionCreate, ActionSuspend, ActionUnsuspend, ActionUpgrade, ActionDelete, ActionBulkStop, ActionReconcile:
		return true
	case ActionStart, ActionStop, ActionReinstall:
		return false
	}
	return true
}
