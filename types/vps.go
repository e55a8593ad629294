package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
)

// VPS is the persisted record of one provisioned container and its declared state.
// Ownership is the key under which the record is stored in VPSIndex.
type VPS struct {
	ContainerName string   `json:"container_name"`
	Plan          string   `json:"plan"`
	PlanType      PlanType `json:"plan_type,omitempty"`
	OS            string   `json:"os,omitempty"`

	RAM     string `json:"ram"`     // e.g. "8GB"
	CPU     string `json:"cpu"`     // core count, e.g. "2"
	Storage string `json:"storage"` // e.g. "10GB"

	Status      Status    `json:"status"`
	CreatedAt   Timestamp `json:"created_at"`
	LastUpdated Timestamp `json:"last_updated"`

	SuspendedAt   *Timestamp `json:"suspended_at,omitempty"`
	SuspendedBy   string     `json:"suspended_by,omitempty"`
	UpgradedAt    *Timestamp `json:"upgraded_at,omitempty"`
	UpgradedBy    string     `json:"upgraded_by,omitempty"`
	UpgradeError  string     `json:"upgrade_error,omitempty"`
	StoppedReason string     `json:"stopped_reason,omitempty"`
	StoppedBy     string     `json:"stopped_by,omitempty"`

	SharedWith []string `json:"shared_with"`

	// Provenance.
	CreatedBy     string `json:"created_by,omitempty"`
	DeployedBy    string `json:"deployed_by,omitempty"`
	Processor     string `json:"processor,omitempty"`
	PurchasedWith string `json:"purchased_with,omitempty"`
	Cost          int64  `json:"cost,omitempty"`
}

// Touch sets the declared status and bumps LastUpdated.
func (v *VPS) Touch(status Status) {
	v.Status = status
	v.LastUpdated = Now()
}

// ClearSuspension drops the suspension marks once the record leaves the
// suspended state.
func (v *VPS) ClearSuspension() {
	v.SuspendedAt, v.SuspendedBy = nil, ""
}

// IsSharedWith reports whether user holds shared (non-owning) access.
func (v *VPS) IsSharedWith(user string) bool {
	return slices.Contains(v.SharedWith, user)
}

// MemoryMB returns the RAM limit in MiB parsed from v.RAM.
func (v *VPS) MemoryMB() (int64, error) {
	return SizeMB(v.RAM)
}

// CPUCount returns v.CPU as an integer.
func (v *VPS) CPUCount() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.CPU))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: cpu %q", ErrInvalidInput, v.CPU)
	}
	return n, nil
}

// FormatGB renders a whole number of gigabytes the way records store it ("8GB").
func FormatGB(n int) string {
	return strconv.Itoa(n) + "GB"
}

// SizeMB parses a size string such as "8GB" or "512MB" into MiB.
// A bare number is read as gigabytes, matching how plans are written.
func SizeMB(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if _, err := strconv.Atoi(s); err == nil {
		s += "GB"
	}
	b, err := units.RAMInBytes(s)
	if err != nil || b <= 0 {
		return 0, fmt.Errorf("%w: size %q", ErrInvalidInput, s)
	}
	return b >> 20, nil //nolint:mnd
}

// VPSIndex maps a user identifier to the ordered list of VPS records it owns.
// On disk it is a plain JSON object of user -> list.
type VPSIndex struct {
	Users map[string][]*VPS

	warnings []string
}

// Init implements storage.Initer.
func (idx *VPSIndex) Init() {
	if idx.Users == nil {
		idx.Users = make(map[string][]*VPS)
	}
}

// Warnings returns the problems found while normalizing the loaded data.
func (idx *VPSIndex) Warnings() []string { return idx.warnings }

func (idx VPSIndex) MarshalJSON() ([]byte, error) {
	if idx.Users == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(idx.Users)
}

// UnmarshalJSON accepts the current list shape and the legacy shapes:
// a single record object, or an object of records keyed by arbitrary sub-ids
// (flattened in file order). Anything else is skipped with a warning.
func (idx *VPSIndex) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	idx.Users = make(map[string][]*VPS, len(raw))
	idx.warnings = nil
	for uid, v := range raw {
		list, err := normalizeUserVPS(v)
		if err != nil {
			idx.warnings = append(idx.warnings, fmt.Sprintf("user %s: %v, skipping", uid, err))
			continue
		}
		idx.Users[uid] = list
	}
	return nil
}

func normalizeUserVPS(v json.RawMessage) ([]*VPS, error) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '[':
		var list []*VPS
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return slices.DeleteFunc(list, func(r *VPS) bool { return r == nil }), nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, fmt.Errorf("decode object: %w", err)
		}
		if _, ok := probe["container_name"]; ok {
			var one VPS
			if err := json.Unmarshal(trimmed, &one); err != nil {
				return nil, fmt.Errorf("decode record: %w", err)
			}
			return []*VPS{&one}, nil
		}
		values, err := orderedValues(trimmed)
		if err != nil {
			return nil, err
		}
		list := make([]*VPS, 0, len(values))
		for _, rv := range values {
			var rec VPS
			if err := json.Unmarshal(rv, &rec); err != nil {
				return nil, fmt.Errorf("decode keyed record: %w", err)
			}
			list = append(list, &rec)
		}
		return list, nil
	}
	return nil, fmt.Errorf("unknown VPS data format")
}

// orderedValues returns the member values of a JSON object in file order.
func orderedValues(obj []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Find locates a record by container name.
func (idx *VPSIndex) Find(containerName string) (owner string, pos int, rec *VPS) {
	for uid, list := range idx.Users {
		for i, r := range list {
			if r != nil && r.ContainerName == containerName {
				return uid, i, r
			}
		}
	}
	return "", -1, nil
}

// Get returns the record at 1-based position n in owner's list.
func (idx *VPSIndex) Get(owner string, n int) (*VPS, error) {
	list := idx.Users[owner]
	if n < 1 || n > len(list) || list[n-1] == nil {
		return nil, fmt.Errorf("%w: VPS #%d of user %s", ErrNotFound, n, owner)
	}
	return list[n-1], nil
}

// NameTaken reports whether any record already uses containerName.
func (idx *VPSIndex) NameTaken(containerName string) bool {
	_, _, rec := idx.Find(containerName)
	return rec != nil
}

// Each calls fn for every record in the index.
func (idx *VPSIndex) Each(fn func(owner string, rec *VPS)) {
	for uid, list := range idx.Users {
		for _, r := range list {
			if r != nil {
				fn(uid, r)
			}
		}
	}
}

// Count returns the number of records owned by user.
func (idx *VPSIndex) Count(user string) int {
	return len(idx.Users[user])
}

// Remove deletes the record named containerName and reports whether it existed.
// Owners left with no records keep an empty list.
func (idx *VPSIndex) Remove(containerName string) bool {
	owner, pos, rec := idx.Find(containerName)
	if rec == nil {
		return false
	}
	idx.Users[owner] = slices.Delete(idx.Users[owner], pos, pos+1)
	return true
}
