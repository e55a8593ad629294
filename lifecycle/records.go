package lifecycle

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/container"
	"github.com/projecteru2/vpsbot/types"
	"github.com/projecteru2/vpsbot/utils"
)

// Entry is a record together with where it lives in the index.
type Entry struct {
	Owner string    `json:"owner"`
	Index int       `json:"index"`
	VPS   types.VPS `json:"vps"`
}

// Detail is an Entry plus the live status reported by the runtime.
// Live may be "unknown" or "error"; those are never persisted.
type Detail struct {
	Entry
	Live      types.Status `json:"live"`
	LiveError string       `json:"live_error,omitempty"`
}

// FleetStats counts records by declared status.
type FleetStats struct {
	Users     int `json:"users"`
	Total     int `json:"total"`
	Running   int `json:"running"`
	Stopped   int `json:"stopped"`
	Suspended int `json:"suspended"`
	Upgrading int `json:"upgrading"`
}

// Delete removes the container, then the record. Admin only.
func (m *Manager) Delete(ctx context.Context, actor string, ref Ref) (err error) {
	defer func() { observe(ctx, types.ActionDelete, ref.String(), err) }()
	if err = m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return err
	}
	return m.locked(ctx, ref, func(_ string, rec types.VPS) error {
		if err := m.runtime.Delete(ctx, rec.ContainerName, true); err != nil {
			return err
		}
		return m.repo.UpdateVPS(ctx, func(idx *types.VPSIndex) error {
			if !idx.Remove(rec.ContainerName) {
				return fmt.Errorf("%w: VPS %s", types.ErrNotFound, rec.ContainerName)
			}
			return nil
		})
	})
}

// Share grants user access to operate the record. Ownership never moves.
func (m *Manager) Share(ctx context.Context, actor string, ref Ref, user string) (types.VPS, error) {
	return m.editSharing(ctx, actor, ref, user, func(list []string) ([]string, error) {
		out, added := utils.AppendUnique(list, user)
		if !added {
			return nil, fmt.Errorf("%w: already shared with %s", types.ErrAlreadyInState, user)
		}
		return out, nil
	})
}

// Unshare revokes access granted by Share.
func (m *Manager) Unshare(ctx context.Context, actor string, ref Ref, user string) (types.VPS, error) {
	return m.editSharing(ctx, actor, ref, user, func(list []string) ([]string, error) {
		out, removed := utils.RemoveValue(list, user)
		if !removed {
			return nil, fmt.Errorf("%w: not shared with %s", types.ErrNotFound, user)
		}
		return out, nil
	})
}

func (m *Manager) editSharing(ctx context.Context, actor string, ref Ref, user string, edit func([]string) ([]string, error)) (types.VPS, error) {
	var out types.VPS
	if err := m.admins.Authorize(ctx, actor, admin.TierUser); err != nil {
		return out, err
	}
	if user == "" {
		return out, fmt.Errorf("%w: missing user", types.ErrInvalidInput)
	}
	err := m.locked(ctx, ref, func(owner string, rec types.VPS) error {
		if actor != owner {
			return fmt.Errorf("%w: only the owner can change sharing", types.ErrPermissionDenied)
		}
		if user == owner {
			return fmt.Errorf("%w: cannot share with the owner", types.ErrInvalidInput)
		}
		list, err := edit(slices.Clone(rec.SharedWith))
		if err != nil {
			return err
		}
		out, err = m.save(ctx, rec.ContainerName, func(r *types.VPS) {
			r.SharedWith = list
			r.LastUpdated = types.Now()
		})
		return err
	})
	return out, err
}

// List returns owner's records. Users see their own; admins see anyone's.
func (m *Manager) List(ctx context.Context, actor, owner string) ([]Entry, error) {
	if err := m.admins.Authorize(ctx, actor, admin.TierUser); err != nil {
		return nil, err
	}
	if actor != owner {
		if err := m.admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
			return nil, err
		}
	}
	return m.Owned(ctx, owner)
}

// Owned returns owner's records without an access check, for read-only surfaces.
func (m *Manager) Owned(ctx context.Context, owner string) ([]Entry, error) {
	out := []Entry{}
	return out, m.repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		for i, r := range idx.Users[owner] {
			out = append(out, Entry{Owner: owner, Index: i + 1, VPS: *r})
		}
		return nil
	})
}

// ListShared returns the records other owners shared with user.
func (m *Manager) ListShared(ctx context.Context, user string) ([]Entry, error) {
	if err := m.admins.Authorize(ctx, user, admin.TierUser); err != nil {
		return nil, err
	}
	var out []Entry
	err := m.repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		for owner, list := range idx.Users {
			for i, r := range list {
				if r != nil && r.IsSharedWith(user) {
					out = append(out, Entry{Owner: owner, Index: i + 1, VPS: *r})
				}
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b Entry) int {
		return cmp.Or(strings.Compare(a.Owner, b.Owner), cmp.Compare(a.Index, b.Index))
	})
	return out, err
}

// Get returns one record actor may see.
func (m *Manager) Get(ctx context.Context, actor string, ref Ref) (Entry, error) {
	if err := m.admins.Authorize(ctx, actor, admin.TierUser); err != nil {
		return Entry{}, err
	}
	owner, pos, rec, err := m.resolve(ctx, ref)
	if err != nil {
		return Entry{}, err
	}
	if err := m.access(ctx, actor, owner, rec); err != nil {
		return Entry{}, err
	}
	return Entry{Owner: owner, Index: pos, VPS: rec}, nil
}

// Inspect is Get plus a live status query. A failed query is reported, not
// returned as an error.
func (m *Manager) Inspect(ctx context.Context, actor string, ref Ref) (Detail, error) {
	e, err := m.Get(ctx, actor, ref)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Entry: e}
	live, err := m.runtime.Status(ctx, e.VPS.ContainerName)
	d.Live = live
	if err != nil {
		d.LiveError = err.Error()
	}
	return d, nil
}

// OpenTerminal starts a remote shell session in a running container.
func (m *Manager) OpenTerminal(ctx context.Context, actor string, ref Ref) (*container.Terminal, error) {
	e, err := m.Get(ctx, actor, ref)
	if err != nil {
		return nil, err
	}
	if e.VPS.Status != types.StatusRunning {
		return nil, fmt.Errorf("%w: %s is %s", types.ErrInvalidInput, e.VPS.ContainerName, e.VPS.Status)
	}
	return m.runtime.OpenTerminal(ctx, e.VPS.ContainerName)
}

// Stats counts the fleet by declared status.
func (m *Manager) Stats(ctx context.Context) (FleetStats, error) {
	var s FleetStats
	return s, m.repo.WithVPS(ctx, func(idx *types.VPSIndex) error {
		s.Users = len(idx.Users)
		idx.Each(func(_ string, r *types.VPS) {
			s.Total++
			switch r.Status {
			case types.StatusRunning:
				s.Running++
			case types.StatusStopped:
				s.Stopped++
			case types.StatusSuspended:
				s.Suspended++
			case types.StatusUpgrading:
				s.Upgrading++
			case types.StatusUnknown, types.StatusError:
			}
		})
		return nil
	})
}
