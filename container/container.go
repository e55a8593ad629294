// Package container defines the runtime contract the lifecycle manager drives.
package container

import (
	"context"

	"github.com/projecteru2/vpsbot/types"
)

// LaunchSpec describes a new container.
type LaunchSpec struct {
	Name     string
	Image    string
	MemoryMB int64
	CPU      int
}

// Terminal is a remote shell session opened inside a container.
type Terminal struct {
	Session string `json:"session"`
	SSH     string `json:"ssh"`
}

// Runtime manages containers on the host. Each backend (e.g. lxc) implements
// this interface. Every method performs external calls and none retries.
type Runtime interface {
	Type() string

	Launch(ctx context.Context, spec LaunchSpec) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string, force bool) error
	Delete(ctx context.Context, name string, force bool) error
	// Status returns the live status. A failed query returns
	// (types.StatusError, err); unrecognized output returns types.StatusUnknown.
	Status(ctx context.Context, name string) (types.Status, error)
	SetMemory(ctx context.Context, name string, memoryMB int64) error
	SetCPU(ctx context.Context, name string, cpu int) error
	// StopAll stops every container on the host.
	StopAll(ctx context.Context, force bool) error
	OpenTerminal(ctx context.Context, name string) (*Terminal, error)
}
