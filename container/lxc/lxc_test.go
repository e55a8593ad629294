package lxc

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/container"
	"github.com/projecteru2/vpsbot/gateway"
	"github.com/projecteru2/vpsbot/types"
)

// scriptedRunner answers command lines by prefix and records every call.
type scriptedRunner struct {
	mu       sync.Mutex
	calls    []string
	timeouts []time.Duration
	replies  map[string]func() (gateway.Result, error)
}

func (r *scriptedRunner) Run(_ context.Context, line string, timeout time.Duration) (gateway.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, line)
	r.timeouts = append(r.timeouts, timeout)
	r.mu.Unlock()
	for prefix, reply := range r.replies {
		if strings.HasPrefix(line, prefix) {
			return reply()
		}
	}
	return gateway.Result{}, nil
}

func newLXC(r gateway.Runner) *LXC {
	conf := config.DefaultConfig()
	conf.StopTimeoutSeconds = 90
	l := New(conf, r)
	l.linkTimeout = time.Second
	l.linkInterval = 10 * time.Millisecond
	return l
}

func TestCommandLines(t *testing.T) {
	r := &scriptedRunner{}
	l := newLXC(r)
	ctx := context.Background()

	require.NoError(t, l.Launch(ctx, container.LaunchSpec{Name: "vps-bob-1", Image: "ubuntu:22.04", MemoryMB: 8192, CPU: 2}))
	require.NoError(t, l.Start(ctx, "vps-bob-1"))
	require.NoError(t, l.Stop(ctx, "vps-bob-1", false))
	require.NoError(t, l.Stop(ctx, "vps-bob-1", true))
	require.NoError(t, l.SetMemory(ctx, "vps-bob-1", 4096))
	require.NoError(t, l.SetCPU(ctx, "vps-bob-1", 3))
	require.NoError(t, l.Delete(ctx, "vps-bob-1", true))
	require.NoError(t, l.StopAll(ctx, true))

	assert.Equal(t, []string{
		"lxc launch ubuntu:22.04 vps-bob-1 --config limits.memory=8192MB --config limits.cpu=2 -s dir",
		"lxc start vps-bob-1",
		"lxc stop vps-bob-1",
		"lxc stop vps-bob-1 --force",
		"lxc config set vps-bob-1 limits.memory 4096MB",
		"lxc config set vps-bob-1 limits.cpu 3",
		"lxc delete vps-bob-1 --force",
		"lxc stop --all --force",
	}, r.calls)
	assert.Equal(t, 90*time.Second, r.timeouts[2])
	assert.Equal(t, 120*time.Second, r.timeouts[0])
}

func TestLaunchRejectsNonPositive(t *testing.T) {
	r := &scriptedRunner{}
	l := newLXC(r)
	err := l.Launch(context.Background(), container.LaunchSpec{Name: "x", Image: "ubuntu:22.04", MemoryMB: 0, CPU: 1})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.ErrorIs(t, l.SetCPU(context.Background(), "x", 0), types.ErrInvalidInput)
	assert.Empty(t, r.calls)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		reply  func() (gateway.Result, error)
		want   types.Status
		hasErr bool
	}{
		{"running", ok("Name: vps-a-1\nStatus: RUNNING\nType: container"), types.StatusRunning, false},
		{"stopped", ok("Name: vps-a-1\nStatus: Stopped"), types.StatusStopped, false},
		{"frozen", ok("Status: Frozen"), types.StatusUnknown, false},
		{"no status line", ok("Name: vps-a-1"), types.StatusUnknown, false},
		{"query failed", func() (gateway.Result, error) {
			return gateway.Result{}, &gateway.ExecutionError{Command: "lxc info", ExitCode: 1, Stderr: "Error: not found"}
		}, types.StatusError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &scriptedRunner{replies: map[string]func() (gateway.Result, error){"lxc info": tt.reply}}
			got, err := newLXC(r).Status(context.Background(), "vps-a-1")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.hasErr, err != nil)
			assert.Equal(t, []string{"lxc info vps-a-1"}, r.calls)
		})
	}
}

func TestOpenTerminalInstallsTmate(t *testing.T) {
	polls := 0
	r := &scriptedRunner{replies: map[string]func() (gateway.Result, error){
		"lxc exec vps-a-1 -- which tmate": func() (gateway.Result, error) {
			return gateway.Result{}, &gateway.ExecutionError{ExitCode: 1, Stderr: "command failed with no error output"}
		},
		"lxc exec vps-a-1 -- tmate -S": func() (gateway.Result, error) {
			polls++
			if polls < 3 { // new-session, then one empty display
				return gateway.Result{}, nil
			}
			return gateway.Result{Output: "ssh abc@lon1.tmate.io"}, nil
		},
	}}
	term, err := newLXC(r).OpenTerminal(context.Background(), "vps-a-1")
	require.NoError(t, err)
	assert.Equal(t, "ssh abc@lon1.tmate.io", term.SSH)
	assert.True(t, strings.HasPrefix(term.Session, "session-"))

	assert.Equal(t, "lxc exec vps-a-1 -- sudo apt-get update -y", r.calls[1])
	assert.Equal(t, "lxc exec vps-a-1 -- sudo apt-get install tmate -y", r.calls[2])
	assert.Contains(t, r.calls[3], "new-session -d")
	assert.Contains(t, r.calls[len(r.calls)-1], `display -p '#{tmate_ssh}'`)
}

func TestOpenTerminalTimesOut(t *testing.T) {
	r := &scriptedRunner{}
	_, err := newLXC(r).OpenTerminal(context.Background(), "vps-a-1")
	assert.Error(t, err)
}

func ok(out string) func() (gateway.Result, error) {
	return func() (gateway.Result, error) { return gateway.Result{Output: out}, nil }
}
