package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/projecteru2/vpsbot/container"
	"github.com/projecteru2/vpsbot/gateway"
	"github.com/projecteru2/vpsbot/types"
)

// fakeRuntime records every call and fails the operations listed in fail.
type fakeRuntime struct {
	mu        sync.Mutex
	calls     []string
	fail      map[string]error
	live      map[string]types.Status
	statusErr map[string]error
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		fail:      map[string]error{},
		live:      map[string]types.Status{},
		statusErr: map[string]error{},
	}
}

func execErr(line string) error {
	return &gateway.ExecutionError{Command: line, ExitCode: 1, Stderr: "Error: boom"}
}

func (f *fakeRuntime) record(op, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)
	return f.fail[op]
}

func (f *fakeRuntime) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRuntime) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeRuntime) Type() string { return "fake" }

func (f *fakeRuntime) Launch(_ context.Context, s container.LaunchSpec) error {
	return f.record("launch", fmt.Sprintf("launch %s %s %dMB cpu=%d", s.Name, s.Image, s.MemoryMB, s.CPU))
}

func (f *fakeRuntime) Start(_ context.Context, name string) error {
	return f.record("start", "start "+name)
}

func (f *fakeRuntime) Stop(_ context.Context, name string, force bool) error {
	line := "stop " + name
	if force {
		line += " --force"
	}
	return f.record("stop", line)
}

func (f *fakeRuntime) Delete(_ context.Context, name string, _ bool) error {
	return f.record("delete", "delete "+name)
}

func (f *fakeRuntime) Status(_ context.Context, name string) (types.Status, error) {
	if err := f.record("status", "status "+name); err != nil {
		return types.StatusError, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statusErr[name]; err != nil {
		return types.StatusError, err
	}
	if s, ok := f.live[name]; ok {
		return s, nil
	}
	return types.StatusUnknown, nil
}

func (f *fakeRuntime) SetMemory(_ context.Context, name string, mb int64) error {
	return f.record("memory", fmt.Sprintf("memory %s %dMB", name, mb))
}

func (f *fakeRuntime) SetCPU(_ context.Context, name string, cpu int) error {
	return f.record("cpu", fmt.Sprintf("cpu %s %d", name, cpu))
}

func (f *fakeRuntime) StopAll(_ context.Context, force bool) error {
	return f.record("stopall", fmt.Sprintf("stopall force=%v", force))
}

func (f *fakeRuntime) OpenTerminal(_ context.Context, name string) (*container.Terminal, error) {
	if err := f.record("terminal", "terminal "+name); err != nil {
		return nil, err
	}
	return &container.Terminal{Session: "session-test", SSH: "ssh x@tmate.io"}, nil
}
