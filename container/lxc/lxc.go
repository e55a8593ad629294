// Package lxc implements container.Runtime on top of the lxc command-line tool.
package lxc

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/container"
	"github.com/projecteru2/vpsbot/gateway"
	"github.com/projecteru2/vpsbot/types"
	"github.com/projecteru2/vpsbot/utils"
)

const typ = "lxc"

var _ container.Runtime = (*LXC)(nil)

// LXC drives containers through the gateway. Command lines are built here
// and nowhere else.
type LXC struct {
	runner      gateway.Runner
	binary      string
	pool        string
	timeout     time.Duration
	stopTimeout time.Duration

	// terminal polling; overridden in tests.
	linkTimeout  time.Duration
	linkInterval time.Duration
}

// New creates an LXC backend running commands through runner.
func New(conf *config.Config, runner gateway.Runner) *LXC {
	return &LXC{
		runner:       runner,
		binary:       conf.LXCBinary,
		pool:         conf.StoragePool,
		timeout:      conf.CommandTimeout(),
		stopTimeout:  conf.StopTimeout(),
		linkTimeout:  30 * time.Second, //nolint:mnd
		linkInterval: time.Second,
	}
}

func (l *LXC) Type() string { return typ }

func (l *LXC) Launch(ctx context.Context, spec container.LaunchSpec) error {
	if spec.Name == "" || spec.Image == "" || spec.MemoryMB <= 0 || spec.CPU <= 0 {
		return fmt.Errorf("%w: launch spec %+v", types.ErrInvalidInput, spec)
	}
	line := fmt.Sprintf("%s launch %s %s --config limits.memory=%dMB --config limits.cpu=%d -s %s",
		l.binary, spec.Image, spec.Name, spec.MemoryMB, spec.CPU, l.pool)
	return l.run(ctx, line, l.timeout)
}

func (l *LXC) Start(ctx context.Context, name string) error {
	return l.run(ctx, fmt.Sprintf("%s start %s", l.binary, name), l.timeout)
}

func (l *LXC) Stop(ctx context.Context, name string, force bool) error {
	line := fmt.Sprintf("%s stop %s", l.binary, name)
	if force {
		line += " --force"
	}
	return l.run(ctx, line, l.stopTimeout)
}

func (l *LXC) Delete(ctx context.Context, name string, force bool) error {
	line := fmt.Sprintf("%s delete %s", l.binary, name)
	if force {
		line += " --force"
	}
	return l.run(ctx, line, l.timeout)
}

func (l *LXC) SetMemory(ctx context.Context, name string, memoryMB int64) error {
	if memoryMB <= 0 {
		return fmt.Errorf("%w: memory %dMB", types.ErrInvalidInput, memoryMB)
	}
	return l.run(ctx, fmt.Sprintf("%s config set %s limits.memory %dMB", l.binary, name, memoryMB), l.timeout)
}

func (l *LXC) SetCPU(ctx context.Context, name string, cpu int) error {
	if cpu <= 0 {
		return fmt.Errorf("%w: cpu %d", types.ErrInvalidInput, cpu)
	}
	return l.run(ctx, fmt.Sprintf("%s config set %s limits.cpu %d", l.binary, name, cpu), l.timeout)
}

func (l *LXC) StopAll(ctx context.Context, force bool) error {
	line := l.binary + " stop --all"
	if force {
		line += " --force"
	}
	return l.run(ctx, line, l.stopTimeout)
}

// Status runs "lxc info" and reads its "Status:" line.
func (l *LXC) Status(ctx context.Context, name string) (types.Status, error) {
	res, err := l.runner.Run(ctx, fmt.Sprintf("%s info %s", l.binary, name), l.timeout)
	if err != nil {
		return types.StatusError, err
	}
	return parseStatus(res.Output), nil
}

func parseStatus(output string) types.Status {
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "status") {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "running":
			return types.StatusRunning
		case "stopped":
			return types.StatusStopped
		}
		return types.StatusUnknown
	}
	return types.StatusUnknown
}

// OpenTerminal makes sure tmate is installed in the container, starts a
// detached session and waits for its ssh connect string.
func (l *LXC) OpenTerminal(ctx context.Context, name string) (*container.Terminal, error) {
	logger := log.WithFunc("lxc.OpenTerminal")
	exec := func(args string) (gateway.Result, error) {
		return l.runner.Run(ctx, fmt.Sprintf("%s exec %s -- %s", l.binary, name, args), l.timeout)
	}

	if _, err := exec("which tmate"); err != nil {
		logger.Infof(ctx, "tmate missing in %s, installing", name)
		if _, err := exec("sudo apt-get update -y"); err != nil {
			return nil, fmt.Errorf("install tmate: %w", err)
		}
		if _, err := exec("sudo apt-get install tmate -y"); err != nil {
			return nil, fmt.Errorf("install tmate: %w", err)
		}
	}

	session := "session-" + uuid.NewString()[:8]
	sock := fmt.Sprintf("/tmp/%s.sock", session)
	if _, err := exec(fmt.Sprintf("tmate -S %s new-session -d", sock)); err != nil {
		return nil, fmt.Errorf("start tmate session: %w", err)
	}

	link, err := utils.Poll(ctx, l.linkTimeout, l.linkInterval, func(context.Context) (string, bool, error) {
		res, err := exec(fmt.Sprintf("tmate -S %s display -p '#{tmate_ssh}'", sock))
		if err != nil {
			return "", false, nil //nolint:nilerr // session may still be connecting
		}
		return res.Output, res.Output != "", nil
	})
	if err != nil {
		return nil, fmt.Errorf("wait for ssh link of %s: %w", session, err)
	}
	return &container.Terminal{Session: session, SSH: link}, nil
}

func (l *LXC) run(ctx context.Context, line string, timeout time.Duration) error {
	_, err := l.runner.Run(ctx, line, timeout)
	return err
}
