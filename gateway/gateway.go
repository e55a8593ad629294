// Package gateway runs the external container-management tool and normalizes
// its outcome into output, *ExecutionError or *TimeoutError.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/metrics"
	"github.com/projecteru2/vpsbot/types"
	"github.com/projecteru2/vpsbot/utils"
)

// pipeGrace bounds how long Wait keeps reading pipes held open by
// descendants after the direct child has exited.
const pipeGrace = 2 * time.Second

// Result is the outcome of a successful invocation.
type Result struct {
	// Output is the trimmed standard output.
	Output string
}

// OK reports a successful run that produced no output, the tool's plain
// success marker.
func (r Result) OK() bool { return r.Output == "" }

// Runner executes one command line with a hard timeout. No retries.
type Runner interface {
	Run(ctx context.Context, commandLine string, timeout time.Duration) (Result, error)
}

var _ Runner = (*Exec)(nil)

// Exec runs commands as child processes, each in its own process group.
type Exec struct{}

// New returns an Exec runner.
func New() *Exec { return &Exec{} }

// Run splits commandLine with shell quoting rules, runs it, and waits at most
// timeout. On timeout the whole process group is killed and reaped.
func (e *Exec) Run(ctx context.Context, commandLine string, timeout time.Duration) (Result, error) {
	logger := log.WithFunc("gateway.Run")

	args, err := shellwords.Parse(commandLine)
	if err != nil {
		return Result{}, fmt.Errorf("%w: command line %q: %v", types.ErrInvalidInput, commandLine, err)
	}
	if len(args) == 0 {
		return Result{}, fmt.Errorf("%w: empty command line", types.ErrInvalidInput)
	}
	sub := subcommand(args)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec // command lines are built by container/lxc
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeGrace
	utils.NewProcessGroup(cmd)

	logger.Infof(ctx, "exec: %s", commandLine)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.ObserveGateway(sub, metrics.ResultError, time.Since(start))
		logger.Warnf(ctx, "exec failed: %s: %v", commandLine, err)
		return Result{}, &ExecutionError{Command: commandLine, ExitCode: -1, Stderr: err.Error(), Wrapped: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-timer.C:
		killAndReap(ctx, cmd, done)
		metrics.ObserveGateway(sub, metrics.ResultTimeout, time.Since(start))
		terr := &TimeoutError{Command: commandLine, Timeout: timeout}
		logger.Warnf(ctx, "exec failed: %v", terr)
		return Result{}, terr
	case <-ctx.Done():
		killAndReap(ctx, cmd, done)
		metrics.ObserveGateway(sub, metrics.ResultError, time.Since(start))
		logger.Warnf(ctx, "exec abandoned: %s: %v", commandLine, ctx.Err())
		return Result{}, fmt.Errorf("%s: %w", commandLine, ctx.Err())
	}
	elapsed := time.Since(start)

	if waitErr != nil {
		xerr := &ExecutionError{Command: commandLine, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Wrapped: waitErr}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			xerr.ExitCode = exitErr.ExitCode()
		}
		if xerr.Stderr == "" {
			xerr.Stderr = noDiagnostic
		}
		metrics.ObserveGateway(sub, metrics.ResultError, elapsed)
		logger.Warnf(ctx, "exec failed: %s: %s", commandLine, xerr.Stderr)
		return Result{}, xerr
	}

	metrics.ObserveGateway(sub, metrics.ResultOK, elapsed)
	return Result{Output: strings.TrimSpace(stdout.String())}, nil
}

func killAndReap(ctx context.Context, cmd *exec.Cmd, done <-chan error) {
	if err := utils.KillProcessGroup(cmd); err != nil {
		log.WithFunc("gateway.killAndReap").Warnf(ctx, "kill process group %d: %v", cmd.Process.Pid, err)
	}
	<-done
}

// subcommand picks a low-cardinality metrics label: "lxc launch ..." -> "launch".
func subcommand(args []string) string {
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		return args[1]
	}
	return filepath.Base(args[0])
}
