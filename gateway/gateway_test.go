package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/types"
)

func TestRunSuccess(t *testing.T) {
	res, err := New().Run(context.Background(), `sh -c 'echo "  hello world  "'`, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Output)
	assert.False(t, res.OK())
}

func TestRunEmptyOutputIsSuccessMarker(t *testing.T) {
	res, err := New().Run(context.Background(), "true", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		exitCode int
		stderr   string
	}{
		{"stderr captured", `sh -c 'echo "Error: not found" >&2; exit 3'`, 3, "Error: not found"},
		{"generic diagnostic", `sh -c 'exit 1'`, 1, noDiagnostic},
		{"missing binary", "definitely-not-a-real-binary-xyz", -1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Run(context.Background(), tt.line, 5*time.Second)
			var xerr *ExecutionError
			require.ErrorAs(t, err, &xerr)
			assert.Equal(t, tt.exitCode, xerr.ExitCode)
			assert.Equal(t, tt.line, xerr.Command)
			assert.NotEmpty(t, xerr.Stderr)
			if tt.stderr != "" {
				assert.Equal(t, tt.stderr, xerr.Stderr)
			}
		})
	}
}

func TestRunTimeoutKillsProcessGroup(t *testing.T) {
	start := time.Now()
	_, err := New().Run(context.Background(), `sh -c 'sleep 30 & sleep 30'`, 200*time.Millisecond)
	elapsed := time.Since(start)

	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 200*time.Millisecond, terr.Timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "200ms")
	assert.Less(t, elapsed, 5*time.Second)
}

func TestRunRejectsBadCommandLine(t *testing.T) {
	for _, line := range []string{"", "   ", `echo 'unterminated`} {
		_, err := New().Run(context.Background(), line, time.Second)
		assert.True(t, errors.Is(err, types.ErrInvalidInput), "line %q: %v", line, err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := New().Run(ctx, "sleep 30", time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubcommand(t *testing.T) {
	assert.Equal(t, "launch", subcommand([]string{"lxc", "launch", "ubuntu:22.04"}))
	assert.Equal(t, "lxc", subcommand([]string{"/usr/bin/lxc", "--version"}))
	assert.Equal(t, "which", subcommand([]string{"which"}))
}
