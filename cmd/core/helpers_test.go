package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/lifecycle"
	"github.com/projecteru2/vpsbot/types"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		arg  string
		want lifecycle.Ref
		err  bool
	}{
		{"vps-bob-1", lifecycle.Ref{Name: "vps-bob-1"}, false},
		{"42#2", lifecycle.Ref{Owner: "42", Index: 2}, false},
		{"42#0", lifecycle.Ref{}, true},
		{"#1", lifecycle.Ref{}, true},
		{"42#x", lifecycle.Ref{}, true},
		{"  ", lifecycle.Ref{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseRef(tt.arg)
			if tt.err {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActorDefaultsToMainAdmin(t *testing.T) {
	conf := config.DefaultConfig()
	conf.MainAdmin = "1"
	assert.Equal(t, "1", BaseHandler{}.Actor(conf))
	assert.Equal(t, "42", BaseHandler{ActorProvider: func() string { return " 42 " }}.Actor(conf))
}

func TestConfirmFrom(t *testing.T) {
	for in, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		var out bytes.Buffer
		got, err := confirmFrom(strings.NewReader(in), &out, "proceed?")
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
		assert.Contains(t, out.String(), "proceed? [y/N]")
	}
}

func TestFormatMemory(t *testing.T) {
	assert.Equal(t, "8GiB", FormatMemory("8GB"))
	assert.Equal(t, "512MiB", FormatMemory("512MB"))
	assert.Equal(t, "lots", FormatMemory("lots"))
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	PrintEntries(&buf, []lifecycle.Entry{{Owner: "42", Index: 1, VPS: types.VPS{
		ContainerName: "vps-bob-1", Plan: "Basic", Status: types.StatusRunning, CPU: "2", RAM: "8GB", Storage: "10GB",
	}}})
	out := buf.String()
	assert.Contains(t, out, "42#1")
	assert.Contains(t, out, "vps-bob-1")
	assert.Contains(t, out, "8GiB")
}
