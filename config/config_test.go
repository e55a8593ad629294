package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := DefaultConfig()
	c.MainAdmin = "1001"
	return c
}

func TestDefaultsValidate(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, "lxc", c.LXCBinary)
	assert.Equal(t, "ubuntu:22.04", c.DefaultImage)
	assert.Equal(t, 120, c.CommandTimeoutSeconds)
	assert.InDelta(t, 90, c.CPUThreshold, 0)
	assert.Positive(t, c.PoolSize)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no main admin", func(c *Config) { c.MainAdmin = "" }},
		{"zero timeout", func(c *Config) { c.CommandTimeoutSeconds = 0 }},
		{"threshold above 100", func(c *Config) { c.CPUThreshold = 101 }},
		{"threshold zero", func(c *Config) { c.CPUThreshold = 0 }},
		{"negative interval", func(c *Config) { c.ReconcileIntervalSeconds = -1 }},
		{"bad listen addr", func(c *Config) { c.ListenAddr = "nowhere" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPaths(t *testing.T) {
	c := validConfig()
	c.RootDir = "/data"
	assert.Equal(t, filepath.Join("/data", "vps.json"), c.VPSPath())
	assert.Equal(t, "/data/vps.json.lock", LockPath(c.VPSPath()))
	c.PoolSize = 0
	require.NoError(t, c.Validate())
	assert.Positive(t, c.PoolSize)
}
