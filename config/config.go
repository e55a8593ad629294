package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	coretypes "github.com/projecteru2/core/types"
)

// Collection file names under RootDir.
const (
	AccountsFile = "accounts.json"
	VPSFile      = "vps.json"
	AdminFile    = "admin.json"

	reconcileLock = "reconcile.lock"
)

// Config holds global vpsbot configuration.
type Config struct {
	// RootDir holds the three collection files and their lock files.
	RootDir string `json:"root_dir" mapstructure:"root_dir" validate:"required"`

	// LXCBinary is the container-management CLI invoked by the gateway.
	LXCBinary string `json:"lxc_binary" mapstructure:"lxc_binary" validate:"required"`
	// DefaultImage is used by reinstall and when a create request names no OS.
	DefaultImage string `json:"default_image" mapstructure:"default_image" validate:"required"`
	// StoragePool is passed to launch as "-s <pool>".
	StoragePool string `json:"storage_pool_driver" mapstructure:"storage_pool_driver" validate:"required"`

	// MainAdmin is the immutable top administrator.
	MainAdmin   string `json:"main_admin" mapstructure:"main_admin" validate:"required"`
	Maintenance bool   `json:"maintenance" mapstructure:"maintenance"`

	CommandTimeoutSeconds int `json:"command_timeout_seconds" mapstructure:"command_timeout_seconds" validate:"gt=0"`
	StopTimeoutSeconds    int `json:"stop_timeout_seconds" mapstructure:"stop_timeout_seconds" validate:"gt=0"`

	ReconcileIntervalSeconds int  `json:"reconcile_interval_seconds" mapstructure:"reconcile_interval_seconds" validate:"gt=0"`
	AutoReconcile            bool `json:"auto_reconcile" mapstructure:"auto_reconcile"`

	CPUThreshold            float64 `json:"cpu_threshold" mapstructure:"cpu_threshold" validate:"gt=0,lte=100"`
	CPUCheckIntervalSeconds int     `json:"cpu_check_interval_seconds" mapstructure:"cpu_check_interval_seconds" validate:"gt=0"`
	CPUGuardEnabled         bool    `json:"cpu_guard_enabled" mapstructure:"cpu_guard_enabled"`

	// PurgeProtection is the initial protection state for a fresh admin document.
	PurgeProtection bool `json:"purge_protection" mapstructure:"purge_protection"`

	ConfirmWindowSeconds int `json:"confirm_window_seconds" mapstructure:"confirm_window_seconds" validate:"gt=0"`

	// PoolSize bounds concurrent status queries during reconciliation.
	// Defaults to runtime.NumCPU() if zero.
	PoolSize int `json:"pool_size" mapstructure:"pool_size"`

	ListenAddr string `json:"listen_addr" mapstructure:"listen_addr" validate:"required,hostname_port"`

	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:                  "/var/lib/vpsbot",
		LXCBinary:                "lxc",
		DefaultImage:             "ubuntu:22.04",
		StoragePool:              "dir",
		CommandTimeoutSeconds:    120, //nolint:mnd
		StopTimeoutSeconds:       120, //nolint:mnd
		ReconcileIntervalSeconds: 300, //nolint:mnd
		AutoReconcile:            true,
		CPUThreshold:             90, //nolint:mnd
		CPUCheckIntervalSeconds:  60, //nolint:mnd
		CPUGuardEnabled:          true,
		PurgeProtection:          true,
		ConfirmWindowSeconds:     60, //nolint:mnd
		PoolSize:                 runtime.NumCPU(),
		ListenAddr:               "127.0.0.1:9180",
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500, //nolint:mnd
			MaxAge:     28,  //nolint:mnd
			MaxBackups: 3,   //nolint:mnd
		},
	}
}

// Validate checks field constraints and fills derived defaults.
func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		c.PoolSize = runtime.NumCPU()
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) AccountsPath() string { return filepath.Join(c.RootDir, AccountsFile) }
func (c *Config) VPSPath() string      { return filepath.Join(c.RootDir, VPSFile) }
func (c *Config) AdminPath() string    { return filepath.Join(c.RootDir, AdminFile) }

// ReconcileLockPath keeps a CLI reconcile and the serve loop from running
// passes at the same time.
func (c *Config) ReconcileLockPath() string { return filepath.Join(c.RootDir, reconcileLock) }

// LockPath returns the sidecar lock file for a collection file.
func LockPath(dataPath string) string { return dataPath + ".lock" }

func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

func (c *Config) CPUCheckInterval() time.Duration {
	return time.Duration(c.CPUCheckIntervalSeconds) * time.Second
}

func (c *Config) ConfirmWindow() time.Duration {
	return time.Duration(c.ConfirmWindowSeconds) * time.Second
}
