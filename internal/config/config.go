// Package config loads daemon settings from a .sleepshield config file
// and SLEEPSHIELD_* environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/eliteGoblin/sleepshield/internal/store"
)

// Config is the daemon configuration.
type Config struct {
	// ListenAddr is the localhost HTTP bind address.
	ListenAddr string

	// StoreBackend selects the state store implementation.
	StoreBackend string

	// StorePath is the on-disk location of the state store.
	StorePath string

	// TickInterval is the reset scheduler's check cadence.
	TickInterval time.Duration

	// ResetToleranceMinutes bounds how long after wake time the nightly
	// reset may still fire.
	ResetToleranceMinutes int

	// LogPath is the daemon log file. Empty logs to stderr.
	LogPath string
}

// Load reads the config file (if present) and the environment.
// Search order: $SLEEPSHIELD_CONFIG_PATH, the working directory, the
// home directory. A missing file is fine; defaults and env apply.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", "127.0.0.1:8377")
	v.SetDefault("store_backend", store.BackendDiskv)
	v.SetDefault("store_path", "~/.sleepshield/state")
	v.SetDefault("tick_interval", "1m")
	v.SetDefault("reset_tolerance_minutes", 5)
	v.SetDefault("log_path", "")

	v.SetConfigName(".sleepshield") // .yaml is implicit
	v.SetEnvPrefix("SLEEPSHIELD")
	v.AutomaticEnv()

	if override := v.GetString("config_path"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	v.AddConfigPath("$HOME")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	storePath, err := homedir.Expand(v.GetString("store_path"))
	if err != nil {
		return nil, fmt.Errorf("config: expand store path: %w", err)
	}
	logPath := v.GetString("log_path")
	if logPath != "" {
		if logPath, err = homedir.Expand(logPath); err != nil {
			return nil, fmt.Errorf("config: expand log path: %w", err)
		}
	}

	backend := strings.ToLower(v.GetString("store_backend"))
	if backend != store.BackendDiskv && backend != store.BackendSQLite {
		return nil, fmt.Errorf("config: unknown store backend %q", backend)
	}
	// The sqlite backend stores everything in one file; give it one.
	if backend == store.BackendSQLite && filepath.Ext(storePath) == "" {
		storePath = filepath.Join(storePath, "state.db")
	}

	tick := v.GetDuration("tick_interval")
	if tick <= 0 {
		return nil, fmt.Errorf("config: invalid tick_interval %q", v.GetString("tick_interval"))
	}
	tolerance := v.GetInt("reset_tolerance_minutes")
	if tolerance <= 0 {
		return nil, fmt.Errorf("config: reset_tolerance_minutes must be positive, got %d", tolerance)
	}

	return &Config{
		ListenAddr:            v.GetString("listen_addr"),
		StoreBackend:          backend,
		StorePath:             storePath,
		TickInterval:          tick,
		ResetToleranceMinutes: tolerance,
		LogPath:               logPath,
	}, nil
}
