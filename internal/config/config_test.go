package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/sleepshield/internal/store"
)

// chtemp moves the working directory to a fresh temp dir so no stray
// .sleepshield file leaks into the test.
func chtemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// TestLoad_Defaults verifies the out-of-the-box configuration
func TestLoad_Defaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8377", cfg.ListenAddr)
	assert.Equal(t, store.BackendDiskv, cfg.StoreBackend)
	assert.Equal(t, time.Minute, cfg.TickInterval)
	assert.Equal(t, 5, cfg.ResetToleranceMinutes)
	assert.Empty(t, cfg.LogPath)
	assert.False(t, strings.HasPrefix(cfg.StorePath, "~"), "store path is home-expanded")
}

// TestLoad_EnvOverrides verifies SLEEPSHIELD_* variables win
func TestLoad_EnvOverrides(t *testing.T) {
	chtemp(t)
	t.Setenv("SLEEPSHIELD_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("SLEEPSHIELD_STORE_BACKEND", "sqlite")
	t.Setenv("SLEEPSHIELD_STORE_PATH", filepath.Join(t.TempDir(), "data"))
	t.Setenv("SLEEPSHIELD_TICK_INTERVAL", "30s")
	t.Setenv("SLEEPSHIELD_RESET_TOLERANCE_MINUTES", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, store.BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "state.db", filepath.Base(cfg.StorePath),
		"sqlite backend gets a database file under the store path")
	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, 10, cfg.ResetToleranceMinutes)
}

// TestLoad_ConfigFile verifies file values are picked up
func TestLoad_ConfigFile(t *testing.T) {
	chtemp(t)
	yaml := "listen_addr: 127.0.0.1:8500\nreset_tolerance_minutes: 3\n"
	require.NoError(t, os.WriteFile(".sleepshield.yaml", []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8500", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.ResetToleranceMinutes)
}

// TestLoad_Invalid verifies rejected settings
func TestLoad_Invalid(t *testing.T) {
	chtemp(t)

	t.Setenv("SLEEPSHIELD_STORE_BACKEND", "etcd")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SLEEPSHIELD_STORE_BACKEND", "diskv")
	t.Setenv("SLEEPSHIELD_RESET_TOLERANCE_MINUTES", "0")
	_, err = Load()
	assert.Error(t, err)
}
