package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/silicon-heaven/shvdevice-go/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "pysim", cfg.Login.DeviceID)
	assert.Equal(t, "test/pysim", cfg.Login.MountPoint)
	assert.Equal(t, 360, cfg.Login.IdleWatchDogTimeOut)
	assert.Equal(t, 60*time.Second, cfg.Broker.PingPeriod)
}

func TestLoadOverlaysFileOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
broker:
  address: "broker.example.com:3755"
  reconnect_period: 2s
login:
  user: "alice"
  password: "hunter2"
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "broker.example.com:3755", cfg.Broker.Address)
	assert.Equal(t, 2*time.Second, cfg.Broker.ReconnectPeriod)
	assert.Equal(t, "alice", cfg.Login.User)
	assert.Equal(t, "hunter2", cfg.Login.Password)
	// Untouched fields keep their defaults.
	assert.Equal(t, "pysim", cfg.Login.DeviceID)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.Default()
	cfg.Login.User = "bob"
	cfg.Broker.Address = "10.0.0.1:3755"

	require.NoError(t, config.Save(cfg, path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", loaded.Login.User)
	assert.Equal(t, "10.0.0.1:3755", loaded.Broker.Address)
}
