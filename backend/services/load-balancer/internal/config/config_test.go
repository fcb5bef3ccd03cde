package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5001", cfg.HTTPAddress())
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 5*time.Second, cfg.PollTimeout())
	assert.Equal(t, 10*time.Second, cfg.RouteTimeout())
	assert.Empty(t, cfg.Substations)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOAD_BALANCER_SUBSTATIONS", "http://a:5000, http://b:5000")
	t.Setenv("LOAD_BALANCER_POLL_INTERVAL", "2s")
	t.Setenv("LOAD_BALANCER_ROUTE_TIMEOUT", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a:5000", "http://b:5000"}, cfg.Substations)
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 3*time.Second, cfg.RouteTimeout())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: \"6001\"\nsubstations:\n  - http://c:5000\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":6001", cfg.HTTPAddress())
	assert.Equal(t, []string{"http://c:5000"}, cfg.Substations)
}

func TestValidateRejectsZeroInterval(t *testing.T) {
	t.Setenv("LOAD_BALANCER_POLL_INTERVAL", "0s")
	_, err := Load()
	assert.Error(t, err)
}
