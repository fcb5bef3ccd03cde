package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5002", cfg.HTTPAddress())
	assert.Equal(t, "http://load_balancer:5001", cfg.Balancer.URL)
	assert.Equal(t, 30*time.Second, cfg.BalancerTimeout())
	assert.Equal(t, 10*time.Second, cfg.StopTimeout())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOAD_BALANCER_URL", "http://localhost:5001")
	t.Setenv("CHARGE_HTTP_PORT", "8080")
	t.Setenv("CHARGE_RATE_LIMIT", "0")
	t.Setenv("CHARGE_STOP_TIMEOUT", "1500ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5001", cfg.Balancer.URL)
	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Zero(t, cfg.RateLimit.RPS)
	assert.Equal(t, 1500*time.Millisecond, cfg.StopTimeout())
}

func TestValidate(t *testing.T) {
	t.Setenv("LOAD_BALANCER_URL", " ")
	_, err := Load()
	assert.Error(t, err)
}
