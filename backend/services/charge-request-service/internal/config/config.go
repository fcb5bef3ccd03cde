package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "evgrid/backend/libs/config"
)

// Config defines charge request service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"CHARGE_HTTP_PORT"`
	} `yaml:"http"`
	Balancer struct {
		URL     string        `yaml:"url" env:"LOAD_BALANCER_URL"`
		Timeout time.Duration `yaml:"timeout" env:"CHARGE_BALANCER_TIMEOUT"`
	} `yaml:"balancer"`
	Substation struct {
		StopTimeout time.Duration `yaml:"stopTimeout" env:"CHARGE_STOP_TIMEOUT"`
	} `yaml:"substation"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" env:"CHARGE_RATE_LIMIT"`
		Burst int     `yaml:"burst" env:"CHARGE_RATE_BURST"`
	} `yaml:"rateLimit"`
}

// Load uses shared config loader.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns port 5002, a 30s balancer timeout and a 10s stop timeout.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "5002"
	cfg.Balancer.URL = "http://load_balancer:5001"
	cfg.Balancer.Timeout = 30 * time.Second
	cfg.Substation.StopTimeout = 10 * time.Second
	cfg.RateLimit.RPS = 50
	cfg.RateLimit.Burst = 100
	return cfg
}

// Validate checks required values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Balancer.URL) == "" {
		return errors.New("config: load balancer url is required")
	}
	if c.Balancer.Timeout <= 0 {
		return errors.New("config: balancer timeout must be positive")
	}
	if c.Substation.StopTimeout <= 0 {
		return errors.New("config: stop timeout must be positive")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return errors.New("config: rate limit burst must be positive")
	}
	return nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "5002"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// BalancerTimeout bounds a forwarded charge request end to end.
func (c *Config) BalancerTimeout() time.Duration {
	return c.Balancer.Timeout
}

// StopTimeout bounds a forwarded stop.
func (c *Config) StopTimeout() time.Duration {
	return c.Substation.StopTimeout
}
