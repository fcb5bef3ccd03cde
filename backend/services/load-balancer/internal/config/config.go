package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "evgrid/backend/libs/config"
)

// Config defines load balancer configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"LOAD_BALANCER_HTTP_PORT"`
	} `yaml:"http"`
	Substations []string `yaml:"substations" env:"LOAD_BALANCER_SUBSTATIONS"`
	Polling     struct {
		Interval time.Duration `yaml:"interval" env:"LOAD_BALANCER_POLL_INTERVAL"`
		Timeout  time.Duration `yaml:"timeout" env:"LOAD_BALANCER_POLL_TIMEOUT"`
	} `yaml:"polling"`
	Routing struct {
		Timeout time.Duration `yaml:"timeout" env:"LOAD_BALANCER_ROUTE_TIMEOUT"`
	} `yaml:"routing"`
	Stream struct {
		WriteTimeout time.Duration `yaml:"writeTimeout" env:"LOAD_BALANCER_STREAM_WRITE_TIMEOUT"`
		PingInterval time.Duration `yaml:"pingInterval" env:"LOAD_BALANCER_STREAM_PING_INTERVAL"`
	} `yaml:"stream"`
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

// Default returns port 5001, 5s polling, 5s telemetry timeout and 10s route timeout.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "5001"
	cfg.Polling.Interval = 5 * time.Second
	cfg.Polling.Timeout = 5 * time.Second
	cfg.Routing.Timeout = 10 * time.Second
	cfg.Stream.WriteTimeout = 10 * time.Second
	cfg.Stream.PingInterval = 30 * time.Second
	return cfg
}

// Validate rejects non-positive durations.
func (c *Config) Validate() error {
	if c.Polling.Interval <= 0 {
		return errors.New("config: poll interval must be positive")
	}
	if c.Polling.Timeout <= 0 {
		return errors.New("config: poll timeout must be positive")
	}
	if c.Routing.Timeout <= 0 {
		return errors.New("config: route timeout must be positive")
	}
	return nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "5001"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// PollInterval returns the delay between poll cycles.
func (c *Config) PollInterval() time.Duration {
	return c.Polling.Interval
}

// PollTimeout bounds one telemetry fetch.
func (c *Config) PollTimeout() time.Duration {
	return c.Polling.Timeout
}

// RouteTimeout bounds one forwarded start.
func (c *Config) RouteTimeout() time.Duration {
	return c.Routing.Timeout
}
