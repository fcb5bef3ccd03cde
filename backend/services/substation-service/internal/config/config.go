package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	libconfig "evgrid/backend/libs/config"
)

// Config defines substation configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"SUBSTATION_HTTP_PORT"`
	} `yaml:"http"`
	Substation struct {
		ID            string  `yaml:"id" env:"SUBSTATION_ID"`
		CapacityKW    float64 `yaml:"capacityKw" env:"SUBSTATION_CAPACITY_KW"`
		MinCapacityKW int     `yaml:"minCapacityKw" env:"SUBSTATION_MIN_CAPACITY_KW"`
		MaxCapacityKW int     `yaml:"maxCapacityKw" env:"SUBSTATION_MAX_CAPACITY_KW"`
	} `yaml:"substation"`
}

// Load uses shared config loader and validates the capacity range.
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

// Default returns the built-in defaults: port 5000, capacity drawn from 80..120 kW.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "5000"
	cfg.Substation.MinCapacityKW = 80
	cfg.Substation.MaxCapacityKW = 120
	return cfg
}

// Validate checks the capacity settings.
func (c *Config) Validate() error {
	if c.Substation.CapacityKW < 0 {
		return errors.New("config: substation capacity must not be negative")
	}
	if c.Substation.CapacityKW == 0 {
		if c.Substation.MinCapacityKW <= 0 {
			return errors.New("config: substation min capacity must be positive")
		}
		if c.Substation.MaxCapacityKW < c.Substation.MinCapacityKW {
			return fmt.Errorf("config: substation capacity range %d..%d is empty",
				c.Substation.MinCapacityKW, c.Substation.MaxCapacityKW)
		}
	}
	return nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "5000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Identity returns the configured id and capacity, drawing random values for whatever was
// not pinned: id from 1000..9999 and capacity from the configured range.
func (c *Config) Identity(rng *rand.Rand) (string, float64) {
	id := strings.TrimSpace(c.Substation.ID)
	if id == "" {
		id = strconv.Itoa(1000 + rng.IntN(9000))
	}
	capacity := c.Substation.CapacityKW
	if capacity <= 0 {
		span := c.Substation.MaxCapacityKW - c.Substation.MinCapacityKW + 1
		capacity = float64(c.Substation.MinCapacityKW + rng.IntN(span))
	}
	return id, capacity
}
