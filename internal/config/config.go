package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"fjShop/internal/sa"
	"fjShop/internal/ts"
)

// Config holds run and service settings shared by the commands.
type Config struct {
	// Seed drives every random choice of a run; equal seeds reproduce runs.
	Seed int64 `yaml:"seed"`

	SA sa.Config `yaml:"sa"`
	TS ts.Config `yaml:"ts"`

	Server Server `yaml:"server"`
	Store  Store  `yaml:"store"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Store struct {
	// DSN of the Postgres database; empty disables persistence.
	DSN string `yaml:"dsn"`
}

func Default() *Config {
	return &Config{
		Seed:   1,
		SA:     sa.DefaultConfig(),
		TS:     ts.DefaultConfig(),
		Server: Server{Addr: ":8080"},
	}
}

// Load reads a YAML config file on top of the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Server.Addr = getEnv("FJSHOP_ADDR", cfg.Server.Addr)
	cfg.Store.DSN = getEnv("FJSHOP_DSN", cfg.Store.DSN)
	if s := os.Getenv("FJSHOP_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FJSHOP_SEED %q: %w", s, err)
		}
		cfg.Seed = seed
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that all config values are valid.
func (c *Config) validate() error {
	if err := c.SA.Validate(); err != nil {
		return fmt.Errorf("sa: %w", err)
	}
	if err := c.TS.Validate(); err != nil {
		return fmt.Errorf("ts: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
