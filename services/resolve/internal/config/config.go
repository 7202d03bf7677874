// Package config loads the resolve service configuration: an optional YAML
// file with env vars layered on top, env winning.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	// DevFaucet enables the /resolve/dev/faucet route that mints treasury
	// balances for smoke tests. Never enable outside dev.
	DevFaucet bool `yaml:"dev_faucet"`
}

func Load(path string) (Config, error) {
	cfg := Config{Port: "8084"}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("SERVICE_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("DEV_FAUCET"); v == "1" || v == "true" {
		cfg.DevFaucet = true
	}
	return cfg, nil
}
