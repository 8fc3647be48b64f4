// Package config provides YAML-based configuration loading for repairdesk.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level repairdesk configuration, loaded from config.yaml.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Telegram TelegramConfig `yaml:"telegram"`
	Notify   NotifyConfig   `yaml:"notify"`
	Sessions SessionsConfig `yaml:"sessions"`
}

// BackendConfig holds connection settings for the request backend API.
type BackendConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// NotifyConfig configures the inbound notification HTTP server.
type NotifyConfig struct {
	Port int `yaml:"port"`
}

// SessionsConfig tunes conversation session behavior. SweepCron is a
// standard 5-field cron expression; when empty, abandoned sessions are
// never evicted (matching the original behavior).
type SessionsConfig struct {
	SweepCron  string `yaml:"sweep_cron"`
	IdleTTLMin int    `yaml:"idle_ttl_min"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Notify.Port == 0 {
		c.Notify.Port = 8085
	}
	if c.Sessions.IdleTTLMin == 0 {
		c.Sessions.IdleTTLMin = 120
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Backend.URL == "" {
		errs = append(errs, "backend.url is required")
	}
	if c.Backend.APIKey == "" {
		errs = append(errs, "backend.api_key is required")
	}
	if c.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required")
	}
	if c.Notify.Port < 0 || c.Notify.Port > 65535 {
		errs = append(errs, "notify.port must be a valid TCP port")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
