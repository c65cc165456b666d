// Package config loads the Borg server configuration from YAML with
// environment overrides. Configuration is read once at startup and
// passed into constructors explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server       ServerConfig              `yaml:"server"`
	Database     DatabaseConfig            `yaml:"database"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Concurrency  ConcurrencyConfig         `yaml:"concurrency"`
	SMTP         SMTPConfig                `yaml:"smtp"`
	Storage      StorageConfig             `yaml:"storage"`
	Auth         AuthConfig                `yaml:"auth"`
	Integrations IntegrationsConfig        `yaml:"integrations"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds database connection settings. An empty URL runs
// the server with in-memory repositories only.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ProviderConfig holds AI provider connection settings, keyed by
// provider name in Config.Providers.
type ProviderConfig struct {
	Type   string `yaml:"type"`    // e.g. "openai"
	URL    string `yaml:"url"`     // base URL
	APIKey string `yaml:"api_key"` // API key
}

// ConcurrencyConfig bounds simultaneous workflow runs.
type ConcurrencyConfig struct {
	GlobalMax   int `yaml:"global_max"`   // max concurrent runs system-wide (default: 10)
	PerWorkflow int `yaml:"per_workflow"` // max concurrent runs per workflow (default: 3)
}

// SMTPConfig holds outbound email settings for the email action.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// StorageConfig holds file upload settings.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// AuthConfig holds API authentication settings. Auth is enabled only
// when a secret is set.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// IntegrationsConfig holds tokens for the external services action and
// data nodes talk to.
type IntegrationsConfig struct {
	DriveToken    string `yaml:"drive_token"`
	TwitterToken  string `yaml:"twitter_token"`
	AirtableToken string `yaml:"airtable_token"`
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Providers: map[string]ProviderConfig{},
		Concurrency: ConcurrencyConfig{
			GlobalMax:   10,
			PerWorkflow: 3,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Storage: StorageConfig{
			Dir: "data/uploads",
		},
	}
}

// Load reads a YAML configuration file at path, then applies .env and
// environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory.
// If the file does not exist, defaults plus environment overrides are
// used. Any other error (permission denied, malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = defaults()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// applyEnv loads .env if present and overlays well-known environment
// variables over the file config. Environment wins over YAML.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("BORG_API_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("BORG_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("BORG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("DRIVE_ACCESS_TOKEN"); v != "" {
		c.Integrations.DriveToken = v
	}
	if v := os.Getenv("TWITTER_BEARER_TOKEN"); v != "" {
		c.Integrations.TwitterToken = v
	}
	if v := os.Getenv("AIRTABLE_API_KEY"); v != "" {
		c.Integrations.AirtableToken = v
	}

	// Per-provider API keys: OPENAI_API_KEY overrides providers.openai,
	// GROQ_API_KEY overrides providers.groq, and so on.
	for name, p := range c.Providers {
		envKey := envName(name) + "_API_KEY"
		if v := os.Getenv(envKey); v != "" {
			p.APIKey = v
			c.Providers[name] = p
		}
	}
}

func envName(provider string) string {
	out := make([]rune, 0, len(provider))
	for _, r := range provider {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-'a'+'A')
		case r == '-':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Addr returns the host:port the HTTP server should listen on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
