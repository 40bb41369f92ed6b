// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the tem-send command.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shineum/scaleway-tem/tem"
)

// Config holds the complete application configuration.
type Config struct {
	Provider string         `yaml:"provider"`
	Scaleway ScalewayConfig `yaml:"scaleway"`
	Graph    GraphConfig    `yaml:"graph"`
	SES      SESConfig      `yaml:"ses"`
	Sender   SenderConfig   `yaml:"sender"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ScalewayConfig holds Transactional Email API credentials and endpoint.
type ScalewayConfig struct {
	ProjectID string        `yaml:"project_id"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Region    string        `yaml:"region"`
	Endpoint  string        `yaml:"endpoint"`
	DomainID  string        `yaml:"domain_id"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GraphConfig holds Microsoft Graph API credentials.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// SenderConfig holds the default sender used when none is given on the
// command line.
type SenderConfig struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ScalewayConfigured returns true if the project id and secret key are set.
func (c *Config) ScalewayConfigured() bool {
	return c.Scaleway.ProjectID != "" && c.Scaleway.SecretKey != ""
}

// GraphConfigured returns true if all required Graph API fields are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" && c.Graph.ClientID != "" && c.Graph.ClientSecret != ""
}

// SESConfigured returns true if an SES region is set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != ""
}

// ClientConfig converts the Scaleway section into a tem.ClientConfig.
func (c *Config) ClientConfig() tem.ClientConfig {
	return tem.ClientConfig{
		ProjectID:    c.Scaleway.ProjectID,
		AccessKey:    c.Scaleway.AccessKey,
		AccessSecret: c.Scaleway.SecretKey,
		Region:       c.Scaleway.Region,
		Endpoint:     c.Scaleway.Endpoint,
		DomainID:     c.Scaleway.DomainID,
		Timeout:      c.Scaleway.Timeout,
	}
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Scaleway.Region = tem.DefaultRegion
	c.Scaleway.Endpoint = tem.DefaultEndpoint
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("TEM_PROJECT_ID"); v != "" {
		c.Scaleway.ProjectID = v
	}
	if v := os.Getenv("TEM_ACCESS_KEY"); v != "" {
		c.Scaleway.AccessKey = v
	}
	if v := os.Getenv("TEM_SECRET_KEY"); v != "" {
		c.Scaleway.SecretKey = v
	}
	if v := os.Getenv("TEM_REGION"); v != "" {
		c.Scaleway.Region = v
	}
	if v := os.Getenv("TEM_ENDPOINT"); v != "" {
		c.Scaleway.Endpoint = v
	}
	if v := os.Getenv("TEM_DOMAIN_ID"); v != "" {
		c.Scaleway.DomainID = v
	}
	if v := os.Getenv("TEM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TEM_TIMEOUT %q: %w", v, err)
		}
		c.Scaleway.Timeout = d
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("TEM_SENDER_EMAIL"); v != "" {
		c.Sender.Email = v
	}
	if v := os.Getenv("TEM_SENDER_NAME"); v != "" {
		c.Sender.Name = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return nil
}
