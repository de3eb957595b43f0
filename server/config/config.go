// Package config loads the status server configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/gymsync/logging"
)

const (
	defaultListenAddr = ":3000"
	// DefaultAPIKey is the shared secret used when none is configured.
	DefaultAPIKey = "dev-key"
)

// Environment variables that override file values.
const (
	EnvPort   = "PORT"
	EnvAPIKey = "API_KEY"
)

// ServerConfig represents the server runtime configuration.
type ServerConfig struct {
	Listener  ListenerConfig `yaml:"listener"`
	Auth      AuthConfig     `yaml:"auth"`
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :3000
	Addr string `yaml:"addr"`
	// PEM files for HTTPS. Both or neither must be set.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// TLSEnabled reports whether the listener serves HTTPS.
func (l ListenerConfig) TLSEnabled() bool {
	return l.TLSCert != "" && l.TLSKey != ""
}

// AuthConfig holds the shared secret for mutating endpoints. At most one of
// APIKey and APIKeyBcrypt may be set.
type AuthConfig struct {
	APIKey       string `yaml:"api_key"`
	APIKeyBcrypt string `yaml:"api_key_bcrypt"`
}

// LoadConfig reads the YAML config file at the given path and returns a
// ServerConfig struct. An empty path uses only the environment and defaults.
func LoadConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open server config file %s: %w", path, err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode YAML server config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *ServerConfig) ApplyEnv(getenv func(string) string) error {
	if port := getenv(EnvPort); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("invalid %s %q", EnvPort, port)
		}
		c.Listener.Addr = ":" + port
	}
	if key := getenv(EnvAPIKey); key != "" {
		c.Auth.APIKey = key
		c.Auth.APIKeyBcrypt = ""
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *ServerConfig) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.Auth.APIKey == "" && c.Auth.APIKeyBcrypt == "" {
		c.Auth.APIKey = DefaultAPIKey
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// Validate checks the configuration.
func (c *ServerConfig) Validate() error {
	if c.Auth.APIKey != "" && c.Auth.APIKeyBcrypt != "" {
		return errors.New("auth: only one of api_key and api_key_bcrypt may be set")
	}
	if (c.Listener.TLSCert == "") != (c.Listener.TLSKey == "") {
		return errors.New("listener: tls_cert and tls_key must be set together")
	}
	lc := c.LoggingConfig()
	if err := lc.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	return nil
}

// LoggingConfig returns the logging settings as a logging.Config.
func (c *ServerConfig) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: "stderr",
	}
}
