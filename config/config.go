// Package config loads the gymsync desktop client configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/gymsync/logging"
)

const (
	defaultBackendURL   = "http://localhost:3000/api/v1/status"
	defaultTitle        = "GymSync"
	defaultPollInterval = 5 * time.Second
	defaultFetchTimeout = 4 * time.Second

	// Default monitoring settings
	defaultMetricsPrefix = "gymsync"
	defaultJobName       = "gymsync"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"
)

// Environment variables that override file values.
const (
	EnvBackendURL = "BACKEND_URL"
	EnvAPIKey     = "API_KEY"
	EnvDiscordID  = "DISCORD_ID"
)

// Config represents the complete client configuration
type Config struct {
	// BackendURL is the status collection, e.g. http://host:3000/api/v1/status.
	BackendURL string `yaml:"backend_url"`
	// APIKey is the bearer secret for start/pause/resume/stop.
	APIKey string `yaml:"api_key"`

	// DiscordID is the identity key when it is known up front.
	DiscordID string `yaml:"discord_id"`
	// DiscordToken is an OAuth2 access token resolved to an id via the
	// Discord API when DiscordID is empty.
	DiscordToken string `yaml:"discord_token"`

	// Title is the first line of the presence.
	Title        string        `yaml:"title"`
	PollInterval time.Duration `yaml:"poll_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// ClearOnExit clears the presence when the sync loop stops. Defaults to true.
	ClearOnExit *bool `yaml:"clear_on_exit"`

	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url"`
	MetricsPrefix      string `yaml:"metrics_prefix"`
	JobName            string `yaml:"jobname"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// LoggerConfig converts to the logging package's Config.
func (l LoggingConfig) LoggerConfig() logging.Config {
	return logging.Config{
		Level:     l.Level,
		Format:    l.Format,
		Output:    l.Output,
		AddSource: l.AddSource,
	}
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend URL must be http or https, got %q", c.BackendURL)
	}
	if c.PollInterval < time.Second {
		return errors.New("poll interval must be at least 1s")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if c.FetchTimeout > c.PollInterval {
		return errors.New("fetch timeout must not exceed poll interval")
	}
	if c.Monitoring.VictoriaMetricsURL != "" {
		if _, err := url.Parse(c.Monitoring.VictoriaMetricsURL); err != nil {
			return fmt.Errorf("invalid VictoriaMetrics URL: %w", err)
		}
	}
	lc := c.Logging.LoggerConfig()
	if err := lc.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.BackendURL == "" {
		c.BackendURL = defaultBackendURL
	}
	if c.Title == "" {
		c.Title = defaultTitle
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.ClearOnExit == nil {
		enabled := true
		c.ClearOnExit = &enabled
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// ShouldClearOnExit reports the effective clear_on_exit setting.
func (c *Config) ShouldClearOnExit() bool {
	return c.ClearOnExit == nil || *c.ClearOnExit
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBackendURL); v != "" {
		c.BackendURL = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := getenv(EnvDiscordID); v != "" {
		c.DiscordID = v
	}
}

// LoadConfig reads the YAML config file at the given path and returns a Config
// struct. An empty path uses only the environment and defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
