package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/steveyegge/trackdash/internal/types"
)

// EnvPrefix is prepended to every environment override, e.g.
// TRACKDASH_SERVER_ADDR for server.addr.
const EnvPrefix = "TRACKDASH"

// Config is the resolved trackdash configuration.
type Config struct {
	Jira      JiraConfig      `mapstructure:"jira"`
	Server    ServerConfig    `mapstructure:"server"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Search    SearchConfig    `mapstructure:"search"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type JiraConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	APIToken string `mapstructure:"api_token"`
	// Timezone is the IANA zone of the Jira account's profile, used to render
	// JQL date-times. Empty means the local zone.
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Jira.Timezone. Validate has already rejected unknown
// zones, so an error here means the Config was built by hand.
func (c *Config) Location() (*time.Location, error) {
	if c.Jira.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Jira.Timezone)
	if err != nil {
		return nil, &types.ConfigurationError{Key: "jira.timezone", Reason: err.Error()}
	}
	return loc, nil
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type FetchConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialDelay   time.Duration `mapstructure:"initial_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

type SearchConfig struct {
	MaxResults int `mapstructure:"max_results"`
	PageSize   int `mapstructure:"page_size"`
}

type DashboardConfig struct {
	Concurrency int      `mapstructure:"concurrency"`
	Projects    []string `mapstructure:"projects"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Stdout   bool   `mapstructure:"stdout"`
	Endpoint string `mapstructure:"endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jira.url", "")
	v.SetDefault("jira.username", "")
	v.SetDefault("jira.api_token", "")
	v.SetDefault("jira.timezone", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.initial_delay", time.Second)
	v.SetDefault("fetch.attempt_timeout", 15*time.Second)
	v.SetDefault("search.max_results", 1000)
	v.SetDefault("search.page_size", 100)
	v.SetDefault("dashboard.concurrency", 8)
	v.SetDefault("dashboard.projects", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("telemetry.endpoint", "")
}

// NewViper returns a viper instance with defaults, environment bindings and,
// when one is found, the config file. An explicit path must exist; otherwise
// ./trackdash.yaml and $HOME/.config/trackdash/config.yaml are tried.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// Also honour the variable names used by existing Jira tooling.
	_ = v.BindEnv("jira.url", EnvPrefix+"_JIRA_URL", "JIRA_URL")
	_ = v.BindEnv("jira.username", EnvPrefix+"_JIRA_USERNAME", "JIRA_USERNAME")
	_ = v.BindEnv("jira.api_token", EnvPrefix+"_JIRA_API_TOKEN", "JIRA_API_TOKEN")

	file, err := resolveFile(path)
	if err != nil {
		return nil, err
	}
	if file == "" {
		return v, nil
	}
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", file, err)
	}
	return v, nil
}

func resolveFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", &types.ConfigurationError{Key: "config", Reason: err.Error()}
		}
		return path, nil
	}
	candidates := []string{"trackdash.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "trackdash", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// FromViper decodes v into a Config and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &types.ConfigurationError{Key: "config", Reason: err.Error()}
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Jira.URL = strings.TrimSuffix(strings.TrimSpace(cfg.Jira.URL), "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from path (or the default locations) and the
// environment.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate checks every tuning value. Missing Jira credentials are not an
// error here; see CheckCredentials.
func (c *Config) Validate() error {
	var errs []error
	bad := func(key, reason string) {
		errs = append(errs, &types.ConfigurationError{Key: key, Reason: reason})
	}
	if c.Fetch.MaxRetries < 0 {
		bad("fetch.max_retries", "must not be negative")
	}
	if c.Fetch.InitialDelay < 0 {
		bad("fetch.initial_delay", "must not be negative")
	}
	if c.Fetch.AttemptTimeout <= 0 {
		bad("fetch.attempt_timeout", "must be positive")
	}
	if c.Search.MaxResults <= 0 {
		bad("search.max_results", "must be positive")
	}
	if c.Search.PageSize <= 0 {
		bad("search.page_size", "must be positive")
	}
	if c.Dashboard.Concurrency <= 0 {
		bad("dashboard.concurrency", "must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		bad("log.level", fmt.Sprintf("%q is invalid (valid values: debug, info, warn, error)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		bad("log.format", fmt.Sprintf("%q is invalid (valid values: text, json)", c.Log.Format))
	}
	if c.Jira.URL != "" {
		if u, err := url.Parse(c.Jira.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			bad("jira.url", fmt.Sprintf("%q is not an http(s) URL", c.Jira.URL))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CheckCredentials reports missing upstream credentials.
func (c *Config) CheckCredentials() error {
	if c.Jira.URL == "" {
		return &types.ConfigurationError{Key: "jira.url", Reason: "not set (use JIRA_URL or jira.url)"}
	}
	if c.Jira.APIToken == "" {
		return &types.ConfigurationError{Key: "jira.api_token", Reason: "not set (use JIRA_API_TOKEN or jira.api_token)"}
	}
	return nil
}
