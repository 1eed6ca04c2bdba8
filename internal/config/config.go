// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// Supported page driver backends.
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// Supported result file formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Network   NetworkConfig   `mapstructure:"network" yaml:"network"`
	Challenge ChallengeConfig `mapstructure:"challenge" yaml:"challenge"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser process and the page driver.
type BrowserConfig struct {
	Driver          string         `mapstructure:"driver" yaml:"driver"`
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	// ActionTimeout bounds a single probe or action against the page.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// ActionRate limits page mutations per second. Zero disables pacing.
	ActionRate float64 `mapstructure:"action_rate" yaml:"action_rate"`
	// InstallBrowsers lets the playwright backend download Chromium on first use.
	InstallBrowsers bool `mapstructure:"install_browsers" yaml:"install_browsers"`
}

// NetworkConfig tunes page loading.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// ChallengeConfig drives the challenge loop and its strategies.
type ChallengeConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Slots int    `mapstructure:"slots" yaml:"slots"`
	// Timeout is the overall wall-clock budget of a run, page load included.
	Timeout           time.Duration   `mapstructure:"timeout" yaml:"timeout"`
	SettleDelay       time.Duration   `mapstructure:"settle_delay" yaml:"settle_delay"`
	PlaceholderFormat string          `mapstructure:"placeholder_format" yaml:"placeholder_format"`
	ConfirmKey        string          `mapstructure:"confirm_key" yaml:"confirm_key"`
	SelectIndex       int             `mapstructure:"select_index" yaml:"select_index"`
	StartText         string          `mapstructure:"start_text" yaml:"start_text"`
	Selectors         SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
}

// SelectorsConfig holds the CSS queries used to find each control type.
type SelectorsConfig struct {
	Button    string `mapstructure:"button" yaml:"button"`
	TextInput string `mapstructure:"text_input" yaml:"text_input"`
	Checkbox  string `mapstructure:"checkbox" yaml:"checkbox"`
	Select    string `mapstructure:"select" yaml:"select"`
	Start     string `mapstructure:"start" yaml:"start"`
}

// MetricsConfig holds the cost model used in the run summary.
type MetricsConfig struct {
	TokensPerSolve      int64   `mapstructure:"tokens_per_solve" yaml:"tokens_per_solve"`
	USDPerMillionTokens float64 `mapstructure:"usd_per_million_tokens" yaml:"usd_per_million_tokens"`
}

// OutputConfig controls where the run summary is written.
type OutputConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DatabaseConfig holds the database connection details. An empty URL disables the store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "gauntlet")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.action_rate", 0.0)
	v.SetDefault("browser.install_browsers", false)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "60s")
	v.SetDefault("network.post_load_wait", "1500ms")

	// -- Challenge --
	v.SetDefault("challenge.url", "https://serene-frangipane-7fd25b.netlify.app")
	v.SetDefault("challenge.slots", 30)
	v.SetDefault("challenge.timeout", "300000ms")
	v.SetDefault("challenge.settle_delay", "400ms")
	v.SetDefault("challenge.placeholder_format", "test-%d")
	v.SetDefault("challenge.confirm_key", "Enter")
	v.SetDefault("challenge.select_index", 1)
	v.SetDefault("challenge.start_text", "START")
	v.SetDefault("challenge.selectors.button", "button:not([disabled])")
	v.SetDefault("challenge.selectors.text_input", `input[type="text"]`)
	v.SetDefault("challenge.selectors.checkbox", `input[type="checkbox"]`)
	v.SetDefault("challenge.selectors.select", "select")
	v.SetDefault("challenge.selectors.start", "button")

	// -- Metrics --
	v.SetDefault("metrics.tokens_per_solve", 400)
	v.SetDefault("metrics.usd_per_million_tokens", 3.0)

	// -- Output --
	v.SetDefault("output.path", "results.json")
	v.SetDefault("output.format", FormatJSON)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	_ = v.BindEnv("database.url", "GAUNTLET_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Output.Path != "" && cfg.Output.Path != "stdout" {
		expanded, err := homedir.Expand(cfg.Output.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand output path %q: %w", cfg.Output.Path, err)
		}
		cfg.Output.Path = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Browser.Driver) {
	case DriverChromedp, DriverPlaywright:
	default:
		return fmt.Errorf("browser.driver must be %q or %q, got %q", DriverChromedp, DriverPlaywright, c.Browser.Driver)
	}
	if c.Browser.ActionRate < 0 {
		return fmt.Errorf("browser.action_rate must not be negative")
	}
	if err := c.Challenge.Validate(); err != nil {
		return fmt.Errorf("challenge configuration invalid: %w", err)
	}
	if c.Metrics.TokensPerSolve < 0 || c.Metrics.USDPerMillionTokens < 0 {
		return fmt.Errorf("metrics cost model must not be negative")
	}
	switch c.Output.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatJSON, FormatText, c.Output.Format)
	}
	return nil
}

// Validate checks the ChallengeConfig settings.
func (c *ChallengeConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.Slots <= 0 {
		return fmt.Errorf("slots must be a positive integer")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if c.SelectIndex < 0 {
		return fmt.Errorf("select_index must not be negative")
	}
	if c.ConfirmKey == "" {
		return fmt.Errorf("confirm_key is required")
	}
	if c.Selectors.Button == "" || c.Selectors.TextInput == "" || c.Selectors.Checkbox == "" || c.Selectors.Select == "" {
		return fmt.Errorf("all strategy selectors are required")
	}
	return nil
}

// Placeholder renders the text typed into a text-entry control for the given slot.
func (c *ChallengeConfig) Placeholder(ordinal int) string {
	format := c.PlaceholderFormat
	if format == "" {
		format = "test-%d"
	}
	return fmt.Sprintf(format, ordinal)
}

// StartLocator addresses the optional control that begins the challenge sequence.
// It returns false when no start text is configured.
func (c *ChallengeConfig) StartLocator() (schemas.Locator, bool) {
	if c.StartText == "" {
		return schemas.Locator{}, false
	}
	query := c.Selectors.Start
	if query == "" {
		query = "button"
	}
	return schemas.Locator{Query: query, HasText: c.StartText}, true
}
