package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TTLDisabled mirrors calendar.TTLDisabled without importing it
const TTLDisabled time.Duration = -1

// Config represents application configuration
type Config struct {
	Calendar CalendarConfig `mapstructure:"calendar"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
}

// CalendarConfig selects the holiday source and its cache policy
type CalendarConfig struct {
	Jurisdiction      string `mapstructure:"jurisdiction"`  // e.g. "US", "GB"
	AdditionsURL      string `mapstructure:"additions_url"` // remote feed, used instead of jurisdiction
	RemovalsURL       string `mapstructure:"removals_url"`
	BusinessWeekends  bool   `mapstructure:"business_weekends"`
	TTL               string `mapstructure:"ttl"` // "24h", "300", "0" or "disabled"
	HTTPTimeout       string `mapstructure:"http_timeout"`
	DecisionCacheSize int    `mapstructure:"decision_cache_size"`
	OverridesFile     string `mapstructure:"overrides_file"` // local holiday/workday corrections
	FetchRetries      int    `mapstructure:"fetch_retries"`  // total attempts per endpoint request
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// ServerConfig represents the HTTP query service
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// flagKeys maps CLI flag names to config keys
var flagKeys = map[string]string{
	"jurisdiction":      "calendar.jurisdiction",
	"additions-url":     "calendar.additions_url",
	"removals-url":      "calendar.removals_url",
	"business-weekends": "calendar.business_weekends",
	"ttl":               "calendar.ttl",
	"http-timeout":      "calendar.http_timeout",
	"overrides-file":    "calendar.overrides_file",
	"fetch-retries":     "calendar.fetch_retries",
	"log-file":          "log.file",
	"log-level":         "log.level",
	"listen":            "server.listen",
}

// Load loads configuration from file, BIZCAL_* environment variables and flags.
// A missing file is only an error when configPath is set explicitly.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("calendar.ttl", "24h")
	v.SetDefault("calendar.http_timeout", "10s")
	v.SetDefault("calendar.decision_cache_size", 1000)
	v.SetDefault("calendar.fetch_retries", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.listen", ":8080")

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.business-calendar")
		v.AddConfigPath("/etc/business-calendar")
	}

	// Read environment variables
	v.SetEnvPrefix("BIZCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// YAML booleans reach the string field as "0"/"1"
	if enabled, ok := v.Get("calendar.ttl").(bool); ok {
		if enabled {
			v.Set("calendar.ttl", "24h")
		} else {
			v.Set("calendar.ttl", "disabled")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	cal := c.Calendar
	remote := cal.AdditionsURL != "" || cal.RemovalsURL != ""

	switch {
	case cal.Jurisdiction != "" && remote:
		return fmt.Errorf("calendar.jurisdiction and calendar.additions_url/removals_url are mutually exclusive")
	case cal.Jurisdiction == "" && !remote:
		return fmt.Errorf("calendar.jurisdiction or calendar.additions_url and calendar.removals_url is required")
	case remote && (cal.AdditionsURL == "" || cal.RemovalsURL == ""):
		return fmt.Errorf("calendar.additions_url and calendar.removals_url must both be set")
	}

	if _, err := ParseTTL(cal.TTL); err != nil {
		return fmt.Errorf("calendar.ttl: %w", err)
	}
	if cal.HTTPTimeout != "" {
		if d, err := time.ParseDuration(cal.HTTPTimeout); err != nil || d <= 0 {
			return fmt.Errorf("calendar.http_timeout must be a positive duration, got '%s'", cal.HTTPTimeout)
		}
	}
	if cal.DecisionCacheSize < 0 {
		return fmt.Errorf("calendar.decision_cache_size must not be negative")
	}
	if cal.FetchRetries < 0 {
		return fmt.Errorf("calendar.fetch_retries must not be negative")
	}

	return nil
}

// IsRemote reports whether the calendar is backed by endpoints
func (c *CalendarConfig) IsRemote() bool {
	return c.AdditionsURL != ""
}

// GetTTL returns the fetch cache TTL
func (c *CalendarConfig) GetTTL() time.Duration {
	ttl, err := ParseTTL(c.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return ttl
}

// GetHTTPTimeout returns the remote fetch timeout
func (c *CalendarConfig) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout == "" {
		return 10 * time.Second
	}
	duration, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return duration
}

// ParseTTL accepts a Go duration, bare seconds, or disabled/false/off/never
func ParseTTL(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return 24 * time.Hour, nil
	case "disabled", "false", "off", "never":
		return TTLDisabled, nil
	}

	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("ttl must not be negative, got %d", seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl '%s'", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("ttl must not be negative, got %s", d)
	}
	return d, nil
}
