// Package config provides runtime settings and the on-disk credential store
// for tokenoptimizer.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix viper uses for environment overrides
	// (TOKENOPTIMIZER_TIMEOUT, TOKENOPTIMIZER_MODEL, ...).
	EnvPrefix = "TOKENOPTIMIZER"

	// EnvAPIKey carries the API key. It is read by the credential resolver,
	// never through viper.
	EnvAPIKey = "TOKENOPTIMIZER_API_KEY"

	DefaultAPIURL         = "https://api.thetokencompany.com/v1/compress"
	DefaultModel          = "bear-1"
	DefaultTimeout        = 60
	DefaultAggressiveness = 0.5
)

// Config holds the application-wide settings resolved from flags,
// environment and an optional settings file.
type Config struct {
	APIURL         string  `mapstructure:"api_url"`
	Model          string  `mapstructure:"model"`
	Timeout        int     `mapstructure:"timeout"` // seconds
	Aggressiveness float64 `mapstructure:"aggressiveness"`
	Verbose        bool    `mapstructure:"verbose"`
	NoColor        bool    `mapstructure:"no_color"`
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("aggressiveness", DefaultAggressiveness)
	v.SetDefault("verbose", false)
	v.SetDefault("no_color", false)
}

// Load decodes the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperr.Wrap(apperr.Usage, err, "invalid settings")
	}
	cfg.APIURL = strings.TrimSpace(cfg.APIURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	return cfg, nil
}

// Validate checks the settings that are not part of a single request.
// Range checks on timeout and aggressiveness belong to the request builder.
func (c *Config) Validate() error {
	if c.Model == "" {
		return apperr.New(apperr.Usage, "model must not be empty")
	}
	return ValidateAPIURL(c.APIURL)
}

// ValidateAPIURL requires an https URL. Plain http is accepted only for
// loopback hosts, which keeps local test servers usable without ever sending
// a key over an unencrypted public link.
func ValidateAPIURL(raw string) error {
	if raw == "" {
		return apperr.New(apperr.Usage, "api url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return apperr.Wrap(apperr.Usage, err, "invalid api url %q", raw)
	}
	if u.Host == "" {
		return apperr.New(apperr.Usage, "invalid api url %q: missing host", raw)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return apperr.New(apperr.Usage, "api url %q must use https", raw)
	default:
		return apperr.New(apperr.Usage, "invalid api url %q: unsupported scheme %q", raw, u.Scheme)
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// String renders the settings for debug logging.
func (c *Config) String() string {
	return fmt.Sprintf("api_url=%s model=%s timeout=%ds aggressiveness=%.2f",
		c.APIURL, c.Model, c.Timeout, c.Aggressiveness)
}
