// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingConfig is returned by Validate when a mandatory key is not set.
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds all configuration for the service.
type Config struct {
	Environment string
	Port        string
	Odoo        OdooConfig
	CORS        CORSConfig
}

// OdooConfig holds the upstream connection settings.
type OdooConfig struct {
	URL      string
	DB       string
	Username string
	APIKey   string
	Protocol string // "jsonrpc" or "xmlrpc"

	PassengerModel string
	DepartureModel string

	// Timeout bounds each upstream HTTP request. Zero means no timeout.
	Timeout time.Duration
	// SkipTLSVerify disables certificate checks. Only for development instances.
	SkipTLSVerify bool
}

// CORSConfig holds the cross-origin policy for browser callers.
type CORSConfig struct {
	AllowedOrigins []string
	DefaultOrigin  string
}

// Load reads configuration from an optional .env file and the environment.
// It does not validate; mandatory keys are checked per request with Validate so
// a misconfigured deployment still answers CORS preflights.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LOG_ENV", "production")
	v.SetDefault("PORT", "8888")
	v.SetDefault("ODOO_PROTOCOL", "jsonrpc")
	v.SetDefault("ODOO_PASSENGER_MODEL", "tour.passenger")
	v.SetDefault("ODOO_DEPARTURE_MODEL", "tour.departure")
	v.SetDefault("ODOO_TIMEOUT", "0s")

	cfg := &Config{
		Environment: v.GetString("LOG_ENV"),
		Port:        v.GetString("PORT"),
		Odoo: OdooConfig{
			URL:            strings.TrimSpace(v.GetString("ODOO_URL")),
			DB:             strings.TrimSpace(v.GetString("ODOO_DB")),
			Username:       strings.TrimSpace(v.GetString("ODOO_USERNAME")),
			APIKey:         strings.TrimSpace(v.GetString("ODOO_API_KEY")),
			Protocol:       strings.ToLower(strings.TrimSpace(v.GetString("ODOO_PROTOCOL"))),
			PassengerModel: v.GetString("ODOO_PASSENGER_MODEL"),
			DepartureModel: v.GetString("ODOO_DEPARTURE_MODEL"),
			Timeout:        v.GetDuration("ODOO_TIMEOUT"),
			SkipTLSVerify:  v.GetBool("ODOO_SKIP_TLS_VERIFY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: SplitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			DefaultOrigin:  strings.TrimSpace(v.GetString("CORS_DEFAULT_ORIGIN")),
		},
	}

	if cfg.Odoo.Timeout < 0 {
		return nil, fmt.Errorf("ODOO_TIMEOUT must not be negative, got %s", cfg.Odoo.Timeout)
	}
	return cfg, nil
}

// Validate reports every mandatory upstream setting that is empty.
func (c OdooConfig) Validate() error {
	var missing []string
	if c.URL == "" {
		missing = append(missing, "ODOO_URL")
	}
	if c.DB == "" {
		missing = append(missing, "ODOO_DB")
	}
	if c.Username == "" {
		missing = append(missing, "ODOO_USERNAME")
	}
	if c.APIKey == "" {
		missing = append(missing, "ODOO_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// ResolvedDefaultOrigin is the Access-Control-Allow-Origin value used for
// callers outside the allow-list: the configured default, else the first
// allowed origin, else "*".
func (c CORSConfig) ResolvedDefaultOrigin() string {
	if c.DefaultOrigin != "" {
		return c.DefaultOrigin
	}
	if len(c.AllowedOrigins) > 0 {
		return c.AllowedOrigins[0]
	}
	return "*"
}

// SplitList splits a comma separated value, dropping blanks and trailing slashes.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
