// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
	_ "time/tzdata" // timezone must resolve on hosts without zoneinfo
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AppName is the identifier echoed in every response envelope.
	AppName string `koanf:"app_name"`

	// BasePath prefixes the data routes, e.g. "/api".
	BasePath string `koanf:"base_path"`

	// Timezone names the IANA location used for response timestamps.
	Timezone string `koanf:"timezone"`

	// MaxBodyBytes caps POST bodies. Zero means no limit.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// ThrottlePerMinute is the per-client request budget. Zero disables throttling.
	ThrottlePerMinute int `koanf:"throttle_per_minute"`

	// TrustedProxies lists comma-separated CIDRs or addresses whose
	// X-Forwarded-For / X-Real-IP headers are honoured. Empty trusts no one.
	TrustedProxies string `koanf:"trusted_proxies"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		AppName:           "app1",
		BasePath:          "/api",
		Timezone:          "UTC",
		MaxBodyBytes:      0,
		ThrottlePerMinute: 60,
	}
}

// Location resolves Timezone. Validate guarantees it succeeds on loaded configs.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks invariants the rest of the process relies on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.AppName) == "":
		return fmt.Errorf("%w: app_name must not be empty", ErrInvalidConfig)
	case !strings.HasPrefix(c.BasePath, "/"):
		return fmt.Errorf("%w: base_path must start with /", ErrInvalidConfig)
	case c.MaxBodyBytes < 0:
		return fmt.Errorf("%w: max_body_bytes must not be negative", ErrInvalidConfig)
	case c.ThrottlePerMinute < 0:
		return fmt.Errorf("%w: throttle_per_minute must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. Bare addresses become
// single-host prefixes.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range strings.Split(c.TrustedProxies, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: trusted_proxies %q: %w", ErrInvalidConfig, entry, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: trusted_proxies %q: %w", ErrInvalidConfig, entry, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
