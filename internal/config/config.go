// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and SCOREHUB_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":3026".
	Addr string `koanf:"addr"`

	// PublicURL is the websocket URL advertised by /health and /qr.
	// Derived from Addr when empty.
	PublicURL string `koanf:"public_url"`

	// Storage selects the score store: sqlite or memory.
	Storage string `koanf:"storage"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// RecentLimit is the size of the recent-scores window.
	RecentLimit int `koanf:"recent_limit"`

	// AggregationLimit is how many of the latest rows feed the leaderboard.
	AggregationLimit int `koanf:"aggregation_limit"`

	// LeaderboardSize caps leaderboard entries.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// RateLimitWindowMS is the minimum spacing of accepted scores per player and game.
	RateLimitWindowMS int `koanf:"rate_limit_window_ms"`

	// EventEnd is an RFC3339 instant after which submissions are refused.
	EventEnd string `koanf:"event_end"`

	// SendBuffer bounds each connection's outbound frame queue.
	SendBuffer int `koanf:"send_buffer"`

	// PingIntervalMS and WriteTimeoutMS tune websocket liveness.
	PingIntervalMS int `koanf:"ping_interval_ms"`
	WriteTimeoutMS int `koanf:"write_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":3026",
		Storage:           StorageSQLite,
		DBPath:            "scorehub.db",
		RecentLimit:       50,
		AggregationLimit:  500,
		LeaderboardSize:   20,
		RateLimitWindowMS: 5000,
		SendBuffer:        64,
		PingIntervalMS:    30_000,
		WriteTimeoutMS:    10_000,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Storage {
	case StorageSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("%w: db_path must not be empty for sqlite storage", ErrInvalidConfig)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}
	for name, v := range map[string]int{
		"recent_limit":         c.RecentLimit,
		"aggregation_limit":    c.AggregationLimit,
		"leaderboard_size":     c.LeaderboardSize,
		"rate_limit_window_ms": c.RateLimitWindowMS,
		"send_buffer":          c.SendBuffer,
		"ping_interval_ms":     c.PingIntervalMS,
		"write_timeout_ms":     c.WriteTimeoutMS,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	if _, err := c.EventEndTime(); err != nil {
		return err
	}
	return nil
}

// EventEndTime parses EventEnd. A zero time means the event never closes.
func (c *Config) EventEndTime() (time.Time, error) {
	if strings.TrimSpace(c.EventEnd) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.EventEnd))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: event_end: %v", ErrInvalidConfig, err)
	}
	return t, nil
}

// RateLimitWindow returns the rate-limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMS) * time.Millisecond
}

// PingInterval returns the websocket ping period.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalMS) * time.Millisecond
}

// WriteTimeout returns the websocket write deadline.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// WebsocketURL returns PublicURL or a ws:// URL derived from Addr.
func (c *Config) WebsocketURL() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	host, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return "ws://" + c.Addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "ws://" + net.JoinHostPort(host, port)
}
