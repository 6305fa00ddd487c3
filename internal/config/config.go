// Package config loads the control plane's TOML configuration, following
// the same load-or-create-default pattern used for node config.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config describes the knobs a deployment needs: where to listen, where
// stable-map data lives, and the cadence of the three background jobs
// (scheduled-request executor, expiration sweep, DR watchdog).
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	// LogFilePath, when set, rotates structured logs to disk via
	// internal/logging.RotatedFile instead of writing to stdout. Left
	// empty by default since most deployments collect stdout directly.
	LogFilePath string `toml:"LogFilePath"`

	ScheduledExecutorInterval Duration `toml:"ScheduledExecutorInterval"`
	ExpirationSweepInterval   Duration `toml:"ExpirationSweepInterval"`
	DRWatchdogTimeout         Duration `toml:"DRWatchdogTimeout"`

	DefaultRequestExpiration Duration `toml:"DefaultRequestExpiration"`
	MaxPageSize              int      `toml:"MaxPageSize"`
	DefaultPageSize          int      `toml:"DefaultPageSize"`

	// RateLimitPerSecond/RateLimitBurst size the per-client token bucket
	// httpapi.Server installs ahead of the route handlers. A non-positive
	// RateLimitPerSecond disables rate limiting entirely.
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
}

// Duration wraps time.Duration so it round-trips through TOML as a plain
// string ("5s", "1m") rather than an integer count of nanoseconds.
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration baseline: scheduled-execution at 5s
// ticks, expiration sweep at least once a minute, and a 1h DR watchdog
// timeout.
func Default() *Config {
	return &Config{
		ListenAddress:             ":8443",
		DataDir:                   "./data",
		Environment:               "development",
		LogFilePath:               "",
		ScheduledExecutorInterval: Duration{5 * time.Second},
		ExpirationSweepInterval:   Duration{1 * time.Minute},
		DRWatchdogTimeout:         Duration{1 * time.Hour},
		DefaultRequestExpiration:  Duration{30 * 24 * time.Hour},
		MaxPageSize:               250,
		DefaultPageSize:           100,
		RateLimitPerSecond:        50,
		RateLimitBurst:            100,
	}
}

// Load reads the configuration at path, creating it with defaults if it
// does not yet exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
