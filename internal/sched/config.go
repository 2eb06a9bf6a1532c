package sched

import (
	"errors"
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	SliceMS               int64  `yaml:"slice_ms"`                 // 5 (by default)
	UserBlockingTimeoutMS int64  `yaml:"user_blocking_timeout_ms"` // 250 (by default)
	NormalTimeoutMS       int64  `yaml:"normal_timeout_ms"`        // 5000 (by default)
	LowTimeoutMS          int64  `yaml:"low_timeout_ms"`           // 10000 (by default)
	LogLevel              string `yaml:"log_level"`                // info (by default)
	LogFormat             string `yaml:"log_format"`               // console (by default)
}

// DefaultConfig is used when no config file is given or a field is missing.
func DefaultConfig() Config {
	return Config{
		SliceMS:               5,
		UserBlockingTimeoutMS: 250,
		NormalTimeoutMS:       5000,
		LowTimeoutMS:          10000,
		LogLevel:              "info",
		LogFormat:             "console",
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file means
// defaults only. A file that exists but does not parse is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.sanitize(), nil
}

// sanitize clamps values that would break deadline ordering.
func (c Config) sanitize() Config {
	def := DefaultConfig()
	if c.SliceMS <= 0 {
		c.SliceMS = def.SliceMS
	}
	if c.UserBlockingTimeoutMS <= 0 {
		c.UserBlockingTimeoutMS = def.UserBlockingTimeoutMS
	}
	if c.NormalTimeoutMS <= 0 {
		c.NormalTimeoutMS = def.NormalTimeoutMS
	}
	if c.LowTimeoutMS <= 0 {
		c.LowTimeoutMS = def.LowTimeoutMS
	}
	// keep the levels in their documented order
	if c.NormalTimeoutMS < c.UserBlockingTimeoutMS {
		c.NormalTimeoutMS = c.UserBlockingTimeoutMS
	}
	if c.LowTimeoutMS < c.NormalTimeoutMS {
		c.LowTimeoutMS = c.NormalTimeoutMS
	}
	if c.LowTimeoutMS > maxSigned31BitInt {
		c.LowTimeoutMS = maxSigned31BitInt
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	return c
}
