// Package config provides hierarchical configuration loading for Arbiter.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Arbiter service.
type Config struct {
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
	Checkpoint  Checkpoint  `yaml:"checkpoint"`
	Calibration Calibration `yaml:"calibration"`
	Retention   Retention   `yaml:"retention"`
	Idempotency Idempotency `yaml:"idempotency"`
	Cache       Cache       `yaml:"cache"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port        string `yaml:"port"`
	CORSOrigin  string `yaml:"cors_origin"`
	MaxInFlight int    `yaml:"max_in_flight"` // concurrent request cap (chi Throttle)
	BodyLimitKB int64  `yaml:"body_limit_kb"` // max request body size
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Checkpoint holds the review-gate configuration: whether checkpoints are
// enabled at all, the confidence thresholds below which a decision needs
// human review, and the option-count cap per checkpoint.
type Checkpoint struct {
	Enabled          bool               `yaml:"enabled"`
	DefaultThreshold float64            `yaml:"default_threshold"`
	TypeThresholds   map[string]float64 `yaml:"type_thresholds"`
	MaxOptions       int                `yaml:"max_options"`
}

// Calibration holds the outcome-history configuration.
type Calibration struct {
	HistorySize int `yaml:"history_size"` // bounded record count; oldest evicted first
	MinSamples  int `yaml:"min_samples"`  // below this, analysis reports insufficient data
}

// Retention holds terminal-checkpoint sweep configuration. A zero
// SweepInterval disables the background janitor; sweeping then happens
// only when an operator triggers it.
type Retention struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxAge        time.Duration `yaml:"max_age"`
}

// Idempotency holds the response-replay cache configuration for mutating requests.
type Idempotency struct {
	TTL time.Duration `yaml:"ttl"`
}

// Cache holds in-process cache sizing.
type Cache struct {
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:        "8086",
			CORSOrigin:  "http://localhost:3000",
			MaxInFlight: 256,
			BodyLimitKB: 256,
		},
		Logging: Logging{
			Level:   "info",
			Service: "arbiter",
		},
		Checkpoint: Checkpoint{
			Enabled:          true,
			DefaultThreshold: 0.7,
			TypeThresholds: map[string]float64{
				// Executing is hard to undo; it takes materially more
				// confidence to skip review than the other types.
				"execution": 0.9,
			},
			MaxOptions: 10,
		},
		Calibration: Calibration{
			HistorySize: 1000,
			MinSamples:  10,
		},
		Retention: Retention{
			SweepInterval: 0, // janitor off; sweeps are operator-triggered
			MaxAge:        24 * time.Hour,
		},
		Idempotency: Idempotency{
			TTL: 24 * time.Hour,
		},
		Cache: Cache{
			MaxSizeMB: 64,
		},
	}
}
