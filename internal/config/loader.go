package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "arbiter.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ARBITER_PORT")
	setString(&cfg.Server.CORSOrigin, "ARBITER_CORS_ORIGIN")
	setInt(&cfg.Server.MaxInFlight, "ARBITER_MAX_IN_FLIGHT")
	setInt64(&cfg.Server.BodyLimitKB, "ARBITER_BODY_LIMIT_KB")
	setString(&cfg.Logging.Level, "ARBITER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ARBITER_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ARBITER_LOG_ASYNC")
	setBool(&cfg.Checkpoint.Enabled, "ARBITER_CHECKPOINTS_ENABLED")
	setFloat64(&cfg.Checkpoint.DefaultThreshold, "ARBITER_DEFAULT_THRESHOLD")
	setInt(&cfg.Checkpoint.MaxOptions, "ARBITER_MAX_OPTIONS")
	setInt(&cfg.Calibration.HistorySize, "ARBITER_CALIBRATION_HISTORY")
	setInt(&cfg.Calibration.MinSamples, "ARBITER_CALIBRATION_MIN_SAMPLES")
	setDuration(&cfg.Retention.SweepInterval, "ARBITER_SWEEP_INTERVAL")
	setDuration(&cfg.Retention.MaxAge, "ARBITER_RETENTION_MAX_AGE")
	setDuration(&cfg.Idempotency.TTL, "ARBITER_IDEMPOTENCY_TTL")
	setInt64(&cfg.Cache.MaxSizeMB, "ARBITER_CACHE_SIZE_MB")
}

// validate rejects configurations that would misbehave at runtime.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port is required")
	}
	if err := validateThreshold("default_threshold", cfg.Checkpoint.DefaultThreshold); err != nil {
		return err
	}
	for name, v := range cfg.Checkpoint.TypeThresholds {
		if err := validateThreshold("type_thresholds."+name, v); err != nil {
			return err
		}
	}
	if cfg.Checkpoint.MaxOptions < 2 {
		return fmt.Errorf("checkpoint max_options must be at least 2, got %d", cfg.Checkpoint.MaxOptions)
	}
	if cfg.Calibration.HistorySize < 1 {
		return fmt.Errorf("calibration history_size must be positive, got %d", cfg.Calibration.HistorySize)
	}
	if cfg.Calibration.MinSamples < 1 {
		return fmt.Errorf("calibration min_samples must be positive, got %d", cfg.Calibration.MinSamples)
	}
	if cfg.Retention.SweepInterval > 0 && cfg.Retention.MaxAge <= 0 {
		return errors.New("retention max_age must be positive when the sweep janitor is enabled")
	}
	return nil
}

func validateThreshold(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("checkpoint %s must be within [0,1], got %v", name, v)
	}
	return nil
}

// --- env overlay helpers ---

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
