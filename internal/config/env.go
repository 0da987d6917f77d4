package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration.
const (
	EnvRoot            = "AEBENCH_ROOT"
	EnvMeasurementTime = "AEBENCH_MEASUREMENT_TIME"
	EnvSamples         = "AEBENCH_SAMPLES"
	EnvProfile         = "AEBENCH_PROFILE"
	EnvNiceness        = "AEBENCH_NICENESS"
	EnvBaseline        = "AEBENCH_BASELINE"
	EnvSudoUser        = "AEBENCH_SUDO_USER"
	EnvLogLevel        = "AEBENCH_LOG_LEVEL"
	EnvMaxLoad         = "AEBENCH_MAX_LOAD"
)

// LoadDotEnv loads a .env file from root into the process environment.
// Variables already set are left alone; a missing file is ignored.
func LoadDotEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides configuration values from AEBENCH_* variables and
// re-validates the result.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvMeasurementTime); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMeasurementTime, err)
		}
		c.Bench.MeasurementTime = d
	}
	if v := os.Getenv(EnvSamples); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSamples, err)
		}
		c.Bench.Samples = n
	}
	if v := os.Getenv(EnvNiceness); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNiceness, err)
		}
		c.Priority.Niceness = n
	}
	if v := os.Getenv(EnvMaxLoad); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxLoad, err)
		}
		c.Quiet.MaxLoad = f
	}
	if v := os.Getenv(EnvProfile); v != "" {
		c.Bench.Profile = v
	}
	if v := os.Getenv(EnvBaseline); v != "" {
		c.Baseline.Path = v
	}
	if v := os.Getenv(EnvSudoUser); v != "" {
		c.Priority.User = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return c.Validate()
}
