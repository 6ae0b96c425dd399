// Package config loads unx2 settings from defaults, an optional YAML file
// and UNX2_* environment variables, in increasing order of precedence.
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = ".unx2"
	configFileType = "yaml"
	envPrefix      = "UNX2"

	// Config keys.
	KeyTable    = "table"
	KeyDB       = "db"
	KeyDelay    = "delay"
	KeyMaxSteps = "max_steps"
	KeyLogLevel = "log_level"

	DefaultTable    = ""
	DefaultMaxSteps = 0
	DefaultLogLevel = "info"
)

// Config holds the resolved settings.
type Config struct {
	// Table is the default algorithm: a built-in name or P/m. Empty means
	// the run command asks for one.
	Table string

	// DB is the SQLite run log path. Empty disables persistence.
	DB string

	// Delay is the pause between rendered configurations.
	Delay time.Duration

	// MaxSteps is the step quota for a run. Zero means unlimited.
	MaxSteps int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// File is the config file that was read, if any.
	File string
}

// Load resolves the configuration.
//
// With an explicit path the file must exist. Otherwise .unx2.yaml is looked
// up in the working directory, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyTable, DefaultTable)
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyDelay, time.Duration(0))
	v.SetDefault(KeyMaxSteps, DefaultMaxSteps)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
		v.SetConfigType(configFileType)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Table:    v.GetString(KeyTable),
		DB:       v.GetString(KeyDB),
		Delay:    v.GetDuration(KeyDelay),
		MaxSteps: v.GetInt(KeyMaxSteps),
		LogLevel: strings.ToLower(v.GetString(KeyLogLevel)),
		File:     v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("config %s: must be non-negative, got %s", KeyDelay, c.Delay)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("config %s: must be non-negative, got %d", KeyMaxSteps, c.MaxSteps)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config %s: unknown level %q", KeyLogLevel, c.LogLevel)
	}
	return nil
}
