// Package config loads application settings from defaults, an optional YAML
// file, an optional .env file and XLMAP_* environment variables, in that
// order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Config holds every setting of the application.
type Config struct {
	AddressCSV        string    `yaml:"address_csv"`
	ColumnDictionary  string    `yaml:"column_dictionary"`
	TaskLogDB         string    `yaml:"task_log_db"`
	Workers           int       `yaml:"workers"`
	EventBuffer       int       `yaml:"event_buffer"`
	FuzzyThreshold    int       `yaml:"fuzzy_threshold"`
	RoundingPrecision int       `yaml:"rounding_precision"`
	WatchAddresses    bool      `yaml:"watch_addresses"`
	Log               LogConfig `yaml:"log"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		AddressCSV:        "data/geocoding/addresses.csv",
		ColumnDictionary:  "data/dictionaries/columns.json",
		TaskLogDB:         "data/app.db",
		Workers:           4,
		EventBuffer:       64,
		FuzzyThreshold:    85,
		RoundingPrecision: 4,
		Log:               LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration. path is an optional YAML file; an empty
// path skips it. A .env file in the working directory is read when present.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"XLMAP_ADDRESS_CSV":       &c.AddressCSV,
		"XLMAP_COLUMN_DICTIONARY": &c.ColumnDictionary,
		"XLMAP_TASK_LOG_DB":       &c.TaskLogDB,
		"XLMAP_LOG_LEVEL":         &c.Log.Level,
		"XLMAP_LOG_FORMAT":        &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	ints := map[string]*int{
		"XLMAP_WORKERS":         &c.Workers,
		"XLMAP_EVENT_BUFFER":    &c.EventBuffer,
		"XLMAP_FUZZY_THRESHOLD": &c.FuzzyThreshold,
		"XLMAP_ROUNDING":        &c.RoundingPrecision,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	if v, ok := lookup("XLMAP_WATCH_ADDRESSES"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("XLMAP_WATCH_ADDRESSES: %w", err)
		}
		c.WatchAddresses = b
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.EventBuffer < 1 {
		errs = append(errs, fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer))
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		errs = append(errs, fmt.Errorf("fuzzy_threshold must be within 0..100, got %d", c.FuzzyThreshold))
	}
	if c.RoundingPrecision < 0 {
		errs = append(errs, fmt.Errorf("rounding_precision must not be negative, got %d", c.RoundingPrecision))
	}
	return errors.Join(errs...)
}
