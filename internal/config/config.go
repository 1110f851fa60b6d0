// Package config loads draftlab settings from a TOML file, a .env file and
// the environment, in that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "draftlab.toml"

// Store drivers.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
)

// Config represents the application configuration.
type Config struct {
	App      AppConfig      `toml:"app"`
	Store    StoreConfig    `toml:"store"`
	Targets  TargetsConfig  `toml:"targets"`
	Synergy  SynergyConfig  `toml:"synergy"`
	Skeleton SkeletonConfig `toml:"skeleton"`
	Upstream UpstreamConfig `toml:"upstream"`
}

// AppConfig contains logging settings.
type AppConfig struct {
	LogLevel string `toml:"log_level" env:"DRAFTLAB_LOG_LEVEL"` // debug|info|warn|error
	LogMode  string `toml:"log_mode" env:"DRAFTLAB_LOG_MODE"`   // development|production
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver string `toml:"driver" env:"DRAFTLAB_STORE_DRIVER"`

	// Path is the SQLite file.
	Path string `toml:"path" env:"DRAFTLAB_DB_PATH"`

	// DSN is the Postgres connection URL.
	DSN string `toml:"dsn" env:"DATABASE_URL"`

	// URL and APIKey address a Supabase/PostgREST project.
	URL         string `toml:"url" env:"SUPABASE_URL,VITE_SUPABASE_URL"`
	APIKey      string `toml:"api_key" env:"SUPABASE_KEY,VITE_SUPABASE_KEY"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

// TargetsConfig lists what the jobs process. Empty sets means all active sets;
// empty colors means every WUBRG combination.
type TargetsConfig struct {
	Sets          []string `toml:"sets"`
	Formats       []string `toml:"formats"`
	RatingFormats []string `toml:"rating_formats"`
	Colors        []string `toml:"colors"`
}

// SynergyConfig contains synergy engine settings.
type SynergyConfig struct {
	MinLift float64 `toml:"min_lift" env:"DRAFTLAB_MIN_LIFT"`
}

// SkeletonConfig contains skeleton build settings.
type SkeletonConfig struct {
	Workers int `toml:"workers" env:"DRAFTLAB_WORKERS"`

	// FormatWinRate is the format average GIH win rate (percent) used by the
	// importance ranking; 0 derives it from the card catalog.
	FormatWinRate float64 `toml:"format_win_rate"`
}

// UpstreamConfig contains HTTP client settings for 17lands and Scryfall.
type UpstreamConfig struct {
	SeventeenLandsURL      string `toml:"seventeenlands_url"`
	ScryfallURL            string `toml:"scryfall_url"`
	SeventeenLandsInterval string `toml:"seventeenlands_interval"` // Min time between 17lands requests
	ScryfallInterval       string `toml:"scryfall_interval"`       // Min time between Scryfall requests
	Timeout                string `toml:"timeout"`
	RetryUnit              string `toml:"retry_unit"` // Scales 17lands back-off waits
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: "info",
			LogMode:  "development",
		},
		Store: StoreConfig{
			Driver:      DriverSQLite,
			Path:        "data/draftlab.db",
			AutoMigrate: true,
		},
		Targets: TargetsConfig{
			Formats:       []string{"PremierDraft", "TradDraft"},
			RatingFormats: []string{"PremierDraft", "TradDraft", "Sealed", "ArenaDirect_Sealed"},
		},
		Synergy: SynergyConfig{
			MinLift: 1.2,
		},
		Skeleton: SkeletonConfig{
			Workers:       4,
			FormatWinRate: 55,
		},
		Upstream: UpstreamConfig{
			SeventeenLandsURL:      "https://www.17lands.com",
			ScryfallURL:            "https://api.scryfall.com",
			SeventeenLandsInterval: "3s",
			ScryfallInterval:       "100ms",
			Timeout:                "30s",
			RetryUnit:              "1s",
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies .env and
// environment overrides. An empty path reads DefaultPath and tolerates its
// absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports the variables of a .env file without overriding ones
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite store requires a path")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("postgres store requires a dsn (DATABASE_URL)")
		}
	case DriverPostgREST:
		if c.Store.URL == "" || c.Store.APIKey == "" {
			return fmt.Errorf("postgrest store requires url and api_key (SUPABASE_URL, SUPABASE_KEY)")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Synergy.MinLift <= 0 {
		return fmt.Errorf("min lift must be positive: %v", c.Synergy.MinLift)
	}
	if c.Skeleton.Workers < 1 {
		return fmt.Errorf("workers must be at least 1: %d", c.Skeleton.Workers)
	}
	if c.Skeleton.FormatWinRate < 0 {
		return fmt.Errorf("format win rate cannot be negative: %v", c.Skeleton.FormatWinRate)
	}
	if len(c.Targets.Formats) == 0 {
		return fmt.Errorf("at least one format is required")
	}

	for name, value := range map[string]string{
		"seventeenlands_interval": c.Upstream.SeventeenLandsInterval,
		"scryfall_interval":       c.Upstream.ScryfallInterval,
		"timeout":                 c.Upstream.Timeout,
		"retry_unit":              c.Upstream.RetryUnit,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	return nil
}

// Durations returns the parsed upstream durations. Call Validate first.
func (u UpstreamConfig) Durations() (seventeenLands, scryfall, timeout, retryUnit time.Duration) {
	seventeenLands, _ = time.ParseDuration(u.SeventeenLandsInterval)
	scryfall, _ = time.ParseDuration(u.ScryfallInterval)
	timeout, _ = time.ParseDuration(u.Timeout)
	retryUnit, _ = time.ParseDuration(u.RetryUnit)
	return
}
