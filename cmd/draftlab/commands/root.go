// Package commands implements the draftlab command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/draftlab/internal/config"
	"github.com/ramonehamilton/draftlab/internal/logging"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards/scryfall"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards/seventeenlands"
	"github.com/ramonehamilton/draftlab/internal/pipeline"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage"
	"github.com/ramonehamilton/draftlab/internal/storage/postgrest"
	"github.com/ramonehamilton/draftlab/internal/version"
)

// env is the state shared by every subcommand, built before it runs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  pipeline.Store
	runner *pipeline.Runner
}

var (
	configPath string
	current    *env
)

var rootCmd = &cobra.Command{
	Use:     "draftlab",
	Short:   "draftlab ingests 17lands draft data and builds archetype skeletons.",
	Version: version.Version,

	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultPath+")")
	addOverrideFlags(rootCmd.PersistentFlags())
}

// addOverrideFlags registers the flags applyFlags copies over the config.
func addOverrideFlags(flags *pflag.FlagSet) {
	flags.StringSlice("sets", nil, "set codes to process (default: all active sets)")
	flags.StringSlice("formats", nil, "event formats to process")
	flags.StringSlice("colors", nil, "colour combinations to scrape trophies for")
	flags.Float64("min-lift", 0, "minimum lift for a stored synergy pair")
	flags.Int("workers", 0, "concurrent skeleton builds")
	flags.String("date", "", "scrape trophies of one UTC day (YYYY-MM-DD) instead of the last 24 hours")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
}

// ExecuteContext runs the root command and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	// Post-run hooks are skipped when RunE fails.
	_ = teardown(cmd, args)

	cfg, window, logger, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return err
	}

	seventeenLandsEvery, scryfallEvery, timeout, retryUnit := cfg.Upstream.Durations()
	data := seventeenlands.NewClient(seventeenlands.ClientOptions{
		BaseURL:   cfg.Upstream.SeventeenLandsURL,
		RateLimit: rate.Every(seventeenLandsEvery),
		Timeout:   timeout,
		RetryUnit: retryUnit,
		Logger:    logger,
	})
	enricher := scryfall.NewClient(scryfall.Options{
		BaseURL:   cfg.Upstream.ScryfallURL,
		RateLimit: rate.Every(scryfallEvery),
		Timeout:   timeout,
		Logger:    logger,
	})

	runner := pipeline.New(store, data, enricher, pipeline.Options{
		Sets:          cfg.Targets.Sets,
		Formats:       cfg.Targets.Formats,
		RatingFormats: cfg.Targets.RatingFormats,
		Colors:        cfg.Targets.Colors,
		Window:        window,
		MinLift:       cfg.Synergy.MinLift,
		Workers:       cfg.Skeleton.Workers,
		FormatWinRate: cfg.Skeleton.FormatWinRate,
	}, logger)

	current = &env{cfg: cfg, logger: logger, store: store, runner: runner}
	return nil
}

// loadConfig reads the config file, applies flag overrides and builds the
// logger.
func loadConfig(flags *pflag.FlagSet) (*config.Config, stats.TimeRange, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, stats.TimeRange{}, nil, err
	}
	window, err := applyFlags(flags, cfg)
	if err != nil {
		return nil, stats.TimeRange{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, stats.TimeRange{}, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.App.LogMode, cfg.App.LogLevel)
	if err != nil {
		return nil, stats.TimeRange{}, nil, err
	}
	return cfg, window, logger, nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if current == nil {
		return nil
	}
	err := current.store.Close()
	_ = current.logger.Sync()
	current = nil
	return err
}

// applyFlags copies explicitly set flags over the loaded config and returns
// the trophy window selected by --date, zero when unset.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) (stats.TimeRange, error) {
	if flags.Changed("sets") {
		sets, _ := flags.GetStringSlice("sets")
		cfg.Targets.Sets = upper(sets)
	}
	if flags.Changed("formats") {
		cfg.Targets.Formats, _ = flags.GetStringSlice("formats")
	}
	if flags.Changed("colors") {
		colors, _ := flags.GetStringSlice("colors")
		cfg.Targets.Colors = upper(colors)
	}
	if flags.Changed("min-lift") {
		cfg.Synergy.MinLift, _ = flags.GetFloat64("min-lift")
	}
	if flags.Changed("workers") {
		cfg.Skeleton.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("log-level") {
		cfg.App.LogLevel, _ = flags.GetString("log-level")
	}

	var window stats.TimeRange
	if date, _ := flags.GetString("date"); date != "" {
		var err error
		if window, err = stats.DayRange(date); err != nil {
			return stats.TimeRange{}, err
		}
	}
	return window, nil
}

// openStore connects the backend selected by the config.
func openStore(cfg *config.Config, logger *zap.Logger) (pipeline.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		dbConfig := databaseConfig(cfg)
		dbConfig.AutoMigrate = cfg.Store.AutoMigrate
		db, err := storage.Open(dbConfig)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
		}
		logger.Debug("store opened", zap.String("driver", cfg.Store.Driver))
		return storage.NewStore(db), nil

	case config.DriverPostgREST:
		_, _, timeout, _ := cfg.Upstream.Durations()
		return postgrest.New(postgrest.Options{
			URL:     cfg.Store.URL,
			APIKey:  cfg.Store.APIKey,
			Timeout: timeout,
			Logger:  logger,
		})

	default:
		return nil, errors.New("unknown store driver " + cfg.Store.Driver)
	}
}

// databaseConfig maps the store section onto a SQL database config.
func databaseConfig(cfg *config.Config) *storage.Config {
	if cfg.Store.Driver == config.DriverPostgres {
		return storage.PostgresConfig(cfg.Store.DSN)
	}
	return storage.DefaultConfig(cfg.Store.Path)
}

func upper(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
