// Package pipeline runs the draftlab batch jobs: rating ingestion, trophy
// scraping, synergy computation and skeleton builds.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/mtga/cards/scryfall"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards/seventeenlands"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// historyLength is the number of win rates kept in a rolling history.
const historyLength = 14

// Store is the persistence the jobs read and write. It is implemented by
// storage.Store (SQLite, Postgres) and postgrest.Client.
type Store interface {
	UpsertSet(ctx context.Context, set models.Set) error
	ListSets(ctx context.Context, activeOnly bool) ([]models.Set, error)

	GetCardMeta(ctx context.Context, setCode, format string) ([]models.CardMeta, error)
	UpsertCardMeta(ctx context.Context, cards []models.CardMeta) error

	GetArchetypeStats(ctx context.Context, setCode, format string) ([]models.ArchetypeStat, error)
	UpsertArchetypeStats(ctx context.Context, stats []models.ArchetypeStat) error

	TrophyIDs(ctx context.Context, setCode, format string) (map[string]struct{}, error)
	UpsertTrophyDecks(ctx context.Context, decks []models.TrophyDeck) error
	GetTrophyDecks(ctx context.Context, setCode, format string) ([]models.TrophyDeck, error)

	ReplaceSynergies(ctx context.Context, setCode, format string, pairs []models.SynergyPair) error
	GetSynergyScores(ctx context.Context, setCode, format string) ([]models.SynergyScore, error)

	UpsertSkeletons(ctx context.Context, skeletons []models.ArchetypeSkeleton) error
	GetSkeletons(ctx context.Context, setCode, format string) ([]models.ArchetypeSkeleton, error)

	Close() error
}

// DraftData is the 17lands API surface used by the ingestion jobs.
type DraftData interface {
	GetCardRatings(ctx context.Context, params seventeenlands.QueryParams) ([]seventeenlands.CardRating, error)
	GetColorRatings(ctx context.Context, params seventeenlands.QueryParams) ([]seventeenlands.ColorRating, error)
	GetTrophies(ctx context.Context, q seventeenlands.TrophyQuery) ([]seventeenlands.Trophy, error)
	GetDeck(ctx context.Context, draftID string, deckIndex int) (*seventeenlands.Deck, error)
}

// Enricher resolves card type, cost and mana value by name.
type Enricher interface {
	Enrich(ctx context.Context, setCode string, wanted []string) (map[string]scryfall.Metadata, error)
}

// Options selects what the jobs process.
type Options struct {
	// Sets restricts processing to these set codes; empty means all active sets.
	Sets []string

	// Formats are the event types scraped for trophies, synergies and skeletons.
	Formats []string

	// RatingFormats are the event types ingested for card and colour ratings.
	RatingFormats []string

	// Colors restricts trophy scraping; empty means all 31 combinations.
	Colors []string

	// Window bounds trophy times; zero means the 24 hours before now.
	Window stats.TimeRange

	MinLift       float64
	Workers       int
	FormatWinRate float64

	// Now returns the reference time; defaults to time.Now.
	Now func() time.Time
}

// Runner executes the batch jobs against a store.
type Runner struct {
	store    Store
	data     DraftData
	enricher Enricher
	opts     Options
	logger   *zap.Logger
}

// New creates a Runner. data and enricher may be nil for jobs that only read
// and write the store (synergy, skeletons).
func New(store Store, data DraftData, enricher Enricher, opts Options, logger *zap.Logger) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:    store,
		data:     data,
		enricher: enricher,
		opts:     opts,
		logger:   logger.Named("pipeline"),
	}
}

// AddSet registers a set for ingestion.
func (r *Runner) AddSet(ctx context.Context, code, startDate string, active bool) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("set code is required")
	}
	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			return fmt.Errorf("invalid start date %q (want YYYY-MM-DD): %w", startDate, err)
		}
	}
	if err := r.store.UpsertSet(ctx, models.Set{Code: code, StartDate: startDate, Active: active}); err != nil {
		return fmt.Errorf("save set %s: %w", code, err)
	}
	r.logger.Info("set registered", zap.String("set", code), zap.String("start_date", startDate), zap.Bool("active", active))
	return nil
}

// TargetSets returns the active sets to process, restricted to Options.Sets
// when given. Requested codes that are not active are logged and skipped.
func (r *Runner) TargetSets(ctx context.Context) ([]models.Set, error) {
	active, err := r.store.ListSets(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list active sets: %w", err)
	}
	if len(r.opts.Sets) == 0 {
		return active, nil
	}

	byCode := make(map[string]models.Set, len(active))
	for _, s := range active {
		byCode[s.Code] = s
	}
	var targets []models.Set
	for _, code := range r.opts.Sets {
		code = strings.ToUpper(code)
		s, ok := byCode[code]
		if !ok {
			r.logger.Warn("set not found among active sets", zap.String("set", code))
			continue
		}
		targets = append(targets, s)
	}
	return targets, nil
}

// Run executes cards, archetypes, trophies, synergy and skeletons in order.
// A failing job is reported but does not stop later ones, except on
// cancellation.
func (r *Runner) Run(ctx context.Context) error {
	jobs := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"cards", r.Cards},
		{"archetypes", r.Archetypes},
		{"trophies", func(ctx context.Context) error { _, err := r.Trophies(ctx); return err }},
		{"synergy", r.Synergy},
		{"skeletons", r.Skeletons},
	}

	var errs []error
	for _, job := range jobs {
		start := time.Now()
		r.logger.Info("job started", zap.String("job", job.name))
		if err := job.fn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("job failed", zap.String("job", job.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", job.name, err))
			continue
		}
		r.logger.Info("job finished", zap.String("job", job.name), zap.Duration("elapsed", time.Since(start)))
	}
	return errors.Join(errs...)
}

func (r *Runner) now() time.Time {
	return r.opts.Now().UTC()
}

// ratingParams builds a 17lands rating query from the set start date to today.
// Sealed formats combine splash decks.
func (r *Runner) ratingParams(set models.Set, format string) seventeenlands.QueryParams {
	return seventeenlands.QueryParams{
		Expansion:     set.Code,
		EventType:     format,
		StartDate:     set.StartDate,
		EndDate:       r.now().Format("2006-01-02"),
		CombineSplash: strings.Contains(format, "Sealed"),
	}
}

// appendHistory appends v and keeps the last historyLength values.
func appendHistory(history []float64, v float64) []float64 {
	out := make([]float64, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, v)
	if len(out) > historyLength {
		out = out[len(out)-historyLength:]
	}
	return out
}
