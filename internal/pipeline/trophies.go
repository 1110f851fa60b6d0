package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/archetype"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards/seventeenlands"
	"github.com/ramonehamilton/draftlab/internal/mtga/trophy"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// TrophySummary counts the outcome of a trophy scrape.
type TrophySummary struct {
	Fetched         int `json:"total_fetched"`
	Saved           int `json:"total_saved"`
	SkippedOld      int `json:"skipped_old"`
	SkippedError    int `json:"skipped_error"`
	SkippedExisting int `json:"skipped_existing"`
}

func (s *TrophySummary) add(o TrophySummary) {
	s.Fetched += o.Fetched
	s.Saved += o.Saved
	s.SkippedOld += o.SkippedOld
	s.SkippedError += o.SkippedError
	s.SkippedExisting += o.SkippedExisting
}

// Trophies scrapes the 17lands trophy lists of every target set, format and
// colour combination, fetches the decklists of new trophies inside the time
// window, and saves them after each colour combination.
func (r *Runner) Trophies(ctx context.Context) (TrophySummary, error) {
	var total TrophySummary

	sets, err := r.TargetSets(ctx)
	if err != nil {
		return total, err
	}

	window := r.window()
	r.logger.Info("scraping trophies", zap.String("period", window.FormatPeriod()), zap.Int("sets", len(sets)))

	var errs []error
	for _, set := range sets {
		var summary TrophySummary
		for _, format := range r.opts.Formats {
			s, err := r.formatTrophies(ctx, set.Code, format, window)
			summary.add(s)
			if err != nil {
				if ctx.Err() != nil {
					total.add(summary)
					return total, ctx.Err()
				}
				errs = append(errs, err)
			}
		}
		r.logger.Info("trophy summary",
			zap.String("set", set.Code),
			zap.Int("fetched", summary.Fetched),
			zap.Int("saved", summary.Saved),
			zap.Int("skipped_existing", summary.SkippedExisting),
			zap.Int("skipped_old", summary.SkippedOld),
			zap.Int("skipped_error", summary.SkippedError))
		total.add(summary)
	}
	return total, errors.Join(errs...)
}

func (r *Runner) formatTrophies(ctx context.Context, setCode, format string, window stats.TimeRange) (TrophySummary, error) {
	var summary TrophySummary
	log := r.logger.With(zap.String("set", setCode), zap.String("format", format))

	existing, err := r.store.TrophyIDs(ctx, setCode, format)
	if err != nil {
		return summary, fmt.Errorf("load trophy ids %s/%s: %w", setCode, format, err)
	}
	log.Info("stored trophy decks", zap.Int("count", len(existing)))

	var errs []error
	for _, colors := range r.colorCombinations() {
		trophies, err := r.data.GetTrophies(ctx, seventeenlands.TrophyQuery{
			Expansion: setCode,
			EventType: format,
			Colors:    colors,
		})
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			log.Warn("trophies unavailable", zap.String("colors", colors), zap.Error(err))
			continue
		}

		var decks []models.TrophyDeck
		for _, t := range trophies {
			if !inWindow(t.Time, window) {
				summary.SkippedOld++
				continue
			}
			if t.AggregateID == "" {
				continue
			}
			if _, ok := existing[t.AggregateID]; ok {
				summary.SkippedExisting++
				continue
			}

			summary.Fetched++
			deck, err := r.data.GetDeck(ctx, t.AggregateID, 0)
			if err != nil {
				if ctx.Err() != nil {
					return summary, ctx.Err()
				}
				log.Debug("deck unavailable", zap.String("aggregate_id", t.AggregateID), zap.Error(err))
				summary.SkippedError++
				continue
			}
			cardlist := deck.Maindeck()
			if cardlist == nil {
				summary.SkippedError++
				continue
			}

			decks = append(decks, models.TrophyDeck{
				AggregateID: t.AggregateID,
				SetCode:     setCode,
				Format:      format,
				Archetype:   colors,
				Wins:        t.Wins,
				Losses:      t.Losses,
				TrophyTime:  t.Time,
				Cardlist:    cardlist,
				ScrapedAt:   r.now(),
			})
		}

		if len(decks) == 0 {
			continue
		}
		if err := r.store.UpsertTrophyDecks(ctx, decks); err != nil {
			log.Error("save trophy decks failed", zap.String("colors", colors), zap.Error(err))
			errs = append(errs, fmt.Errorf("save trophy decks %s/%s/%s: %w", setCode, format, colors, err))
			continue
		}
		summary.Saved += len(decks)
		for _, d := range decks {
			existing[d.AggregateID] = struct{}{}
		}
		log.Info("trophy decks saved", zap.String("colors", colors), zap.Int("decks", len(decks)))
	}
	return summary, errors.Join(errs...)
}

// window returns the configured trophy window, or the last 24 hours.
func (r *Runner) window() stats.TimeRange {
	if !r.opts.Window.Start.IsZero() || !r.opts.Window.End.IsZero() {
		return r.opts.Window
	}
	return stats.LastHours(r.now(), 24)
}

// colorCombinations returns the configured colours in WUBRG order, or all 31
// combinations.
func (r *Runner) colorCombinations() []string {
	if len(r.opts.Colors) == 0 {
		return archetype.AllColorCombinations()
	}
	seen := make(map[string]struct{}, len(r.opts.Colors))
	var combos []string
	for _, c := range r.opts.Colors {
		code := archetype.NormalizeColors(strings.ToUpper(c))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		combos = append(combos, code)
	}
	return combos
}

func inWindow(raw *string, window stats.TimeRange) bool {
	if raw == nil {
		return false
	}
	t, ok := trophy.ParseTime(*raw)
	return ok && window.Contains(t)
}
