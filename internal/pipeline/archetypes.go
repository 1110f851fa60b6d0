package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/archetype"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards/seventeenlands"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// Archetypes ingests 17lands colour ratings into archetype stats keyed by
// normalised colour code, with a rolling win-rate history.
func (r *Runner) Archetypes(ctx context.Context) error {
	sets, err := r.TargetSets(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, set := range sets {
		if set.StartDate == "" {
			r.logger.Warn("set has no start date, skipped", zap.String("set", set.Code))
			continue
		}
		for _, format := range r.opts.RatingFormats {
			if err := r.formatArchetypes(ctx, set, format); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) formatArchetypes(ctx context.Context, set models.Set, format string) error {
	log := r.logger.With(zap.String("set", set.Code), zap.String("format", format))

	existing, err := r.store.GetArchetypeStats(ctx, set.Code, format)
	if err != nil {
		return fmt.Errorf("load archetype stats %s/%s: %w", set.Code, format, err)
	}

	params := r.ratingParams(set, format)
	params.CombineSplash = false
	ratings, err := r.data.GetColorRatings(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("colour ratings unavailable", zap.Error(err))
		return nil
	}

	records := mergeColorRatings(set.Code, format, existing, ratings)
	if len(records) == 0 {
		return nil
	}
	if err := r.store.UpsertArchetypeStats(ctx, records); err != nil {
		return fmt.Errorf("save archetype stats %s/%s: %w", set.Code, format, err)
	}
	log.Info("archetype stats saved", zap.Int("archetypes", len(records)))
	return nil
}

// mergeColorRatings keys ratings by cleaned colour code, skipping rows without
// games. The last rating of a duplicated code wins; output is sorted by code.
func mergeColorRatings(setCode, format string, existing []models.ArchetypeStat, ratings []seventeenlands.ColorRating) []models.ArchetypeStat {
	history := make(map[string][]float64, len(existing))
	for _, a := range existing {
		history[a.Colors] = a.WinRateHistory
	}

	byColors := make(map[string]models.ArchetypeStat)
	for i := range ratings {
		rating := &ratings[i]
		if rating.ColorName == "" || rating.Games == 0 {
			continue
		}
		colors := archetype.CleanColorCode(rating.ColorName)
		wr := stats.Round(rating.WinRatePercent(), 1)
		byColors[colors] = models.ArchetypeStat{
			SetCode:        setCode,
			Format:         format,
			Colors:         colors,
			ArchetypeName:  rating.ColorName,
			WinRate:        wr,
			WinRateHistory: appendHistory(history[colors], wr),
			GamesCount:     rating.Games,
		}
	}

	out := make([]models.ArchetypeStat, 0, len(byColors))
	for _, a := range byColors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Colors < out[j].Colors })
	return out
}
