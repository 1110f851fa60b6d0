package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/mtga/synergy"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

const topPairsLogged = 10

// Synergy recomputes the lift pairs of every target set and format from the
// stored trophy decks and replaces the stored pairs.
func (r *Runner) Synergy(ctx context.Context) error {
	sets, err := r.TargetSets(ctx)
	if err != nil {
		return err
	}

	engine := synergy.NewEngine(r.opts.MinLift)
	var errs []error
	for _, set := range sets {
		for _, format := range r.opts.Formats {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.formatSynergy(ctx, engine, set.Code, format); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) formatSynergy(ctx context.Context, engine *synergy.Engine, setCode, format string) error {
	log := r.logger.With(zap.String("set", setCode), zap.String("format", format))

	decks, err := r.store.GetTrophyDecks(ctx, setCode, format)
	if err != nil {
		return fmt.Errorf("load trophy decks %s/%s: %w", setCode, format, err)
	}
	if len(decks) == 0 {
		log.Info("no trophy decks, synergy skipped")
		return nil
	}

	records := synergy.ToRecords(setCode, format, engine.Compute(decks), r.now())
	if len(records) == 0 {
		log.Info("no pairs above thresholds, stored synergies kept", zap.Int("decks", len(decks)))
		return nil
	}
	if err := r.store.ReplaceSynergies(ctx, setCode, format, records); err != nil {
		return fmt.Errorf("save synergies %s/%s: %w", setCode, format, err)
	}
	log.Info("synergies saved", zap.Int("decks", len(decks)), zap.Int("pairs", len(records)))

	logTopPairs(log, "lift", records, func(p models.SynergyPair) float64 { return p.Lift })
	logTopPairs(log, "confidence_a_to_b", records, func(p models.SynergyPair) float64 { return p.ConfidenceAToB })
	logTopPairs(log, "confidence_b_to_a", records, func(p models.SynergyPair) float64 { return p.ConfidenceBToA })
	return nil
}

func logTopPairs(log *zap.Logger, by string, records []models.SynergyPair, key func(models.SynergyPair) float64) {
	for i, p := range synergy.Top(records, topPairsLogged, key) {
		log.Info("top pair",
			zap.String("by", by),
			zap.Int("rank", i+1),
			zap.String("card_a", p.CardA),
			zap.String("card_b", p.CardB),
			zap.Float64("lift", p.Lift),
			zap.Float64("confidence_a_to_b", p.ConfidenceAToB),
			zap.Float64("confidence_b_to_a", p.ConfidenceBToA),
			zap.Int("co_occurrence", p.CoOccurrenceCount))
	}
}
