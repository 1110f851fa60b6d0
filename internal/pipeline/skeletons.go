package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/draftlab/internal/archetype"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
	"github.com/ramonehamilton/draftlab/internal/mtga/trophy"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// Skeletons builds the main and alternative skeleton of every archetype with
// enough trophy decks, for every target set and format.
func (r *Runner) Skeletons(ctx context.Context) error {
	sets, err := r.TargetSets(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, set := range sets {
		for _, format := range r.opts.Formats {
			if err := r.formatSkeletons(ctx, set.Code, format); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) formatSkeletons(ctx context.Context, setCode, format string) error {
	log := r.logger.With(zap.String("set", setCode), zap.String("format", format))

	rows, err := r.store.GetCardMeta(ctx, setCode, format)
	if err != nil {
		return fmt.Errorf("load cards %s/%s: %w", setCode, format, err)
	}
	decks, err := r.store.GetTrophyDecks(ctx, setCode, format)
	if err != nil {
		return fmt.Errorf("load trophy decks %s/%s: %w", setCode, format, err)
	}
	scores, err := r.store.GetSynergyScores(ctx, setCode, format)
	if err != nil {
		return fmt.Errorf("load synergy scores %s/%s: %w", setCode, format, err)
	}
	if len(decks) == 0 || len(rows) == 0 {
		log.Info("no decks or cards, skeletons skipped", zap.Int("decks", len(decks)), zap.Int("cards", len(rows)))
		return nil
	}

	catalog := cards.NewCatalog(rows)
	builder := archetype.NewBuilder(catalog, r.now(), r.opts.FormatWinRate)
	inputs := r.skeletonInputs(log, catalog, setCode, format, decks, scores)

	skeletons, err := r.buildAll(ctx, builder, inputs)
	if err != nil {
		return err
	}
	if len(skeletons) == 0 {
		log.Info("no skeletons built")
		return nil
	}

	runID := uuid.NewString()
	for i := range skeletons {
		skeletons[i].RunID = runID
	}
	if err := r.store.UpsertSkeletons(ctx, skeletons); err != nil {
		return fmt.Errorf("save skeletons %s/%s: %w", setCode, format, err)
	}
	log.Info("skeletons saved", zap.Int("skeletons", len(skeletons)), zap.String("run_id", runID))
	return nil
}

// skeletonInputs groups decks by archetype label, drops small groups and
// splits each remaining group into its main and alternative decks.
func (r *Runner) skeletonInputs(log *zap.Logger, catalog *cards.Catalog, setCode, format string, decks []models.TrophyDeck, scores []models.SynergyScore) []archetype.Input {
	var inputs []archetype.Input
	for _, g := range trophy.GroupByArchetype(decks) {
		if len(g.Decks) < trophy.MinGroupSize {
			log.Debug("archetype skipped", zap.String("archetype", g.Label), zap.Int("decks", len(g.Decks)))
			continue
		}

		matched, total := catalog.MatchRate(distinctNames(g.Decks))
		log.Info("catalog match",
			zap.String("archetype", g.Label),
			zap.Int("matched", matched),
			zap.Int("total", total),
			zap.Int("decks", len(g.Decks)))

		main, alt := archetype.Split(g.Decks)
		inputs = append(inputs, archetype.Input{
			SetCode:   setCode,
			Format:    format,
			Archetype: g.Label,
			Decks:     main,
			Synergies: scores,
		})
		if len(alt) > 0 {
			log.Info("alternative build detected",
				zap.String("archetype", g.Label),
				zap.Int("main", len(main)),
				zap.Int("alternative", len(alt)))
			inputs = append(inputs, archetype.Input{
				SetCode:     setCode,
				Format:      format,
				Archetype:   g.Label,
				Alternative: true,
				Decks:       alt,
				Synergies:   scores,
			})
		}
	}
	return inputs
}

// buildAll runs the builds on up to Workers goroutines and returns the
// skeletons in input order.
func (r *Runner) buildAll(ctx context.Context, builder *archetype.Builder, inputs []archetype.Input) ([]models.ArchetypeSkeleton, error) {
	results := make([]*models.ArchetypeSkeleton, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range inputs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if sk, ok := builder.Build(inputs[i]); ok {
				results[i] = sk
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	skeletons := make([]models.ArchetypeSkeleton, 0, len(results))
	for i, sk := range results {
		if sk == nil {
			r.logger.Warn("no skeleton",
				zap.String("archetype", inputs[i].Archetype),
				zap.Bool("alternative", inputs[i].Alternative),
				zap.Int("decks", len(inputs[i].Decks)))
			continue
		}
		skeletons = append(skeletons, *sk)
	}
	return skeletons, nil
}

func distinctNames(decks []models.TrophyDeck) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, d := range decks {
		for name := range d.Cardlist {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}
