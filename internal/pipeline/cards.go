package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards/scryfall"
	"github.com/ramonehamilton/draftlab/internal/mtga/cards/seventeenlands"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

const unmatchedLogLimit = 5

// Cards ingests 17lands card ratings for every target set and rating format,
// extends each card's win-rate history, fills type, cost and mana value from
// the enricher, and upserts the card catalog.
func (r *Runner) Cards(ctx context.Context) error {
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
		if err := r.setCards(ctx, set); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) setCards(ctx context.Context, set models.Set) error {
	log := r.logger.With(zap.String("set", set.Code))

	rows := make(map[string][]models.CardMeta, len(r.opts.RatingFormats))
	var wanted []string
	seen := make(map[string]struct{})

	for _, format := range r.opts.RatingFormats {
		existing, err := r.store.GetCardMeta(ctx, set.Code, format)
		if err != nil {
			return fmt.Errorf("load cards %s/%s: %w", set.Code, format, err)
		}

		ratings, err := r.data.GetCardRatings(ctx, r.ratingParams(set, format))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("card ratings unavailable", zap.String("format", format), zap.Error(err))
			continue
		}

		merged := withBasicLands(set.Code, format, mergeRatings(set.Code, format, existing, ratings))
		for _, c := range merged {
			if c.TypeLine != "" {
				continue
			}
			if _, ok := seen[c.Name]; !ok {
				seen[c.Name] = struct{}{}
				wanted = append(wanted, c.Name)
			}
		}
		rows[format] = merged
		log.Info("card ratings fetched", zap.String("format", format), zap.Int("cards", len(merged)))
	}

	if len(wanted) > 0 && r.enricher != nil {
		meta, err := r.enricher.Enrich(ctx, set.Code, wanted)
		if err != nil {
			return fmt.Errorf("enrich %s: %w", set.Code, err)
		}
		logUnmatched(log, wanted, meta)
		for format := range rows {
			applyMetadata(rows[format], meta)
		}
	}

	var errs []error
	for _, format := range r.opts.RatingFormats {
		batch, ok := rows[format]
		if !ok || len(batch) == 0 {
			continue
		}
		if err := r.store.UpsertCardMeta(ctx, batch); err != nil {
			log.Error("save cards failed", zap.String("format", format), zap.Error(err))
			errs = append(errs, fmt.Errorf("save cards %s/%s: %w", set.Code, format, err))
			continue
		}
		log.Info("cards saved", zap.String("format", format), zap.Int("cards", len(batch)))
	}
	return errors.Join(errs...)
}

// mergeRatings turns ratings into catalog rows, carrying over the stored
// history and Scryfall fields. Rows are sorted by name; the last rating of a
// duplicated name wins.
func mergeRatings(setCode, format string, existing []models.CardMeta, ratings []seventeenlands.CardRating) []models.CardMeta {
	stored := make(map[string]models.CardMeta, len(existing))
	for _, c := range existing {
		stored[c.Name] = c
	}

	merged := make(map[string]models.CardMeta, len(ratings))
	for i := range ratings {
		rating := &ratings[i]
		if rating.Name == "" {
			continue
		}
		prev := stored[rating.Name]

		row := models.CardMeta{
			SetCode:        setCode,
			Format:         format,
			Name:           rating.Name,
			TypeLine:       prev.TypeLine,
			ManaCost:       prev.ManaCost,
			ManaValue:      prev.ManaValue,
			Rarity:         rating.Rarity,
			Colors:         rating.Color,
			AverageSeen:    rating.AverageSeen(),
			GameCount:      rating.GameCount,
			WinRateHistory: prev.WinRateHistory,
		}
		if row.Rarity == "" {
			row.Rarity = "common"
		}
		if wr := rating.GIHWinRatePercent(); wr != nil {
			v := stats.Round(*wr, 2)
			row.WinRate = &v
			row.WinRateHistory = appendHistory(prev.WinRateHistory, v)
		}
		merged[row.Name] = row
	}

	out := make([]models.CardMeta, 0, len(merged))
	for _, row := range merged {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// withBasicLands adds the five basic lands, which 17lands does not rate, so
// the basics of trophy decks are counted as lands. Rows stay sorted by name.
func withBasicLands(setCode, format string, rows []models.CardMeta) []models.CardMeta {
	index := make(map[string]int, len(rows))
	for i := range rows {
		index[rows[i].Name] = i
	}
	for i := 0; i < len(cards.Colors); i++ {
		name := cards.BasicLandNames[cards.Colors[i]]
		if j, ok := index[name]; ok {
			if rows[j].TypeLine == "" {
				rows[j].TypeLine = cards.BasicLandTypeLine(name)
			}
			continue
		}
		rows = append(rows, models.CardMeta{
			SetCode:  setCode,
			Format:   format,
			Name:     name,
			TypeLine: cards.BasicLandTypeLine(name),
			Rarity:   "common",
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func applyMetadata(rows []models.CardMeta, meta map[string]scryfall.Metadata) {
	for i := range rows {
		if rows[i].TypeLine != "" {
			continue
		}
		if m, ok := meta[rows[i].Name]; ok {
			rows[i].TypeLine = m.TypeLine
			rows[i].ManaCost = m.ManaCost
			rows[i].ManaValue = m.ManaValue
		}
	}
}

func logUnmatched(log *zap.Logger, wanted []string, meta map[string]scryfall.Metadata) {
	var unmatched []string
	for _, name := range wanted {
		if _, ok := meta[name]; !ok {
			unmatched = append(unmatched, name)
		}
	}
	log.Info("cards enriched", zap.Int("matched", len(wanted)-len(unmatched)), zap.Int("wanted", len(wanted)))
	if len(unmatched) > 0 {
		sample := unmatched
		if len(sample) > unmatchedLogLimit {
			sample = sample[:unmatchedLogLimit]
		}
		log.Warn("cards without catalog data", zap.Int("count", len(unmatched)), zap.Strings("sample", sample))
	}
}
