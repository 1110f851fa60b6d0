package scryfall

import (
	"context"

	"go.uber.org/zap"
)

// Enrich resolves catalog metadata for the wanted card names of a set.
// Names are looked up in three passes, each limited to what is still missing:
// a set search, an exact-name collection lookup, then a fuzzy lookup per name.
// Double-faced cards are also indexed by their front face.
//
// Upstream failures of a pass are logged and the next pass proceeds; only a
// cancelled context aborts enrichment.
func (c *Client) Enrich(ctx context.Context, setCode string, wanted []string) (map[string]Metadata, error) {
	found := make(map[string]Metadata)

	cards, err := c.SearchSet(ctx, setCode)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("set search failed", zap.String("set", setCode), zap.Error(err))
	}
	addCards(found, cards)
	c.logger.Info("set search", zap.String("set", setCode), zap.Int("cards", len(cards)))

	if missing := missingNames(found, wanted); len(missing) > 0 {
		c.logger.Info("looking up missing cards by name", zap.Int("count", len(missing)))
		cards, _, err := c.GetCardsByNames(ctx, missing)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("collection lookup failed", zap.Error(err))
		}
		addCards(found, cards)
	}

	if missing := missingNames(found, wanted); len(missing) > 0 {
		c.logger.Info("fuzzy lookup", zap.Int("count", len(missing)))
		for _, name := range missing {
			card, err := c.GetCardNamed(ctx, name)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				c.logger.Debug("fuzzy lookup failed", zap.String("name", name), zap.Error(err))
				continue
			}
			addCards(found, []Card{*card})
			// A fuzzy hit may carry a different spelling than the one requested.
			found[name] = card.Metadata()
			c.logger.Info("fuzzy match", zap.String("wanted", name), zap.String("found", card.Name))
		}
	}

	return found, nil
}

func addCards(found map[string]Metadata, cards []Card) {
	for i := range cards {
		card := &cards[i]
		if card.Name == "" {
			continue
		}
		meta := card.Metadata()
		found[card.Name] = meta
		if front := card.FrontFace(); front != card.Name {
			found[front] = meta
		}
	}
}

func missingNames(found map[string]Metadata, wanted []string) []string {
	var missing []string
	seen := make(map[string]struct{}, len(wanted))
	for _, name := range wanted {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := found[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
