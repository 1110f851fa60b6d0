package archetype

import (
	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

const (
	nonBasicLandShare = 0.2
	maxCommonPairs    = 2
	curveSlack        = 2
)

// selection tracks the deck list while it is being filled.
type selection struct {
	deck []models.DeckEntry
	used map[string]struct{}
}

func (s *selection) add(entry *cards.Entry, qty int) {
	for i := 0; i < qty; i++ {
		s.deck = append(s.deck, deckEntry(entry))
	}
	s.used[entry.Name] = struct{}{}
}

func deckEntry(entry *cards.Entry) models.DeckEntry {
	if entry.Tags.IsLand() {
		return models.DeckEntry{
			Name:   entry.Name,
			CMC:    0,
			Type:   entry.TypeLine,
			Cost:   "",
			Rarity: entry.Rarity,
		}
	}
	return models.DeckEntry{
		Name:   entry.Name,
		CMC:    entry.ManaValue(),
		Type:   entry.TypeLine,
		Cost:   entry.ManaCost,
		Rarity: entry.Rarity,
	}
}

// selectDeck fills exactly DeckSize slots: non-basic lands, then spells under
// type quotas and curve limits, then basics for every slot left.
func (b *Builder) selectDeck(label string, agg *aggregate, candidates []candidate) []models.DeckEntry {
	sel := &selection{
		deck: make([]models.DeckEntry, 0, DeckSize),
		used: make(map[string]struct{}),
	}

	targetLands := stats.RoundInt(agg.avgLands)
	if targetLands > DeckSize {
		targetLands = DeckSize
	}
	landsAdded := b.selectNonBasicLands(sel, agg, candidates, targetLands)

	// Slots still owed to basics are kept out of the spell budget.
	targetSpells := DeckSize - max(targetLands, landsAdded)
	b.selectSpells(sel, agg, candidates, targetSpells)

	remaining := DeckSize - len(sel.deck)
	counts := basicLandCounts(selectedPips(sel.deck), remaining, label)
	for i := 0; i < len(cards.Colors); i++ {
		if counts[i] == 0 {
			continue
		}
		sel.add(b.basicLand(cards.Colors[i]), counts[i])
	}

	return sel.deck
}

// selectNonBasicLands adds one copy of each non-basic land present in more
// than 20% of the weighted deck mass, up to targetLands.
func (b *Builder) selectNonBasicLands(sel *selection, agg *aggregate, candidates []candidate, targetLands int) int {
	added := 0
	for _, c := range candidates {
		if added >= targetLands {
			break
		}
		if !c.entry.Tags.IsLand() || c.entry.Tags.IsBasic() || cards.IsBasicLandName(c.entry.Name) {
			continue
		}
		if stats.Ratio(c.weight, agg.totalWeight) <= nonBasicLandShare {
			continue
		}
		sel.add(c.entry, 1)
		added++
	}
	return added
}

// selectSpells walks spell candidates in score order under creature and
// non-creature quotas and the average curve, then tops up with unused
// candidates if slots remain.
func (b *Builder) selectSpells(sel *selection, agg *aggregate, candidates []candidate, targetSpells int) {
	if targetSpells <= 0 {
		return
	}

	ratio := stats.Ratio(agg.avgCreatures, DeckSize-agg.avgLands)
	targetCreatures := stats.RoundInt(float64(targetSpells) * ratio)
	targetNonCreatures := targetSpells - targetCreatures

	var (
		spells, creatures, nonCreatures, commonPairs int
		curve                                        [curveBuckets]int
	)

	for _, c := range candidates {
		if spells >= targetSpells {
			break
		}
		e := c.entry
		if e.Tags.IsLand() {
			continue
		}

		isCreature := e.Tags.IsCreature()
		if isCreature && creatures >= targetCreatures+1 {
			continue
		}
		if !isCreature && nonCreatures >= targetNonCreatures+1 {
			continue
		}

		qty := 1
		if e.Rarity == "common" && commonPairs < maxCommonPairs && c.weight > agg.totalWeight {
			qty = 2
		}

		headroom := targetNonCreatures + 1 - nonCreatures
		if isCreature {
			headroom = targetCreatures + 1 - creatures
		}
		qty = min(qty, targetSpells-spells, headroom)
		if qty <= 0 {
			continue
		}

		mv := e.ManaValue()
		if curve[mv] >= stats.RoundInt(agg.avgCurve[mv])+curveSlack {
			continue
		}

		sel.add(e, qty)
		curve[mv] += qty
		spells += qty
		if isCreature {
			creatures += qty
		} else {
			nonCreatures += qty
		}
		if qty == 2 {
			commonPairs++
		}
	}

	for _, c := range candidates {
		if spells >= targetSpells {
			break
		}
		if c.entry.Tags.IsLand() {
			continue
		}
		if _, ok := sel.used[c.entry.Name]; ok {
			continue
		}
		sel.add(c.entry, 1)
		spells++
	}
}

// basicLand returns the catalog entry of a basic, or a synthesized one when
// the catalog does not carry it.
func (b *Builder) basicLand(color byte) *cards.Entry {
	name := cards.BasicLandNames[color]
	if entry, ok := b.catalog.Lookup(name); ok {
		return entry
	}
	typeLine := cards.BasicLandTypeLine(name)
	return &cards.Entry{
		CardMeta: models.CardMeta{
			Name:     name,
			TypeLine: typeLine,
			Rarity:   "common",
		},
		Tags: cards.ParseTypeLine(typeLine),
	}
}
