// Package archetype builds representative decklists and analytics for draft
// archetypes from their trophy decks.
package archetype

import (
	"sort"
	"strconv"
	"time"

	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
	"github.com/ramonehamilton/draftlab/internal/mtga/synergy"
	"github.com/ramonehamilton/draftlab/internal/mtga/trophy"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// DeckSize is the size of a limited deck.
const DeckSize = 40

const curveBuckets = 8

// Builder turns an archetype's trophy decks into an ArchetypeSkeleton.
// A Builder is read-only after construction and safe for concurrent use.
type Builder struct {
	catalog       *cards.Catalog
	now           time.Time
	formatWinRate float64
}

// NewBuilder creates a builder. formatWinRate is the format-wide GIH win rate
// used by the importance ranking; a value <= 0 falls back to the catalog mean.
func NewBuilder(catalog *cards.Catalog, now time.Time, formatWinRate float64) *Builder {
	if formatWinRate <= 0 {
		formatWinRate = catalog.MeanWinRate()
	}
	return &Builder{
		catalog:       catalog,
		now:           now,
		formatWinRate: formatWinRate,
	}
}

// Input is one archetype group to build.
type Input struct {
	SetCode     string
	Format      string
	Archetype   string
	Alternative bool
	Decks       []models.TrophyDeck
	Synergies   []models.SynergyScore
}

// aggregate holds the weighted statistics of the eligible decks of a group.
type aggregate struct {
	avgCurve     [curveBuckets]float64 // rounded to one decimal
	avgCreatures float64
	avgLands     float64
	cardWeight   map[string]float64
	totalWeight  float64
}

// candidate is a catalog card ranked for inclusion in the deck list.
type candidate struct {
	entry  *cards.Entry
	weight float64
	score  float64
}

// Build computes the skeleton of one group. It returns false when no deck is
// complete enough or none of the deck cards are known to the catalog.
func (b *Builder) Build(in Input) (*models.ArchetypeSkeleton, bool) {
	agg, ok := b.aggregate(in.Decks)
	if !ok {
		return nil, false
	}

	pillars := topNames(agg.cardWeight, pillarCount)
	affinity := synergy.PillarAffinity(pillars, in.Synergies)

	candidates := b.rankCandidates(agg, affinity)
	if len(candidates) == 0 {
		return nil, false
	}

	deck := b.selectDeck(in.Archetype, agg, candidates)

	curve := make(map[string]float64, curveBuckets)
	for v := 0; v < curveBuckets; v++ {
		curve[strconv.Itoa(v)] = agg.avgCurve[v]
	}

	return &models.ArchetypeSkeleton{
		SetCode:         in.SetCode,
		Format:          in.Format,
		ArchetypeName:   in.Archetype,
		IsAlternative:   in.Alternative,
		AvgManaCurve:    curve,
		AvgLands:        stats.Round(agg.avgLands, 1),
		CreatureRatio:   stats.Round(stats.Ratio(agg.avgCreatures, DeckSize-agg.avgLands), 3),
		DeckList:        deck,
		SampleSize:      len(in.Decks),
		SleeperCards:    b.sleepers(agg),
		TrendingCards:   b.trending(in.Decks),
		OpennessScore:   b.openness(agg),
		ImportanceCards: b.importance(agg, affinity),
		UpdatedAt:       b.now,
	}, true
}

// aggregate folds the eligible decks into weighted averages. Cards missing
// from the catalog are ignored.
func (b *Builder) aggregate(decks []models.TrophyDeck) (*aggregate, bool) {
	var (
		weights   []float64
		creatures []float64
		lands     []float64
		curves    [curveBuckets][]float64
	)
	agg := &aggregate{cardWeight: make(map[string]float64)}

	for i := range decks {
		d := &decks[i]
		if !trophy.Eligible(d) {
			continue
		}
		w := trophy.RecencyWeight(b.now, d)

		var deckCreatures, deckLands int
		var deckCurve [curveBuckets]int
		for name, qty := range d.Cardlist {
			entry, ok := b.catalog.Lookup(name)
			if !ok || qty <= 0 {
				continue
			}
			agg.cardWeight[name] += w * float64(qty)

			if entry.Tags.IsLand() {
				deckLands += qty
				continue
			}
			deckCurve[entry.ManaValue()] += qty
			if entry.Tags.IsCreature() {
				deckCreatures += qty
			}
		}

		weights = append(weights, w)
		creatures = append(creatures, float64(deckCreatures))
		lands = append(lands, float64(deckLands))
		for v := 0; v < curveBuckets; v++ {
			curves[v] = append(curves[v], float64(deckCurve[v]))
		}
		agg.totalWeight += w
	}

	if len(weights) == 0 {
		return nil, false
	}

	for v := 0; v < curveBuckets; v++ {
		agg.avgCurve[v] = stats.Round(stats.WeightedMean(curves[v], weights), 1)
	}
	agg.avgCreatures = stats.WeightedMean(creatures, weights)
	agg.avgLands = stats.WeightedMean(lands, weights)

	return agg, true
}

// rankCandidates scores every catalog card by weighted frequency (80%) and
// pillar synergy (20%).
func (b *Builder) rankCandidates(agg *aggregate, affinity map[string]float64) []candidate {
	candidates := make([]candidate, 0, len(agg.cardWeight))
	for name, weight := range agg.cardWeight {
		entry, _ := b.catalog.Lookup(name)
		fScore := stats.Ratio(weight, agg.totalWeight)
		sScore := min(affinity[name]/10, 1.0)
		candidates = append(candidates, candidate{
			entry:  entry,
			weight: weight,
			score:  0.8*fScore + 0.2*sScore,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.Name < candidates[j].entry.Name
	})
	return candidates
}
