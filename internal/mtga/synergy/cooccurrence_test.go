package synergy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

func deckOf(names ...string) models.TrophyDeck {
	cardlist := make(map[string]int, len(names))
	for _, n := range names {
		cardlist[n]++
	}
	return models.TrophyDeck{Cardlist: cardlist}
}

// corpus builds 100 decks where A appears in inA decks, B in inB decks and
// both together in both decks. Every deck also carries a unique filler.
func corpus(both, onlyA, onlyB int) []models.TrophyDeck {
	decks := make([]models.TrophyDeck, 0, 100)
	add := func(names ...string) {
		names = append(names, fmt.Sprintf("Filler %d", len(decks)), "Plains")
		decks = append(decks, deckOf(names...))
	}
	for i := 0; i < both; i++ {
		add("Card A", "Card B")
	}
	for i := 0; i < onlyA; i++ {
		add("Card A")
	}
	for i := 0; i < onlyB; i++ {
		add("Card B")
	}
	for len(decks) < 100 {
		add("Card C")
	}
	return decks
}

func TestThresholds(t *testing.T) {
	tests := []struct {
		n       int
		minCo   int
		minCard int
	}{
		{0, 10, 20},
		{100, 10, 20},
		{625, 12, 20},
		{1000, 20, 30},
		{2500, 50, 75},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			minCo, minCard := Thresholds(tt.n)
			if minCo != tt.minCo || minCard != tt.minCard {
				t.Errorf("Thresholds(%d) = (%d, %d), want (%d, %d)", tt.n, minCo, minCard, tt.minCo, tt.minCard)
			}
		})
	}
}

func TestNewPair(t *testing.T) {
	assert.Equal(t, Pair{A: "Alpha", B: "Zed"}, NewPair("Zed", "Alpha"))
	assert.Equal(t, Pair{A: "Alpha", B: "Zed"}, NewPair("Alpha", "Zed"))
}

func TestEngine_Compute_PerfectPair(t *testing.T) {
	pairs := NewEngine(1.2).Compute(corpus(50, 0, 0))

	require.Len(t, pairs, 1)
	s, ok := pairs[NewPair("Card A", "Card B")]
	require.True(t, ok)
	assert.InDelta(t, 2.0, s.Lift, 1e-9)
	assert.Equal(t, 50, s.CoOccurrence)
	assert.InDelta(t, 1.0, s.ConfidenceAToB, 1e-9)
	assert.InDelta(t, 1.0, s.ConfidenceBToA, 1e-9)
}

func TestEngine_Compute_Asymmetric(t *testing.T) {
	pairs := NewEngine(0).Compute(corpus(40, 20, 0))

	s, ok := pairs[NewPair("Card B", "Card A")]
	require.True(t, ok)
	assert.InDelta(t, 0.4/(0.6*0.4), s.Lift, 1e-9)
	assert.InDelta(t, 40.0/60.0, s.ConfidenceAToB, 1e-9)
	assert.InDelta(t, 1.0, s.ConfidenceBToA, 1e-9)
	for _, c := range []float64{s.ConfidenceAToB, s.ConfidenceBToA} {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestEngine_Compute_Symmetry(t *testing.T) {
	decks := corpus(40, 20, 0)
	forward := NewEngine(1.2).Compute(decks)

	// Renaming so that the ordering of the two cards flips must not change lift.
	renamed := make([]models.TrophyDeck, len(decks))
	for i, d := range decks {
		cl := make(map[string]int, len(d.Cardlist))
		for name, qty := range d.Cardlist {
			switch name {
			case "Card A":
				name = "Zz Card A"
			case "Card B":
				name = "Aa Card B"
			}
			cl[name] = qty
		}
		renamed[i] = models.TrophyDeck{Cardlist: cl}
	}
	backward := NewEngine(1.2).Compute(renamed)

	f := forward[NewPair("Card A", "Card B")]
	b := backward[NewPair("Zz Card A", "Aa Card B")]
	assert.Equal(t, f.Lift, b.Lift)
	assert.Equal(t, f.ConfidenceAToB, b.ConfidenceBToA)
	assert.Equal(t, f.ConfidenceBToA, b.ConfidenceAToB)
}

func TestEngine_Compute_Filters(t *testing.T) {
	t.Run("independent cards are below the lift threshold", func(t *testing.T) {
		// 25 together, 25 A only, 25 B only: lift = 0.25 / (0.5*0.5) = 1.0
		decks := corpus(25, 25, 25)
		assert.Empty(t, NewEngine(1.2).Compute(decks))
		assert.Len(t, NewEngine(0.9).Compute(decks), 1)
	})

	t.Run("rare co-occurrence is discarded", func(t *testing.T) {
		// 9 together is below the minimum of 10 even though the lift is high
		assert.Empty(t, NewEngine(1.2).Compute(corpus(9, 20, 20)))
	})

	t.Run("rare cards are discarded", func(t *testing.T) {
		// B appears in 15 decks, below the minimum card occurrence of 20
		assert.Empty(t, NewEngine(1.2).Compute(corpus(15, 30, 0)))
	})

	t.Run("basic lands never pair", func(t *testing.T) {
		pairs := NewEngine(0.1).Compute(corpus(50, 0, 0))
		for pair := range pairs {
			assert.NotEqual(t, "Plains", pair.A)
			assert.NotEqual(t, "Plains", pair.B)
		}
	})

	t.Run("empty corpus", func(t *testing.T) {
		assert.Empty(t, NewEngine(1.2).Compute(nil))
	})
}

func TestCount_QuantitiesCollapse(t *testing.T) {
	decks := []models.TrophyDeck{
		{Cardlist: map[string]int{"Shock": 3, "Opt": 1, "Island": 9}},
		{Cardlist: map[string]int{"Shock": 1}},
	}
	c := Count(decks)
	assert.Equal(t, 2, c.Decks)
	assert.Equal(t, map[string]int{"Shock": 2, "Opt": 1}, c.Cards)
	assert.Equal(t, map[Pair]int{{A: "Opt", B: "Shock"}: 1}, c.Pairs)
}

func TestToRecords(t *testing.T) {
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	pairs := map[Pair]Stats{
		{A: "Zed", B: "Alpha"}: {Lift: 1.666666, CoOccurrence: 40, ConfidenceAToB: 0.25, ConfidenceBToA: 0.666666},
		{A: "Beta", B: "Gamma"}: {Lift: 2, CoOccurrence: 12, ConfidenceAToB: 1, ConfidenceBToA: 0.5},
	}

	records := ToRecords("ECL", "PremierDraft", pairs, now)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Alpha", first.CardA)
	assert.Equal(t, "Zed", first.CardB)
	assert.Equal(t, 1.6667, first.Lift)
	assert.Equal(t, 0.6667, first.ConfidenceAToB)
	assert.Equal(t, 0.25, first.ConfidenceBToA)
	assert.Equal(t, "ECL", first.SetCode)
	assert.Equal(t, "PremierDraft", first.Format)
	assert.Equal(t, now, first.UpdatedAt)

	assert.Equal(t, "Beta", records[1].CardA)
}

func TestTop(t *testing.T) {
	records := []models.SynergyPair{
		{CardA: "A", CardB: "B", Lift: 1.5},
		{CardA: "A", CardB: "C", Lift: 3.0},
		{CardA: "B", CardB: "C", Lift: 1.5},
		{CardA: "C", CardB: "D", Lift: 2.0},
	}

	top := Top(records, 3, func(p models.SynergyPair) float64 { return p.Lift })
	require.Len(t, top, 3)
	assert.Equal(t, "C", top[0].CardB)
	assert.Equal(t, "D", top[1].CardB)
	assert.Equal(t, "A", top[2].CardA)
	assert.Equal(t, "B", top[2].CardB)

	// input untouched
	assert.Equal(t, 1.5, records[0].Lift)
	assert.Len(t, Top(records, 10, func(p models.SynergyPair) float64 { return p.Lift }), 4)
}

func TestPillarAffinity(t *testing.T) {
	scores := []models.SynergyScore{
		{CardA: "Pillar One", CardB: "Xerox", Score: 2.0},
		{CardA: "Pillar Two", CardB: "Xerox", Score: 4.0},
		{CardA: "Pillar One", CardB: "Pillar Two", Score: 5.0},
		{CardA: "Other", CardB: "Xerox", Score: 9.0},
	}

	affinity := PillarAffinity([]string{"Pillar One", "Pillar Two"}, scores)
	assert.InDelta(t, 3.0, affinity["Xerox"], 1e-9)
	assert.InDelta(t, 5.0, affinity["Pillar One"], 1e-9)
	assert.InDelta(t, 5.0, affinity["Pillar Two"], 1e-9)
	_, ok := affinity["Other"]
	assert.False(t, ok)

	assert.Empty(t, PillarAffinity(nil, scores))
}
