// Package synergy computes pairwise card lift over trophy decklists.
package synergy

import (
	"sort"
	"time"

	"github.com/ramonehamilton/draftlab/internal/mtga/trophy"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// DefaultMinLift is the lowest lift a pair needs to be kept.
const DefaultMinLift = 1.2

// Pair is an unordered card pair with A < B.
type Pair struct {
	A string
	B string
}

// NewPair orders two card names into a Pair.
func NewPair(x, y string) Pair {
	if x > y {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// Stats is the co-occurrence statistic of a pair over a corpus.
type Stats struct {
	Lift           float64
	CoOccurrence   int
	ConfidenceAToB float64 // P(B|A)
	ConfidenceBToA float64 // P(A|B)
}

// Engine computes lift scores. The zero value uses DefaultMinLift.
type Engine struct {
	MinLift float64
}

// NewEngine creates an engine with the given lift threshold.
func NewEngine(minLift float64) *Engine {
	return &Engine{MinLift: minLift}
}

func (e *Engine) minLift() float64 {
	if e == nil || e.MinLift <= 0 {
		return DefaultMinLift
	}
	return e.MinLift
}

// Thresholds returns the minimum pair co-occurrence and minimum card
// occurrence for a corpus of n decks.
func Thresholds(n int) (minCoOccurrence, minCardOccurrence int) {
	minCoOccurrence = max(10, stats.RoundInt(0.02*float64(n)))
	minCardOccurrence = max(20, stats.RoundInt(0.03*float64(n)))
	return minCoOccurrence, minCardOccurrence
}

// Counts holds the raw presence counts of a corpus.
type Counts struct {
	Decks int
	Cards map[string]int
	Pairs map[Pair]int
}

// Count tallies card presence and pair co-occurrence. Quantities collapse to
// presence and basic lands are ignored.
func Count(decks []models.TrophyDeck) *Counts {
	c := &Counts{
		Decks: len(decks),
		Cards: make(map[string]int),
		Pairs: make(map[Pair]int),
	}

	for i := range decks {
		present := trophy.PresenceSet(&decks[i])
		names := make([]string, 0, len(present))
		for name := range present {
			names = append(names, name)
			c.Cards[name]++
		}
		sort.Strings(names)

		for x := 0; x < len(names); x++ {
			for y := x + 1; y < len(names); y++ {
				c.Pairs[Pair{A: names[x], B: names[y]}]++
			}
		}
	}

	return c
}

// Compute returns every pair whose lift reaches the engine threshold.
func (e *Engine) Compute(decks []models.TrophyDeck) map[Pair]Stats {
	return e.FromCounts(Count(decks))
}

// FromCounts applies the occurrence thresholds and lift filter to raw counts.
func (e *Engine) FromCounts(c *Counts) map[Pair]Stats {
	result := make(map[Pair]Stats)
	if c.Decks == 0 {
		return result
	}

	minCo, minCard := Thresholds(c.Decks)
	n := float64(c.Decks)
	threshold := e.minLift()

	for pair, co := range c.Pairs {
		if co < minCo {
			continue
		}
		countA, countB := c.Cards[pair.A], c.Cards[pair.B]
		if countA < minCard || countB < minCard {
			continue
		}

		pA := float64(countA) / n
		pB := float64(countB) / n
		pAB := float64(co) / n
		lift := stats.Ratio(pAB, pA*pB)
		if lift < threshold {
			continue
		}

		result[pair] = Stats{
			Lift:           lift,
			CoOccurrence:   co,
			ConfidenceAToB: stats.Ratio(float64(co), float64(countA)),
			ConfidenceBToA: stats.Ratio(float64(co), float64(countB)),
		}
	}

	return result
}

// ToRecords converts computed pairs to rows sorted by card names, with scores
// rounded to four decimals.
func ToRecords(setCode, format string, pairs map[Pair]Stats, now time.Time) []models.SynergyPair {
	records := make([]models.SynergyPair, 0, len(pairs))
	for pair, s := range pairs {
		a, b := pair.A, pair.B
		confAB, confBA := s.ConfidenceAToB, s.ConfidenceBToA
		if a > b {
			a, b = b, a
			confAB, confBA = confBA, confAB
		}
		records = append(records, models.SynergyPair{
			SetCode:           setCode,
			Format:            format,
			CardA:             a,
			CardB:             b,
			Lift:              stats.Round(s.Lift, 4),
			CoOccurrenceCount: s.CoOccurrence,
			ConfidenceAToB:    stats.Round(confAB, 4),
			ConfidenceBToA:    stats.Round(confBA, 4),
			UpdatedAt:         now,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CardA != records[j].CardA {
			return records[i].CardA < records[j].CardA
		}
		return records[i].CardB < records[j].CardB
	})
	return records
}

// Top returns the first n records ordered by key descending, ties by card names.
func Top(records []models.SynergyPair, n int, key func(models.SynergyPair) float64) []models.SynergyPair {
	sorted := make([]models.SynergyPair, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := key(sorted[i]), key(sorted[j])
		if ki != kj {
			return ki > kj
		}
		if sorted[i].CardA != sorted[j].CardA {
			return sorted[i].CardA < sorted[j].CardA
		}
		return sorted[i].CardB < sorted[j].CardB
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
