// Package trophy groups and weights trophy decklists for archetype analysis.
package trophy

import (
	"strings"
	"time"

	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// MinDeckSize is the smallest cardlist total accepted as a complete deck.
const MinDeckSize = 35

// MinGroupSize is the smallest number of decks an archetype needs to be analysed.
const MinGroupSize = 3

// RecentWindow is the age at which a deck stops counting as recent.
const RecentWindow = 7 * 24 * time.Hour

// Recency weights by deck age.
const (
	WeightFresh = 1.0
	WeightWeek  = 0.75
	WeightStale = 0.5
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses a trophy timestamp. Naive timestamps are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SubmittedAt returns the parsed submission time of a deck.
func SubmittedAt(d *models.TrophyDeck) (time.Time, bool) {
	if d.TrophyTime == nil {
		return time.Time{}, false
	}
	return ParseTime(*d.TrophyTime)
}

// RecencyWeight returns the weight of a deck relative to now: 1.0 up to 7 days
// old, 0.75 up to 14 days, 0.5 beyond that or when the time is unknown.
func RecencyWeight(now time.Time, d *models.TrophyDeck) float64 {
	submitted, ok := SubmittedAt(d)
	if !ok {
		return WeightStale
	}
	ageDays := now.Sub(submitted).Hours() / 24
	switch {
	case ageDays <= 7:
		return WeightFresh
	case ageDays <= 14:
		return WeightWeek
	default:
		return WeightStale
	}
}

// IsRecent reports whether the deck was submitted within the last week.
// Decks without a parseable time are never recent.
func IsRecent(now time.Time, d *models.TrophyDeck) bool {
	submitted, ok := SubmittedAt(d)
	if !ok {
		return false
	}
	return !submitted.Before(now.Add(-RecentWindow))
}

// Eligible reports whether a deck is complete enough to analyse.
func Eligible(d *models.TrophyDeck) bool {
	return d.TotalCards() >= MinDeckSize
}

// PresenceSet returns the distinct non-basic-land card names of a deck.
func PresenceSet(d *models.TrophyDeck) map[string]struct{} {
	set := make(map[string]struct{}, len(d.Cardlist))
	for name, qty := range d.Cardlist {
		if qty <= 0 || cards.IsBasicLandName(name) {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Group is the decks of one archetype label.
type Group struct {
	Label string
	Decks []models.TrophyDeck
}

// GroupByArchetype groups decks by label in first-seen order.
func GroupByArchetype(decks []models.TrophyDeck) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, d := range decks {
		i, ok := index[d.Archetype]
		if !ok {
			i = len(groups)
			index[d.Archetype] = i
			groups = append(groups, Group{Label: d.Archetype})
		}
		groups[i].Decks = append(groups[i].Decks, d)
	}
	return groups
}
