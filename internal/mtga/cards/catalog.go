// Package cards provides the read-only card catalog used by archetype analysis.
package cards

import (
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// DefaultAverageSeen is used as the catalog mean ALSA when no card has one.
const DefaultAverageSeen = 4.0

// DefaultFormatWinRate is the fallback format-wide GIH win rate (percent).
const DefaultFormatWinRate = 55.0

// Entry is a catalog card with its type tags parsed once at load time.
type Entry struct {
	models.CardMeta
	Tags TypeTags
}

// ManaValue returns the card's mana value clamped to the curve buckets.
func (e *Entry) ManaValue() int {
	return ClampManaValue(e.CardMeta.ManaValue)
}

// Catalog is an immutable name-indexed view of card metadata for one set/format.
type Catalog struct {
	entries         map[string]*Entry
	meanAverageSeen float64
	meanWinRate     float64
}

// NewCatalog builds a catalog. Later rows win on duplicate names.
func NewCatalog(rows []models.CardMeta) *Catalog {
	c := &Catalog{entries: make(map[string]*Entry, len(rows))}

	for _, row := range rows {
		c.entries[row.Name] = &Entry{
			CardMeta: row,
			Tags:     ParseTypeLine(row.TypeLine),
		}
	}

	var alsas, winRates []float64
	for _, e := range c.entries {
		if e.AverageSeen != nil {
			alsas = append(alsas, *e.AverageSeen)
		}
		if e.WinRate != nil && *e.WinRate > 0 {
			winRates = append(winRates, *e.WinRate)
		}
	}

	c.meanAverageSeen = DefaultAverageSeen
	if len(alsas) > 0 {
		c.meanAverageSeen = stats.Mean(alsas)
	}
	c.meanWinRate = DefaultFormatWinRate
	if len(winRates) > 0 {
		c.meanWinRate = stats.Mean(winRates)
	}

	return c
}

// Lookup returns the entry for a card name.
func (c *Catalog) Lookup(name string) (*Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Len returns the number of cards in the catalog.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// MeanAverageSeen returns the catalog-wide mean ALSA.
func (c *Catalog) MeanAverageSeen() float64 {
	return c.meanAverageSeen
}

// MeanWinRate returns the mean known GIH win rate of the catalog.
func (c *Catalog) MeanWinRate() float64 {
	return c.meanWinRate
}

// MatchRate counts how many of the given names exist in the catalog.
func (c *Catalog) MatchRate(names []string) (matched, total int) {
	for _, name := range names {
		if _, ok := c.entries[name]; ok {
			matched++
		}
	}
	return matched, len(names)
}
