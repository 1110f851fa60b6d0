package archetype

import (
	"strings"

	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// colorCounts is indexed by position in cards.Colors.
type colorCounts [5]int

// selectedPips sums the colored mana symbols of the non-land cards of a deck list.
func selectedPips(deck []models.DeckEntry) colorCounts {
	var pips colorCounts
	for _, e := range deck {
		if cards.ParseTypeLine(e.Type).IsLand() {
			continue
		}
		for color, n := range cards.ColorPips(e.Cost) {
			pips[strings.IndexByte(cards.Colors, color)] += n
		}
	}
	return pips
}

// basicLandCounts splits remaining basic land slots across colors in
// proportion to pips. Rounding excess is trimmed from the last colors and any
// shortfall goes to the most-pipped color. Without pips the slots are split
// evenly across the label's colors, or all five when the label has none.
func basicLandCounts(pips colorCounts, remaining int, label string) colorCounts {
	var counts colorCounts
	if remaining <= 0 {
		return counts
	}

	total := 0
	for _, n := range pips {
		total += n
	}
	if total == 0 {
		return evenSplit(remaining, label)
	}

	assigned := 0
	for i, n := range pips {
		counts[i] = stats.RoundInt(float64(remaining) * float64(n) / float64(total))
		assigned += counts[i]
	}

	for i := len(counts) - 1; assigned > remaining && i >= 0; {
		if counts[i] == 0 {
			i--
			continue
		}
		counts[i]--
		assigned--
	}

	if assigned < remaining {
		top := 0
		for i, n := range pips {
			if n > pips[top] {
				top = i
			}
		}
		counts[top] += remaining - assigned
	}

	return counts
}

func evenSplit(remaining int, label string) colorCounts {
	var counts colorCounts
	colors := ColorsFromLabel(label)
	if colors == "" {
		colors = cards.Colors
	}

	share, extra := remaining/len(colors), remaining%len(colors)
	for i := 0; i < len(colors); i++ {
		n := share
		if i < extra {
			n++
		}
		counts[strings.IndexByte(cards.Colors, colors[i])] = n
	}
	return counts
}
