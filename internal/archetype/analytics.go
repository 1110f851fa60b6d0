package archetype

import (
	"sort"

	"github.com/ramonehamilton/draftlab/internal/mtga/cards"
	"github.com/ramonehamilton/draftlab/internal/mtga/trophy"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

const (
	maxSleepers       = 5
	sleeperMinFreq    = 0.15
	maxTrending       = 5
	trendingMinDecks  = 3
	trendingMinDelta  = 0.15
	trendingMinRecent = 0.20
	opennessCoverage  = 0.80
	opennessClosed    = 25
	opennessSpan      = 45
	maxImportance     = 15
)

// sortedNames returns the keys of m in name order so map iteration never
// leaks into output ordering.
func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sleepers finds spells drafted later than average that still show up in at
// least 15% of the weighted deck mass.
func (b *Builder) sleepers(agg *aggregate) []models.SleeperCard {
	meanALSA := b.catalog.MeanAverageSeen()

	type scored struct {
		name      string
		alsa      float64
		frequency float64
		score     float64
	}
	var found []scored
	for _, name := range sortedNames(agg.cardWeight) {
		entry, _ := b.catalog.Lookup(name)
		if entry.Tags.IsLand() || entry.Tags.IsBasic() || entry.AverageSeen == nil {
			continue
		}
		alsa := *entry.AverageSeen
		freq := stats.Ratio(agg.cardWeight[name], agg.totalWeight)
		if alsa <= meanALSA || freq < sleeperMinFreq {
			continue
		}
		found = append(found, scored{name, alsa, freq, (alsa - meanALSA) * freq})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].score > found[j].score })
	if len(found) > maxSleepers {
		found = found[:maxSleepers]
	}

	out := make([]models.SleeperCard, 0, len(found))
	for _, s := range found {
		out = append(out, models.SleeperCard{
			Name:      s.name,
			ALSA:      stats.Round(s.alsa, 2),
			Frequency: stats.Round(s.frequency*100, 1),
			Score:     stats.Round(s.score, 3),
		})
	}
	return out
}

// trending compares unweighted spell presence in the last week against older
// decks. Decks without a usable time count as older. Both buckets need at
// least three decks.
func (b *Builder) trending(decks []models.TrophyDeck) []models.TrendingCard {
	recentCounts := make(map[string]float64)
	oldCounts := make(map[string]float64)
	var recent, old int

	for i := range decks {
		d := &decks[i]
		counts := oldCounts
		if trophy.IsRecent(b.now, d) {
			counts = recentCounts
			recent++
		} else {
			old++
		}
		for name, qty := range d.Cardlist {
			entry, ok := b.catalog.Lookup(name)
			if !ok || qty <= 0 || entry.Tags.IsLand() {
				continue
			}
			counts[name]++
		}
	}

	out := []models.TrendingCard{}
	if recent < trendingMinDecks || old < trendingMinDecks {
		return out
	}

	type delta struct {
		name          string
		recent, older float64
		delta         float64
	}
	seen := make(map[string]float64, len(recentCounts)+len(oldCounts))
	for name := range recentCounts {
		seen[name] = 0
	}
	for name := range oldCounts {
		seen[name] = 0
	}

	var found []delta
	for _, name := range sortedNames(seen) {
		recentFreq := recentCounts[name] / float64(recent)
		oldFreq := oldCounts[name] / float64(old)
		d := recentFreq - oldFreq
		if d > trendingMinDelta && recentFreq > trendingMinRecent {
			found = append(found, delta{name, recentFreq, oldFreq, d})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].delta > found[j].delta })
	if len(found) > maxTrending {
		found = found[:maxTrending]
	}

	for _, t := range found {
		out = append(out, models.TrendingCard{
			Name:       t.name,
			RecentFreq: stats.Round(t.recent*100, 1),
			OldFreq:    stats.Round(t.older*100, 1),
			Delta:      stats.Round(t.delta*100, 1),
		})
	}
	return out
}

// openness measures how many non-basic cards it takes to cover 80% of the
// weighted card mass: 25 or fewer scores 0, 70 or more scores 100.
func (b *Builder) openness(agg *aggregate) int {
	var weights []float64
	var total float64
	for _, name := range sortedNames(agg.cardWeight) {
		entry, _ := b.catalog.Lookup(name)
		if entry.Tags.IsBasic() || cards.IsBasicLandName(name) {
			continue
		}
		w := agg.cardWeight[name]
		weights = append(weights, w)
		total += w
	}
	if len(weights) == 0 {
		return 0
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))

	var cumulative float64
	count := 0
	for _, w := range weights {
		cumulative += w
		count++
		if cumulative >= total*opennessCoverage {
			break
		}
	}

	raw := float64(count-opennessClosed) / opennessSpan * 100
	return int(stats.Clamp(float64(stats.RoundInt(raw)), 0, 100))
}

// importance ranks spells by frequency (40%), pillar synergy (30%) and GIH
// win rate relative to the format (30%).
func (b *Builder) importance(agg *aggregate, affinity map[string]float64) []models.ImportanceCard {
	type scored struct {
		name                   string
		importance             float64
		freq, synergy, winRate float64
		gihWR                  *float64
	}
	var found []scored
	for _, name := range sortedNames(agg.cardWeight) {
		entry, _ := b.catalog.Lookup(name)
		if entry.Tags.IsLand() {
			continue
		}

		freq := stats.Ratio(agg.cardWeight[name], agg.totalWeight)
		syn := min(affinity[name]/5, 1.0)
		var wr float64
		if entry.WinRate != nil && *entry.WinRate > 0 {
			wr = stats.Clamp((*entry.WinRate-b.formatWinRate+10)/20, 0, 1)
		}

		found = append(found, scored{
			name:       name,
			importance: 0.4*freq + 0.3*syn + 0.3*wr,
			freq:       freq,
			synergy:    syn,
			winRate:    wr,
			gihWR:      entry.WinRate,
		})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].importance > found[j].importance })
	if len(found) > maxImportance {
		found = found[:maxImportance]
	}

	out := make([]models.ImportanceCard, 0, len(found))
	for _, s := range found {
		card := models.ImportanceCard{
			Name:         s.name,
			Importance:   stats.Round(s.importance, 3),
			FreqScore:    stats.Round(s.freq*100, 0),
			SynergyScore: stats.Round(s.synergy*100, 0),
			WRScore:      stats.Round(s.winRate*100, 0),
			Frequency:    stats.Round(s.freq*100, 1),
		}
		if s.gihWR != nil && *s.gihWR > 0 {
			wr := stats.Round(*s.gihWR, 1)
			card.GIHWR = &wr
		}
		out = append(out, card)
	}
	return out
}
