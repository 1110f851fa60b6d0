package synergy

import (
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

// PillarAffinity averages, for every card, the stored synergy scores it has
// with any of the pillar cards. Cards without a pillar pairing are absent from
// the result and read as 0.
func PillarAffinity(pillars []string, scores []models.SynergyScore) map[string]float64 {
	isPillar := make(map[string]struct{}, len(pillars))
	for _, p := range pillars {
		isPillar[p] = struct{}{}
	}

	collected := make(map[string][]float64)
	for _, s := range scores {
		if _, ok := isPillar[s.CardA]; ok {
			collected[s.CardB] = append(collected[s.CardB], s.Score)
		}
		if _, ok := isPillar[s.CardB]; ok {
			collected[s.CardA] = append(collected[s.CardA], s.Score)
		}
	}

	affinity := make(map[string]float64, len(collected))
	for name, values := range collected {
		affinity[name] = stats.Mean(values)
	}
	return affinity
}
