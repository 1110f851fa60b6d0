package archetype

import (
	"sort"

	"github.com/ramonehamilton/draftlab/internal/mtga/trophy"
	"github.com/ramonehamilton/draftlab/internal/stats"
	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

const (
	minClusterCorpus = 40
	seedScanLimit    = 50
	minClusterSize   = 20
	minClusterShare  = 0.15
	pillarCount      = 15
	maxPillarOverlap = 10
)

// Split separates an archetype corpus into a main group and, when the decks
// show two distinct and large enough sub-styles, an alternative group.
// When no split is accepted the whole corpus is returned as main and alt is nil.
func Split(decks []models.TrophyDeck) (main, alt []models.TrophyDeck) {
	if len(decks) < minClusterCorpus {
		return decks, nil
	}

	sets := make([]map[string]struct{}, len(decks))
	for i := range decks {
		sets[i] = trophy.PresenceSet(&decks[i])
	}

	seedA, seedB := farthestPair(sets, min(seedScanLimit, len(sets)))

	var groupA, groupB []int
	for i, set := range sets {
		if stats.Jaccard(set, sets[seedA]) >= stats.Jaccard(set, sets[seedB]) {
			groupA = append(groupA, i)
		} else {
			groupB = append(groupB, i)
		}
	}

	smaller := min(len(groupA), len(groupB))
	if smaller < minClusterSize || float64(smaller) < minClusterShare*float64(len(decks)) {
		return decks, nil
	}

	if pillarOverlap(sets, groupA, groupB) > maxPillarOverlap {
		return decks, nil
	}

	a, b := pick(decks, groupA), pick(decks, groupB)
	if len(b) > len(a) {
		return b, a
	}
	return a, b
}

// farthestPair returns the first pair of indices below limit with the largest
// Jaccard distance.
func farthestPair(sets []map[string]struct{}, limit int) (int, int) {
	bestI, bestJ := 0, 1
	best := -1.0
	for i := 0; i < limit; i++ {
		for j := i + 1; j < limit; j++ {
			if d := stats.JaccardDistance(sets[i], sets[j]); d > best {
				best, bestI, bestJ = d, i, j
			}
		}
	}
	return bestI, bestJ
}

func pillarOverlap(sets []map[string]struct{}, groupA, groupB []int) int {
	pillarsA := presencePillars(sets, groupA)
	overlap := 0
	for name := range presencePillars(sets, groupB) {
		if _, ok := pillarsA[name]; ok {
			overlap++
		}
	}
	return overlap
}

// presencePillars returns the most frequent cards of a group by deck presence.
func presencePillars(sets []map[string]struct{}, group []int) map[string]struct{} {
	counts := make(map[string]float64)
	for _, i := range group {
		for name := range sets[i] {
			counts[name]++
		}
	}
	top := topNames(counts, pillarCount)
	pillars := make(map[string]struct{}, len(top))
	for _, name := range top {
		pillars[name] = struct{}{}
	}
	return pillars
}

// topNames returns up to n names ordered by value descending, then name.
func topNames(values map[string]float64, n int) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if values[names[i]] != values[names[j]] {
			return values[names[i]] > values[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func pick(decks []models.TrophyDeck, idx []int) []models.TrophyDeck {
	out := make([]models.TrophyDeck, len(idx))
	for i, j := range idx {
		out[i] = decks[j]
	}
	return out
}
