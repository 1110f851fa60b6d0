package models

import "time"

// ArchetypeSkeleton is the representative 40-card list of an archetype and the
// analytics derived from its trophy decks.
type ArchetypeSkeleton struct {
	SetCode         string             `json:"set_code"`
	Format          string             `json:"format"`
	ArchetypeName   string             `json:"archetype_name"`
	IsAlternative   bool               `json:"is_alternative"`
	AvgManaCurve    map[string]float64 `json:"avg_mana_curve"` // "0".."7", always fully populated
	AvgLands        float64            `json:"avg_lands"`
	CreatureRatio   float64            `json:"creature_ratio"`
	DeckList        []DeckEntry        `json:"deck_list"`
	SampleSize      int                `json:"sample_size"`
	SleeperCards    []SleeperCard      `json:"sleeper_cards"`
	TrendingCards   []TrendingCard     `json:"trending_cards"`
	OpennessScore   int                `json:"openness_score"`
	ImportanceCards []ImportanceCard   `json:"importance_cards"`
	RunID           string             `json:"run_id,omitempty"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// DeckEntry is one card slot of a skeleton deck list.
type DeckEntry struct {
	Name   string `json:"name"`
	CMC    int    `json:"cmc"`
	Type   string `json:"type"`
	Cost   string `json:"cost"`
	Rarity string `json:"rarity"`
}

// SleeperCard is a card drafted late on average that still shows up in trophies.
type SleeperCard struct {
	Name      string  `json:"name"`
	ALSA      float64 `json:"alsa"`
	Frequency float64 `json:"frequency"` // percent
	Score     float64 `json:"score"`
}

// TrendingCard is a card whose trophy presence grew over the last week.
type TrendingCard struct {
	Name       string  `json:"name"`
	RecentFreq float64 `json:"recent_freq"` // percent
	OldFreq    float64 `json:"old_freq"`    // percent
	Delta      float64 `json:"delta"`       // percentage points
}

// ImportanceCard ranks a card by frequency, synergy and win rate.
type ImportanceCard struct {
	Name         string   `json:"name"`
	Importance   float64  `json:"importance"`
	FreqScore    float64  `json:"freq_score"`    // percent
	SynergyScore float64  `json:"synergy_score"` // percent
	WRScore      float64  `json:"wr_score"`      // percent
	Frequency    float64  `json:"frequency"`     // percent
	GIHWR        *float64 `json:"gih_wr"`
}
