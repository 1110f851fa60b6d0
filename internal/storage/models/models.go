package models

import "time"

// Set is a card set registered for ingestion.
type Set struct {
	Code      string `json:"code" db:"code"`
	StartDate string `json:"start_date" db:"start_date"` // YYYY-MM-DD, first day of 17lands data
	Active    bool   `json:"active" db:"active"`
}

// CardMeta is the per-(set, format) metadata of one card, merged from 17lands
// ratings and Scryfall card data.
type CardMeta struct {
	SetCode        string    `json:"set_code" db:"set_code"`
	Format         string    `json:"format" db:"format"`
	Name           string    `json:"card_name" db:"card_name"`
	TypeLine       string    `json:"card_type" db:"card_type"`
	ManaCost       string    `json:"card_cost" db:"card_cost"`
	ManaValue      int       `json:"card_cmc" db:"card_cmc"`
	Rarity         string    `json:"rarity" db:"rarity"`
	Colors         string    `json:"colors" db:"colors"`
	AverageSeen    *float64  `json:"alsa" db:"alsa"`     // Average last seen at, nil when unknown
	WinRate        *float64  `json:"gih_wr" db:"gih_wr"` // Games-in-hand win rate (percent), nil when unknown
	GameCount      int       `json:"img_count" db:"img_count"`
	WinRateHistory []float64 `json:"win_rate_history" db:"win_rate_history"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ArchetypeStat is the win rate of a colour combination in a format.
type ArchetypeStat struct {
	SetCode        string    `json:"set_code" db:"set_code"`
	Format         string    `json:"format" db:"format"`
	Colors         string    `json:"colors" db:"colors"`
	ArchetypeName  string    `json:"archetype_name" db:"archetype_name"`
	WinRate        float64   `json:"win_rate" db:"win_rate"`
	WinRateHistory []float64 `json:"win_rate_history" db:"win_rate_history"`
	GamesCount     int       `json:"games_count" db:"games_count"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TrophyDeck is one 7-win decklist scraped from 17lands.
type TrophyDeck struct {
	AggregateID string         `json:"aggregate_id" db:"aggregate_id"`
	SetCode     string         `json:"set_code" db:"set_code"`
	Format      string         `json:"format" db:"format"`
	Archetype   string         `json:"archetype" db:"archetype"`
	Wins        int            `json:"wins" db:"wins"`
	Losses      int            `json:"losses" db:"losses"`
	TrophyTime  *string        `json:"trophy_time" db:"trophy_time"` // ISO-8601 as received, may be nil
	Cardlist    map[string]int `json:"cardlist" db:"cardlist"`
	ScrapedAt   time.Time      `json:"scraped_at" db:"scraped_at"`
}

// TotalCards returns the sum of all quantities in the cardlist.
func (d *TrophyDeck) TotalCards() int {
	total := 0
	for _, qty := range d.Cardlist {
		total += qty
	}
	return total
}

// SynergyPair is the lift statistic of an unordered card pair.
// CardA is always lexicographically smaller than CardB.
type SynergyPair struct {
	SetCode           string    `json:"set_code" db:"set_code"`
	Format            string    `json:"format" db:"format"`
	CardA             string    `json:"card_a" db:"card_a"`
	CardB             string    `json:"card_b" db:"card_b"`
	Lift              float64   `json:"lift_score" db:"lift_score"`
	CoOccurrenceCount int       `json:"co_occurrence_count" db:"co_occurrence_count"`
	ConfidenceAToB    float64   `json:"confidence_a_to_b" db:"confidence_a_to_b"`
	ConfidenceBToA    float64   `json:"confidence_b_to_a" db:"confidence_b_to_a"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// SynergyScore is the narrow read view of a stored pair used by skeleton builds.
type SynergyScore struct {
	CardA string  `json:"card_a"`
	CardB string  `json:"card_b"`
	Score float64 `json:"synergy_score"`
}
