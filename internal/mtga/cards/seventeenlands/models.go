package seventeenlands

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// CardRating represents card performance statistics from 17Lands.
// Metrics are pointers because 17Lands returns null for cards without enough games.
type CardRating struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Rarity string `json:"rarity"`

	GIHWR *float64 `json:"ever_drawn_win_rate"` // Games in Hand Win Rate (fraction)
	ALSA  *float64 `json:"avg_seen"`            // Average Last Seen At
	ATA   *float64 `json:"avg_pick"`            // Average Taken At

	GameCount int `json:"game_count"`
	GIHCount  int `json:"ever_drawn_game_count"`
}

// GIHWinRatePercent returns the GIH win rate as a percentage, or nil when unknown.
func (r *CardRating) GIHWinRatePercent() *float64 {
	return percent(r.GIHWR)
}

// AverageSeen returns ALSA, or nil when unknown.
func (r *CardRating) AverageSeen() *float64 {
	if r.ALSA == nil || math.IsNaN(*r.ALSA) || math.IsInf(*r.ALSA, 0) {
		return nil
	}
	v := *r.ALSA
	return &v
}

// ColorRating represents color combination performance statistics from 17Lands.
type ColorRating struct {
	ColorName string   `json:"color_name"` // e.g. "Azorius (WU)", "Two-color + Splash"
	IsSummary bool     `json:"is_summary"`
	WinRate   *float64 `json:"win_rate"`
	Wins      int      `json:"wins"`
	Games     int      `json:"games"`
}

// WinRatePercent returns the win rate as a percentage, falling back to
// wins/games when the rate itself is missing.
func (r *ColorRating) WinRatePercent() float64 {
	if wr := percent(r.WinRate); wr != nil {
		return *wr
	}
	if r.Games == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Games) * 100
}

// percent converts a 0..1 fraction to a percentage. Values already above 1
// are treated as percentages. NaN and infinities read as unknown.
func percent(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	p := *v
	if p >= 0 && p <= 1 {
		p *= 100
	}
	return &p
}

// QueryParams holds parameters for 17Lands rating queries.
type QueryParams struct {
	// Required parameters
	Expansion string // Set code (e.g., "BLB", "MKM")
	EventType string // e.g., "PremierDraft", "TradDraft"

	// Optional parameters
	StartDate     string // YYYY-MM-DD format
	EndDate       string // YYYY-MM-DD format
	Colors        string // Deck color filter for card ratings (e.g., "WU")
	CombineSplash bool
}

// TrophyQuery selects the trophy list of a set, event type and deck colors.
type TrophyQuery struct {
	Expansion string
	EventType string
	Colors    string // empty for all colors
}

// trophyRequest is the POST body of /data/trophies/.
type trophyRequest struct {
	Expansion  string   `json:"expansion"`
	EventType  string   `json:"event_type"`
	CardNames  []string `json:"card_names"`
	Ranks      []string `json:"ranks"`
	DeckColors []string `json:"deck_colors"`
}

// Trophy is one 7-win run listed by 17Lands.
type Trophy struct {
	AggregateID string  `json:"aggregate_id"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Time        *string `json:"time"`
	Colors      string  `json:"colors,omitempty"`
}

// CardID is a card identifier that 17Lands sends either as a number or a string.
type CardID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *CardID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = CardID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = CardID(s)
	return nil
}

// DeckCard is the card information attached to a deck response.
type DeckCard struct {
	Name string `json:"name"`
}

// DeckGroup is a named section of a deck (maindeck, sideboard).
type DeckGroup struct {
	Name  string   `json:"name"`
	Cards []CardID `json:"cards"`
}

// Deck is the response of /data/deck.
type Deck struct {
	Cards  map[string]DeckCard `json:"cards"`
	Groups []DeckGroup         `json:"groups"`
}

var maindeckGroups = map[string]struct{}{
	"deck":     {},
	"maindeck": {},
	"main":     {},
}

// Maindeck returns the maindeck as {card name: quantity}. It prefers a group
// named deck/maindeck/main, then the first non-sideboard group with cards.
// It returns nil when no group yields any card.
func (d *Deck) Maindeck() map[string]int {
	if d == nil {
		return nil
	}
	for _, g := range d.Groups {
		if _, ok := maindeckGroups[strings.ToLower(g.Name)]; ok {
			if cardlist := d.count(g); len(cardlist) > 0 {
				return cardlist
			}
			return nil
		}
	}
	for _, g := range d.Groups {
		if strings.Contains(strings.ToLower(g.Name), "side") {
			continue
		}
		if cardlist := d.count(g); len(cardlist) > 0 {
			return cardlist
		}
	}
	return nil
}

func (d *Deck) count(g DeckGroup) map[string]int {
	cardlist := make(map[string]int)
	for _, id := range g.Cards {
		if card, ok := d.Cards[string(id)]; ok && card.Name != "" {
			cardlist[card.Name]++
		}
	}
	return cardlist
}

// ClientStats tracks 17Lands API client statistics.
type ClientStats struct {
	TotalRequests     int
	FailedRequests    int
	Retries           int
	AverageLatency    time.Duration
	LastRequestTime   time.Time
	LastSuccessTime   time.Time
	LastFailureTime   time.Time
	ConsecutiveErrors int
}

// Error types for 17Lands API
const (
	ErrRateLimited   = "rate_limited"
	ErrBlocked       = "blocked"
	ErrUnavailable   = "unavailable"
	ErrInvalidParams = "invalid_params"
	ErrParseError    = "parse_error"
)

// APIError represents an error from the 17Lands API.
type APIError struct {
	Type       string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
