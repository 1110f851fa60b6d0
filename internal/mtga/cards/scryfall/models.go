package scryfall

import (
	"errors"
	"fmt"
	"strings"
)

// Card represents a Magic card from Scryfall.
type Card struct {
	ID       string `json:"id"`
	OracleID string `json:"oracle_id"`
	ArenaID  *int   `json:"arena_id,omitempty"`

	Name          string   `json:"name"`
	Layout        string   `json:"layout"`
	ManaCost      string   `json:"mana_cost,omitempty"`
	CMC           float64  `json:"cmc"`
	TypeLine      string   `json:"type_line"`
	Colors        []string `json:"colors,omitempty"`
	ColorIdentity []string `json:"color_identity"`

	SetCode         string `json:"set"`
	CollectorNumber string `json:"collector_number"`
	Rarity          string `json:"rarity"`

	// Card faces (for DFCs, MDFCs, split cards)
	CardFaces []CardFace `json:"card_faces,omitempty"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name     string `json:"name"`
	ManaCost string `json:"mana_cost,omitempty"`
	TypeLine string `json:"type_line"`
}

// FrontFace returns the name before " // ", or the whole name for single-faced cards.
func (c *Card) FrontFace() string {
	if front, _, ok := strings.Cut(c.Name, " // "); ok {
		return front
	}
	return c.Name
}

// Metadata returns the catalog fields of the card. Multi-faced cards without a
// top-level cost take cost and type line from their first face.
func (c *Card) Metadata() Metadata {
	m := Metadata{
		ManaValue: int(c.CMC),
		ManaCost:  c.ManaCost,
		TypeLine:  c.TypeLine,
	}
	if len(c.CardFaces) > 0 && c.ManaCost == "" {
		m.ManaCost = c.CardFaces[0].ManaCost
		m.TypeLine = c.CardFaces[0].TypeLine
	}
	return m
}

// Metadata is the subset of Scryfall data merged into card stats.
type Metadata struct {
	ManaValue int
	ManaCost  string
	TypeLine  string
}

// SearchResult represents search results from Scryfall.
type SearchResult struct {
	Object     string `json:"object"`
	TotalCards int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	NextPage   string `json:"next_page,omitempty"`
	Data       []Card `json:"data"`
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 error from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound returns true if the error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
