// Package postgrest stores draft analytics through a Supabase/PostgREST API.
package postgrest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/storage/models"
)

const (
	// PageSize is the number of rows requested per read.
	PageSize = 1000

	// BatchSize is the number of rows sent per write.
	BatchSize = 500

	defaultTimeout = 30 * time.Second
)

// Table names and their upsert conflict keys.
const (
	tableSets       = "sets"
	tableCards      = "card_stats"
	tableArchetypes = "archetype_stats"
	tableTrophies   = "trophy_decks"
	tableSynergies  = "synergy_scores"
	tableSkeletons  = "archetypal_skeletons"
)

var conflictKeys = map[string]string{
	tableSets:       "code",
	tableCards:      "set_code,format,card_name",
	tableArchetypes: "set_code,colors,format",
	tableTrophies:   "aggregate_id",
	tableSynergies:  "set_code,format,card_a,card_b",
	tableSkeletons:  "set_code,format,archetype_name,is_alternative",
}

// Client is a PostgREST gateway with upsert-on-conflict writes.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Options configures a Client.
type Options struct {
	// URL is the project URL; /rest/v1 is appended.
	URL     string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates a PostgREST client authenticated with the service key.
func New(opts Options) (*Client, error) {
	if opts.URL == "" || opts.APIKey == "" {
		return nil, fmt.Errorf("postgrest: url and api key are required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.URL, "/") + "/rest/v1")
	client.SetTimeout(opts.Timeout)
	client.SetHeader("apikey", opts.APIKey)
	client.SetAuthToken(opts.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{http: client, logger: opts.Logger.Named("postgrest")}, nil
}

// Close is a no-op; it lets the client stand in for a database-backed store.
func (c *Client) Close() error {
	return nil
}

// UpsertSet registers or updates a set.
func (c *Client) UpsertSet(ctx context.Context, set models.Set) error {
	return c.upsert(ctx, tableSets, []interface{}{set})
}

// ListSets returns registered sets ordered by code.
func (c *Client) ListSets(ctx context.Context, activeOnly bool) ([]models.Set, error) {
	filters := map[string]string{"order": "code.asc"}
	if activeOnly {
		filters["active"] = "eq.true"
	}
	var sets []models.Set
	err := fetchAll(ctx, c, tableSets, filters, &sets)
	return sets, err
}

// GetCardMeta returns the card catalog rows of a set and format.
func (c *Client) GetCardMeta(ctx context.Context, setCode, format string) ([]models.CardMeta, error) {
	var cards []models.CardMeta
	err := fetchAll(ctx, c, tableCards, setFormat(setCode, format, "card_name.asc"), &cards)
	return cards, err
}

// UpsertCardMeta writes card catalog rows.
func (c *Client) UpsertCardMeta(ctx context.Context, cards []models.CardMeta) error {
	rows := make([]interface{}, 0, len(cards))
	for _, card := range cards {
		card.UpdatedAt = stamp(card.UpdatedAt)
		card.WinRateHistory = nonNil(card.WinRateHistory)
		rows = append(rows, card)
	}
	return c.upsert(ctx, tableCards, rows)
}

// GetArchetypeStats returns the colour-pair stats of a set and format.
func (c *Client) GetArchetypeStats(ctx context.Context, setCode, format string) ([]models.ArchetypeStat, error) {
	var stats []models.ArchetypeStat
	err := fetchAll(ctx, c, tableArchetypes, setFormat(setCode, format, "colors.asc"), &stats)
	return stats, err
}

// UpsertArchetypeStats writes colour-pair stats.
func (c *Client) UpsertArchetypeStats(ctx context.Context, stats []models.ArchetypeStat) error {
	rows := make([]interface{}, 0, len(stats))
	for _, a := range stats {
		a.UpdatedAt = stamp(a.UpdatedAt)
		a.WinRateHistory = nonNil(a.WinRateHistory)
		rows = append(rows, a)
	}
	return c.upsert(ctx, tableArchetypes, rows)
}

// TrophyIDs returns the aggregate ids already stored for a set and format.
func (c *Client) TrophyIDs(ctx context.Context, setCode, format string) (map[string]struct{}, error) {
	filters := setFormat(setCode, format, "aggregate_id.asc")
	filters["select"] = "aggregate_id"

	var rows []struct {
		AggregateID string `json:"aggregate_id"`
	}
	if err := fetchAll(ctx, c, tableTrophies, filters, &rows); err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		ids[r.AggregateID] = struct{}{}
	}
	return ids, nil
}

// UpsertTrophyDecks writes trophy decks keyed by aggregate id.
func (c *Client) UpsertTrophyDecks(ctx context.Context, decks []models.TrophyDeck) error {
	rows := make([]interface{}, 0, len(decks))
	for _, d := range decks {
		d.ScrapedAt = stamp(d.ScrapedAt)
		if d.Cardlist == nil {
			d.Cardlist = map[string]int{}
		}
		rows = append(rows, d)
	}
	return c.upsert(ctx, tableTrophies, rows)
}

// GetTrophyDecks returns the trophy decks of a set and format in scrape order.
func (c *Client) GetTrophyDecks(ctx context.Context, setCode, format string) ([]models.TrophyDeck, error) {
	var decks []models.TrophyDeck
	err := fetchAll(ctx, c, tableTrophies, setFormat(setCode, format, "scraped_at.asc,aggregate_id.asc"), &decks)
	return decks, err
}

// synergyRow is a stored pair; synergy_score mirrors the lift.
type synergyRow struct {
	models.SynergyPair
	SynergyScore float64 `json:"synergy_score"`
}

// ReplaceSynergies deletes the stored pairs of a set and format, then inserts
// the given ones. Unlike the SQL store this is not atomic.
func (c *Client) ReplaceSynergies(ctx context.Context, setCode, format string, pairs []models.SynergyPair) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"set_code": "eq." + setCode, "format": "eq." + format}).
		Delete("/" + tableSynergies)
	if err := check(resp, err, "delete "+tableSynergies); err != nil {
		return err
	}

	rows := make([]interface{}, 0, len(pairs))
	for _, p := range pairs {
		p.SetCode, p.Format = setCode, format
		p.UpdatedAt = stamp(p.UpdatedAt)
		rows = append(rows, synergyRow{SynergyPair: p, SynergyScore: p.Lift})
	}
	return c.upsert(ctx, tableSynergies, rows)
}

// GetSynergyScores returns the positive synergy scores of a set and format.
func (c *Client) GetSynergyScores(ctx context.Context, setCode, format string) ([]models.SynergyScore, error) {
	filters := setFormat(setCode, format, "card_a.asc,card_b.asc")
	filters["synergy_score"] = "gt.0"
	filters["select"] = "card_a,card_b,synergy_score"

	var scores []models.SynergyScore
	err := fetchAll(ctx, c, tableSynergies, filters, &scores)
	return scores, err
}

// UpsertSkeletons writes skeletons keyed by (set, format, archetype, alternative).
func (c *Client) UpsertSkeletons(ctx context.Context, skeletons []models.ArchetypeSkeleton) error {
	rows := make([]interface{}, 0, len(skeletons))
	for _, sk := range skeletons {
		sk.UpdatedAt = stamp(sk.UpdatedAt)
		sk.SleeperCards = nonNil(sk.SleeperCards)
		sk.TrendingCards = nonNil(sk.TrendingCards)
		sk.ImportanceCards = nonNil(sk.ImportanceCards)
		rows = append(rows, sk)
	}
	return c.upsert(ctx, tableSkeletons, rows)
}

// GetSkeletons returns the stored skeletons of a set and format.
func (c *Client) GetSkeletons(ctx context.Context, setCode, format string) ([]models.ArchetypeSkeleton, error) {
	var skeletons []models.ArchetypeSkeleton
	err := fetchAll(ctx, c, tableSkeletons, setFormat(setCode, format, "archetype_name.asc,is_alternative.asc"), &skeletons)
	return skeletons, err
}

// upsert posts rows in batches with merge-duplicates resolution.
func (c *Client) upsert(ctx context.Context, table string, rows []interface{}) error {
	for i := 0; i < len(rows); i += BatchSize {
		end := min(i+BatchSize, len(rows))
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("on_conflict", conflictKeys[table]).
			SetHeader("Prefer", "resolution=merge-duplicates").
			SetBody(rows[i:end]).
			Post("/" + table)
		if err := check(resp, err, fmt.Sprintf("upsert %s batch %d", table, i/BatchSize+1)); err != nil {
			return err
		}
		c.logger.Debug("upserted", zap.String("table", table), zap.Int("rows", end-i))
	}
	return nil
}

// fetchAll pages through a table with limit/offset until a short page.
func fetchAll[T any](ctx context.Context, c *Client, table string, filters map[string]string, out *[]T) error {
	for offset := 0; ; offset += PageSize {
		var page []T
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(filters).
			SetQueryParam("limit", strconv.Itoa(PageSize)).
			SetQueryParam("offset", strconv.Itoa(offset)).
			SetResult(&page).
			Get("/" + table)
		if err := check(resp, err, "read "+table); err != nil {
			return err
		}
		*out = append(*out, page...)
		if len(page) < PageSize {
			return nil
		}
	}
}

func setFormat(setCode, format, order string) map[string]string {
	return map[string]string{
		"set_code": "eq." + setCode,
		"format":   "eq." + format,
		"order":    order,
	}
}

// Error is a PostgREST response with a non-2xx status.
type Error struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("postgrest %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("postgrest %s: %w", op, err)
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		return &Error{Op: op, StatusCode: resp.StatusCode(), Body: body}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
