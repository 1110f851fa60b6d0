package seventeenlands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// APIBase is the base URL for 17Lands API
	APIBase = "https://www.17lands.com"

	// Request timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of attempts per request.
	DefaultMaxRetries = 3

	// Waits per attempt, in RetryUnit: 429 waits 60·attempt, 403 waits 90·attempt.
	rateLimitWait = 60
	blockedWait   = 90
	errorWait     = 10
)

// Conservative rate limit: one request every three seconds
var DefaultRateLimit = rate.Every(3 * time.Second)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client provides access to 17Lands draft statistics.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryUnit  time.Duration
	logger     *zap.Logger

	stats   *ClientStats
	statsMu sync.RWMutex
}

// ClientOptions configures the 17Lands client.
type ClientOptions struct {
	// BaseURL overrides APIBase
	BaseURL string

	// RateLimit controls request frequency (default: one request every 3 seconds)
	RateLimit rate.Limit

	// Timeout for HTTP requests (default: 30 seconds)
	Timeout time.Duration

	// MaxRetries is the number of attempts per request (default: 3)
	MaxRetries int

	// RetryUnit scales the retry waits (default: one second)
	RetryUnit time.Duration

	// HTTPClient allows custom HTTP client
	HTTPClient *http.Client

	Logger *zap.Logger
}

// DefaultClientOptions returns conservative default options.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL:    APIBase,
		RateLimit:  DefaultRateLimit,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryUnit:  time.Second,
	}
}

// NewClient creates a new 17Lands API client with conservative rate limiting.
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = APIBase
	}
	if options.RateLimit == 0 {
		options.RateLimit = DefaultRateLimit
	}
	if options.Timeout == 0 {
		options.Timeout = DefaultTimeout
	}
	if options.MaxRetries <= 0 {
		options.MaxRetries = DefaultMaxRetries
	}
	if options.RetryUnit == 0 {
		options.RetryUnit = time.Second
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: options.Timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(options.RateLimit, 1),
		maxRetries: options.MaxRetries,
		retryUnit:  options.RetryUnit,
		logger:     options.Logger.Named("17lands"),
		stats:      &ClientStats{},
	}
}

// GetCardRatings fetches card performance statistics for a set.
func (c *Client) GetCardRatings(ctx context.Context, params QueryParams) ([]CardRating, error) {
	query, err := ratingQuery(params)
	if err != nil {
		return nil, err
	}
	if params.Colors != "" {
		query.Set("colors", params.Colors)
	}

	var ratings []CardRating
	if err := c.getJSON(ctx, "/card_ratings/data?"+query.Encode(), &ratings, "card ratings"); err != nil {
		return nil, err
	}
	return ratings, nil
}

// GetColorRatings fetches color combination performance statistics.
func (c *Client) GetColorRatings(ctx context.Context, params QueryParams) ([]ColorRating, error) {
	query, err := ratingQuery(params)
	if err != nil {
		return nil, err
	}

	var ratings []ColorRating
	if err := c.getJSON(ctx, "/color_ratings/data?"+query.Encode(), &ratings, "color ratings"); err != nil {
		return nil, err
	}
	return ratings, nil
}

func ratingQuery(params QueryParams) (url.Values, error) {
	if params.Expansion == "" {
		return nil, &APIError{
			Type:    ErrInvalidParams,
			Message: "expansion is required",
		}
	}
	if params.EventType == "" {
		return nil, &APIError{
			Type:    ErrInvalidParams,
			Message: "event_type is required",
		}
	}

	query := url.Values{}
	query.Set("expansion", params.Expansion)
	query.Set("event_type", params.EventType)
	if params.StartDate != "" {
		query.Set("start_date", params.StartDate)
	}
	if params.EndDate != "" {
		query.Set("end_date", params.EndDate)
	}
	query.Set("combine_splash", fmt.Sprintf("%t", params.CombineSplash))
	return query, nil
}

// GetTrophies lists the trophy decks of a set and event type, optionally
// restricted to one deck color combination. A 404 yields no trophies.
func (c *Client) GetTrophies(ctx context.Context, q TrophyQuery) ([]Trophy, error) {
	if q.Expansion == "" || q.EventType == "" {
		return nil, &APIError{
			Type:    ErrInvalidParams,
			Message: "expansion and event_type are required",
		}
	}

	payload := trophyRequest{
		Expansion:  q.Expansion,
		EventType:  q.EventType,
		CardNames:  []string{},
		Ranks:      []string{},
		DeckColors: []string{},
	}
	if q.Colors != "" {
		payload.DeckColors = []string{q.Colors}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &APIError{Type: ErrInvalidParams, Message: "failed to encode trophy query", Err: err}
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/data/trophies/", body)
	if err != nil || data == nil {
		return nil, err
	}

	var trophies []Trophy
	if err := json.Unmarshal(data, &trophies); err != nil {
		return nil, &APIError{
			Type:    ErrParseError,
			Message: "failed to parse trophies response",
			Err:     err,
		}
	}
	return trophies, nil
}

// GetDeck fetches one deck of a draft. It returns nil without error when
// 17Lands has no such deck.
func (c *Client) GetDeck(ctx context.Context, draftID string, deckIndex int) (*Deck, error) {
	query := url.Values{}
	query.Set("draft_id", draftID)
	query.Set("deck_index", fmt.Sprintf("%d", deckIndex))

	var deck Deck
	data, err := c.doRequest(ctx, http.MethodGet, "/data/deck?"+query.Encode(), nil)
	if err != nil || data == nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &deck); err != nil {
		return nil, &APIError{
			Type:    ErrParseError,
			Message: "failed to parse deck response",
			Err:     err,
		}
	}
	return &deck, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}, what string) error {
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{
			Type:    ErrParseError,
			Message: fmt.Sprintf("failed to parse %s response", what),
			Err:     err,
		}
	}
	return nil
}

// doRequest performs an HTTP request with rate limiting and retries.
// 429 and 403 responses are retried after a growing wait; a 404 returns nil
// data and no error.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			c.updateStats(func(s *ClientStats) { s.Retries++ })
		}

		data, status, err := c.once(ctx, method, path, body)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var wait time.Duration
		switch status {
		case http.StatusNotFound:
			c.logger.Info("no data", zap.String("path", path))
			return nil, nil
		case http.StatusTooManyRequests:
			wait = time.Duration(rateLimitWait*attempt) * c.retryUnit
			c.logger.Warn("rate limited", zap.String("path", path), zap.Duration("wait", wait))
		case http.StatusForbidden:
			wait = time.Duration(blockedWait*attempt) * c.retryUnit
			c.logger.Warn("temporarily blocked", zap.String("path", path), zap.Duration("wait", wait))
		default:
			if ctx.Err() != nil {
				return nil, err
			}
			if attempt == c.maxRetries {
				break
			}
			wait = errorWait * c.retryUnit
			c.logger.Warn("request failed", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
		}

		if attempt == c.maxRetries {
			break
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// once performs a single request and returns the body, the HTTP status and
// an error for anything but 200.
func (c *Client) once(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, &APIError{
			Type:    ErrRateLimited,
			Message: "rate limiter error",
			Err:     err,
		}
	}

	c.updateStats(func(s *ClientStats) {
		s.TotalRequests++
		s.LastRequestTime = time.Now()
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, &APIError{
			Type:    ErrInvalidParams,
			Message: "failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(startTime)
	if err != nil {
		c.recordFailure()
		return nil, 0, &APIError{
			Type:    ErrUnavailable,
			Message: "failed to execute request",
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		errType := ErrUnavailable
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			errType = ErrRateLimited
		case http.StatusForbidden:
			errType = ErrBlocked
		}
		return nil, resp.StatusCode, &APIError{
			Type:       errType,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, resp.StatusCode, &APIError{
			Type:    ErrUnavailable,
			Message: "failed to read response body",
			Err:     err,
		}
	}

	c.recordSuccess(latency)
	return data, resp.StatusCode, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// recordFailure records a failed request.
func (c *Client) recordFailure() {
	c.updateStats(func(s *ClientStats) {
		s.FailedRequests++
		s.LastFailureTime = time.Now()
		s.ConsecutiveErrors++
	})
}

// recordSuccess records a successful request.
func (c *Client) recordSuccess(latency time.Duration) {
	c.updateStats(func(s *ClientStats) {
		s.LastSuccessTime = time.Now()
		s.ConsecutiveErrors = 0

		// Update average latency
		if s.AverageLatency == 0 {
			s.AverageLatency = latency
		} else {
			s.AverageLatency = (s.AverageLatency + latency) / 2
		}
	})
}

// updateStats safely updates client statistics.
func (c *Client) updateStats(fn func(*ClientStats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	fn(c.stats)
}

// GetStats returns a copy of the current client statistics.
func (c *Client) GetStats() ClientStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return *c.stats
}
