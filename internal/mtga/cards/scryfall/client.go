package scryfall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/draftlab/internal/version"
)

const (
	// APIBase is the public Scryfall API.
	APIBase = "https://api.scryfall.com"

	rateLimitDelay = 100 * time.Millisecond // 100ms between requests (10 req/sec)
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// Client represents a Scryfall API client with rate limiting.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	userAgent      string
	initialBackoff time.Duration
	logger         *zap.Logger
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL        string
	RateLimit      rate.Limit
	Timeout        time.Duration
	InitialBackoff time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// NewClient creates a new Scryfall API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = APIBase
	}
	if opts.RateLimit == 0 {
		// 1 request per 100ms = 10 req/sec
		opts.RateLimit = rate.Every(rateLimitDelay)
	}
	if opts.Timeout == 0 {
		opts.Timeout = requestTimeout
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = initialBackoff
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     httpClient,
		rateLimiter:    rate.NewLimiter(opts.RateLimit, 1),
		userAgent:      version.UserAgent(),
		initialBackoff: opts.InitialBackoff,
		logger:         opts.Logger.Named("scryfall"),
	}
}

// SearchCards performs a full-text search and returns the first page.
func (c *Client) SearchCards(ctx context.Context, query string) (*SearchResult, error) {
	u := fmt.Sprintf("%s/cards/search?q=%s", c.baseURL, url.QueryEscape(query))

	var result SearchResult
	if err := c.doRequest(ctx, http.MethodGet, u, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to search cards with query '%s': %w", query, err)
	}

	return &result, nil
}

// SearchSet returns every card printed in a set, following next_page links.
// A search that matches nothing yields an empty slice.
func (c *Client) SearchSet(ctx context.Context, setCode string) ([]Card, error) {
	var cards []Card

	result, err := c.SearchCards(ctx, "set:"+strings.ToLower(setCode))
	for {
		if err != nil {
			if IsNotFound(err) {
				return cards, nil
			}
			return nil, err
		}
		cards = append(cards, result.Data...)
		if !result.HasMore || result.NextPage == "" {
			return cards, nil
		}

		next := result.NextPage
		result = &SearchResult{}
		if reqErr := c.doRequest(ctx, http.MethodGet, next, nil, result); reqErr != nil {
			err = fmt.Errorf("failed to fetch search page: %w", reqErr)
		}
	}
}

// GetCardNamed resolves a card by fuzzy name match.
func (c *Client) GetCardNamed(ctx context.Context, name string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/named?fuzzy=%s", c.baseURL, url.QueryEscape(name))

	var card Card
	if err := c.doRequest(ctx, http.MethodGet, u, nil, &card); err != nil {
		return nil, fmt.Errorf("failed to get card named '%s': %w", name, err)
	}

	return &card, nil
}

// doRequest performs an HTTP request with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, u string, body []byte, result interface{}) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		status, header, data, err := c.send(ctx, method, u, body)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

			// Retry on network errors
			if attempt < maxRetries && ctx.Err() == nil {
				if err := sleep(ctx, backoff); err != nil {
					return err
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr
		}

		switch status {
		case http.StatusOK:
			if err := json.Unmarshal(data, result); err != nil {
				return fmt.Errorf("failed to parse JSON response: %w", err)
			}
			return nil

		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			if attempt < maxRetries {
				wait := backoff
				if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil {
					wait = time.Duration(secs) * time.Second
				}
				c.logger.Warn("rate limited", zap.String("url", u), zap.Duration("wait", wait))
				if err := sleep(ctx, wait); err != nil {
					return err
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr

		case http.StatusNotFound:
			return &NotFoundError{URL: u}

		default:
			var apiErr APIError
			if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Details != "" {
				return &apiErr
			}
			return fmt.Errorf("API request failed with status %d: %s", status, string(data))
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) send(ctx context.Context, method, u string, body []byte) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, resp.Header, data, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
