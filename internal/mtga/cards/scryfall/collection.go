package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// MaxBatchSize is the maximum number of cards per batch request (Scryfall limit is 75).
const MaxBatchSize = 75

// CardIdentifier represents a card identifier for the /cards/collection endpoint.
type CardIdentifier struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	Set             string `json:"set,omitempty"`              // requires collector_number
	CollectorNumber string `json:"collector_number,omitempty"` // requires set
}

// CollectionRequest is the request body for /cards/collection.
type CollectionRequest struct {
	Identifiers []CardIdentifier `json:"identifiers"`
}

// CollectionResponse is the response from /cards/collection.
type CollectionResponse struct {
	Object   string           `json:"object"`
	NotFound []CardIdentifier `json:"not_found"`
	Data     []Card           `json:"data"`
}

// GetCardsByNames fetches cards by exact name using the batch /cards/collection
// endpoint, in batches of MaxBatchSize. It returns the cards found and the
// names Scryfall did not recognise.
func (c *Client) GetCardsByNames(ctx context.Context, names []string) ([]Card, []string, error) {
	if len(names) == 0 {
		return []Card{}, nil, nil
	}

	var allCards []Card
	var allNotFound []string

	for i := 0; i < len(names); i += MaxBatchSize {
		end := min(i+MaxBatchSize, len(names))

		identifiers := make([]CardIdentifier, 0, end-i)
		for _, name := range names[i:end] {
			identifiers = append(identifiers, CardIdentifier{Name: name})
		}

		resp, err := c.fetchCollection(ctx, identifiers)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch batch %d-%d: %w", i, end, err)
		}
		allCards = append(allCards, resp.Data...)
		for _, id := range resp.NotFound {
			if id.Name != "" {
				allNotFound = append(allNotFound, id.Name)
			}
		}
	}

	return allCards, allNotFound, nil
}

func (c *Client) fetchCollection(ctx context.Context, identifiers []CardIdentifier) (*CollectionResponse, error) {
	body, err := json.Marshal(CollectionRequest{Identifiers: identifiers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp CollectionResponse
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/cards/collection", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
