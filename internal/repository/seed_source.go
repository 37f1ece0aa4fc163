package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hrit887/mern-challenge/shared/models"
)

// maxSeedBytes caps the size of a seed document.
const maxSeedBytes = 32 << 20

// HTTPSeedSource downloads the seed dataset, a JSON array of transactions.
type HTTPSeedSource struct {
	url    string
	client *http.Client
}

func NewHTTPSeedSource(url string, timeout time.Duration) *HTTPSeedSource {
	return &HTTPSeedSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSeedSource) URL() string {
	return s.url
}

func (s *HTTPSeedSource) Fetch(ctx context.Context) ([]models.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build seed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("failed to fetch seed data: unexpected status %s", resp.Status)
	}

	var transactions []models.Transaction
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSeedBytes)).Decode(&transactions); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}
	return transactions, nil
}
