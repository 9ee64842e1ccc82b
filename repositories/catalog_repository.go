package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"catalog-relay/domain"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a catalog request arrives before the interval
// since the previous one has passed.
var ErrRateLimited = errors.New("catalog rate limit exceeded")

type CatalogRepository struct {
	client  *http.Client
	url     string
	limiter *rate.Limiter
}

// NewCatalogRepository creates a catalog reader that issues at most one request
// per interval. Requests over the limit fail instead of waiting. A non-positive
// interval disables the limit.
func NewCatalogRepository(client *http.Client, catalogURL string, interval time.Duration) *CatalogRepository {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &CatalogRepository{
		client:  defaultClient(client),
		url:     catalogURL,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (r *CatalogRepository) FetchCatalog(ctx context.Context) ([]domain.CatalogPage, error) {
	if !r.limiter.Allow() {
		return nil, ErrRateLimited
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog %s: %w", r.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        r.url,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	var pages []domain.CatalogPage
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return pages, nil
}
