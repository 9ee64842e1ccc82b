package repositories

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `[
  {"page": 1, "threads": [
    {"no": 100, "tim": 1623644312345, "ext": ".jpg", "filename": "cat"},
    {"no": 101, "tim": 1623644312346, "ext": ".webm"}
  ]},
  {"page": 2, "threads": [{"no": 200}]}
]`

func TestCatalogRepository_FetchCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(catalogJSON))
	}))
	defer server.Close()

	repo := NewCatalogRepository(server.Client(), server.URL, 0)
	pages, err := repo.FetchCatalog(context.Background())

	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Page)
	assert.Equal(t, int64(1623644312345), pages[0].Threads[0].Tim)
	assert.Equal(t, ".jpg", pages[0].Threads[0].Ext)
	assert.False(t, pages[1].Threads[0].HasMedia())
}

func TestCatalogRepository_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	repo := NewCatalogRepository(server.Client(), server.URL, 0)
	_, err := repo.FetchCatalog(context.Background())

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestCatalogRepository_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer server.Close()

	repo := NewCatalogRepository(server.Client(), server.URL, 0)
	_, err := repo.FetchCatalog(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode catalog")
}

func TestCatalogRepository_RateLimited(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	repo := NewCatalogRepository(server.Client(), server.URL, time.Hour)
	_, err := repo.FetchCatalog(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = repo.FetchCatalog(context.Background())

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, calls)
}

func TestCatalogRepository_Unreachable(t *testing.T) {
	repo := NewCatalogRepository(nil, "http://invalid-url-that-should-fail", 0)
	_, err := repo.FetchCatalog(context.Background())

	assert.Error(t, err)
}
