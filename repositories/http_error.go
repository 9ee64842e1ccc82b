package repositories

import (
	"fmt"
	"net/http"
	"time"
)

// HTTPError is returned when an upstream service answers with a non-success status.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// NewHTTPClient returns the client shared by the outbound repositories.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func defaultClient(client *http.Client) *http.Client {
	if client == nil {
		return NewHTTPClient(0)
	}
	return client
}
