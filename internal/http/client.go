package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps HTTP operations for fetching export media.
//
// Client provides:
//   - A per-request timeout from configuration
//   - A stable User-Agent header
//   - Typed status errors so callers can classify failures by HTTP code
//
// Example usage:
//
//	client := NewClient(30 * time.Second)
//	body, contentType, err := client.Fetch(ctx, downloadURL)
//	var statusErr *StatusError
//	if errors.As(err, &statusErr) {
//	    // the server rejected the request; statusErr.StatusCode says why
//	}
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "memories-downloader",
	}
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	// StatusCode is the numeric HTTP status, e.g. 403.
	StatusCode int

	// Status is the full status line, e.g. "403 Forbidden".
	Status string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %s", e.Status)
}

// Fetch performs a GET request and returns the response body along with
// the declared Content-Type header.
//
// A response with status >= 400 returns a *StatusError; redirects are
// followed by the underlying transport, so anything below 400 that
// reaches here is treated as success.
func (c *Client) Fetch(ctx context.Context, url string) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	return body, resp.Header.Get("Content-Type"), nil
}
