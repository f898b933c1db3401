package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "xivextract"

// ErrStatus is wrapped by errors returned for non-200 responses.
var ErrStatus = errors.New("unexpected HTTP status")

// Client wraps HTTP operations with the configured User-Agent and timeout.
//
// Example usage:
//
//	client := NewClient("", 0)
//	body, err := client.Get(ctx, manifestURL)
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client.
//
// An empty userAgent falls back to DefaultUserAgent. A zero timeout falls
// back to 60 seconds; manifests are tens of megabytes.
func NewClient(userAgent string, timeout time.Duration) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 200 OK (wraps ErrStatus)
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	return io.ReadAll(resp.Body)
}
