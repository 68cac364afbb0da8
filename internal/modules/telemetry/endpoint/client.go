package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrStatus is returned for any non-200 response.
	ErrStatus = errors.New("unexpected status")
	// ErrMalformed is returned when a body does not decode to what was asked.
	ErrMalformed = errors.New("malformed response")
)

// Client reads JSON documents from plain HTTP endpoints.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

type ClientOption func(*Client)

// WithTimeout bounds every request made by the client. Non-positive values
// keep the default.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "siot-dashboard",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches url and decodes the body into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d from %s: %s", ErrStatus, resp.StatusCode, url, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w from %s: %w", ErrMalformed, url, err)
	}
	return nil
}

// Value fetches a {"value": n} document.
func (c *Client) Value(ctx context.Context, url string) (float64, error) {
	var body struct {
		Value *float64 `json:"value"`
	}
	if err := c.GetJSON(ctx, url, &body); err != nil {
		return 0, err
	}
	if body.Value == nil {
		return 0, fmt.Errorf("%w from %s: no numeric value", ErrMalformed, url)
	}
	return *body.Value, nil
}
