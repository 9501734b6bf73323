// Package wordware talks to the hosted generative-text service: it runs a
// prompt app and recovers the structured answer from the streamed reply.
package wordware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/liliang-cn/beacon/internal/domain"
)

const defaultTimeout = 60 * time.Second

// RunRequest is the body of an app run
type RunRequest struct {
	Inputs  map[string]string `json:"inputs"`
	Version string            `json:"version"`
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wordware: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client runs prompt apps with Bearer auth against a base URL.
// It never retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run posts the request to {baseURL}/{appID}/run and returns the whole
// response body as text. Missing configuration fails before any I/O.
func (c *Client) Run(ctx context.Context, appID string, req RunRequest) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("wordware base URL: %w", domain.ErrNotConfigured)
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("wordware API key: %w", domain.ErrNotConfigured)
	}
	if appID == "" {
		return "", fmt.Errorf("wordware app id: %w", domain.ErrNotConfigured)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+appID+"/run", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("wordware run: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read wordware response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(raw)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}

	return string(raw), nil
}
