package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/lifeline/internal/syncer"
)

// DefaultTimeout bounds each HTTP call.
const DefaultTimeout = 10 * time.Second

// StatusError is returned for non-success HTTP responses.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %d", e.Code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Client uploads records over HTTP. It implements syncer.Backend and
// syncer.Connectivity.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-call timeout on the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithClientLogger sets the logger. Default: slog.Default().
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Upload posts one record. 2xx and 409 are success.
func (c *Client) Upload(ctx context.Context, u syncer.Upload) error {
	body, err := json.Marshal(NewSubmission(u))
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("requests"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post request %s: %w", u.Record.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		c.logger.Debug("backend already holds request", "origin_request_id", u.Record.OriginRequestID)
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
}

// Online probes the health endpoint.
func (c *Client) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("healthz"), nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend unreachable", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *Client) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}
