// Package service is the HTTP client for the remote presentation service:
// generation, sign-in, sign-up and history lookup.
package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"text2ppt/internal/logging"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Config configures a Client.
type Config struct {
	BaseURL      string
	GeneratePath string
	SignInPath   string
	SignUpPath   string
	HistoryPath  string
	// Timeout of zero disables the client-side timeout.
	Timeout time.Duration
}

// DefaultConfig returns the stock endpoint layout against a local service.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://127.0.0.1:8000",
		GeneratePath: "/generate-ppt",
		SignInPath:   "/signin",
		SignUpPath:   "/signup",
		HistoryPath:  "/user-history",
	}
}

// Client talks to the presentation service. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a Client.
func New(cfg Config) *Client {
	return NewWithHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewWithHTTPClient creates a Client over a caller-supplied http.Client.
func NewWithHTTPClient(cfg Config, hc *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: hc}
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

func (c *Client) endpoint(path string, segments ...string) string {
	u := c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return u
}

// do sends req with a fresh request id. Transport failures come back as
// *TransportError; the response is returned as-is for any status.
func (c *Client) do(req *http.Request, op string) (*http.Response, string, error) {
	id := uuid.NewString()
	req.Header.Set(RequestIDHeader, id)

	start := time.Now()
	log := logging.Get(logging.CategoryAPI).With("op", op, "request_id", id)
	log.Debugw("request", "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warnw("request failed", "error", err, "elapsed", time.Since(start))
		return nil, id, &TransportError{Op: op, RequestID: id, Err: err}
	}
	log.Infow("response", "status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type"), "elapsed", time.Since(start))
	return resp, id, nil
}

// checkStatus turns a non-2xx response into an *HTTPError and closes its body.
func checkStatus(resp *http.Response, id string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{
		StatusCode: resp.StatusCode,
		RequestID:  id,
		Message:    messageFromBody(resp.StatusCode, resp.Header.Get("Content-Type"), body),
	}
}

func newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
