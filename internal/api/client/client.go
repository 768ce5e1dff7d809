// Package client talks to a running monitor's ops API for the status and
// trigger commands.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"

	"github.com/danielgtaylor/huma/v2"
)

// maxErrorBody caps how much of a non-JSON error body is kept.
const maxErrorBody = 512

// ErrNotRunning reports that nothing accepted the connection at the
// configured address.
var ErrNotRunning = errors.New("monitor ops API not running")

// APIError is a non-2xx answer from the ops API. Problem is filled when the
// server sent a problem document.
type APIError struct {
	StatusCode int
	Problem    *huma.ErrorModel
	Body       string
}

func (e *APIError) Error() string {
	if e.Problem != nil && e.Problem.Detail != "" {
		return fmt.Sprintf("ops API %d: %s", e.StatusCode, e.Problem.Detail)
	}
	if e.Body != "" {
		return fmt.Sprintf("ops API %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("ops API %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client calls the ops API of one monitor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the monitor at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// call sends a bodyless request and decodes a JSON 2xx answer into dst.
// Every ops endpoint takes its input from the path, so there is no request
// body.
func (c *Client) call(ctx context.Context, method, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("%w at %s", ErrNotRunning, c.baseURL)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return readAPIError(resp)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}

	var problem huma.ErrorModel
	if json.Unmarshal(body, &problem) == nil && (problem.Title != "" || problem.Detail != "") {
		apiErr.Problem = &problem
		return apiErr
	}
	apiErr.Body = strings.TrimSpace(string(body))
	return apiErr
}
