package shopee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

const (
	defaultBaseURL     = "https://shopee.co.id"
	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
	maxRetryDelay      = 30 * time.Second
	maxBodyBytes       = 8 << 20
	warmUpInterval     = 30 * time.Minute

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 " +
		"(KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
)

// StatusError reports a non-200 upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client owns the HTTP session used by every strategy: a cookie jar that
// lives as long as the Client, request pacing, per-request timeouts and
// bounded retries. A Client is used from the monitor's single control flow
// and is not safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	rateLimiter *RateLimiter
	maxAttempts int
	retryDelay  time.Duration
	warmUp      bool
	lastWarmUp  time.Time
	log         *slog.Logger
	nowFunc     func() time.Time
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRetry sets the total attempts per request and the initial backoff
// delay between them.
func WithRetry(maxAttempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = max(maxAttempts, 1)
		c.retryDelay = delay
	}
}

// WithRateLimiter injects the limiter every request waits on.
func WithRateLimiter(r *RateLimiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = r
	}
}

// WithWarmUp enables or disables the session warm-up request.
func WithWarmUp(enabled bool) ClientOption {
	return func(c *Client) {
		c.warmUp = enabled
	}
}

// WithClientLogger sets a custom logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a session against baseURL (default https://shopee.co.id).
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Jar:       jar,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		warmUp:      true,
		log:         slog.Default(),
		nowFunc:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the marketplace root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ProductURL returns the public product page for item.
func (c *Client) ProductURL(item domain.TrackedItem) string {
	return ProductURL(c.BaseURL(), item)
}

// ProductURL builds the public product page URL for item under baseURL.
func ProductURL(baseURL string, item domain.TrackedItem) string {
	return strings.TrimRight(baseURL, "/") + "/product/" + item.ShopID + "/" + item.ItemID
}

// Close releases idle connections held by the session.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// get issues a GET against path with retries and returns the 200 body.
func (c *Client) get(
	ctx context.Context,
	path string,
	query url.Values,
	header http.Header,
) ([]byte, error) {
	c.ensureSession(ctx)

	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	target := u.String()

	var body []byte
	op := func() error {
		b, err := c.do(ctx, target, header)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(c.newBackOff(), uint64(max(c.maxAttempts-1, 0))), //nolint:gosec // bounded above
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.log.Debug("retrying upstream request",
			"url", target,
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryDelay
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = maxRetryDelay
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// do performs a single request. Errors not worth retrying are wrapped in
// backoff.Permanent.
func (c *Client) do(ctx context.Context, target string, header http.Header) ([]byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limit: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating HTTP request: %w", err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	metrics.UpstreamRequestsTotal.Inc()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fmt.Errorf("executing request: %w", ctx.Err()))
		}
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
		if statusErr.Retryable() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	return body, nil
}

// ensureSession requests the site root to pick up session cookies when the
// jar holds none. Failures are logged and ignored.
func (c *Client) ensureSession(ctx context.Context) {
	if !c.warmUp || len(c.http.Jar.Cookies(c.baseURL)) > 0 {
		return
	}
	now := c.nowFunc()
	if !c.lastWarmUp.IsZero() && now.Sub(c.lastWarmUp) < warmUpInterval {
		return
	}
	c.lastWarmUp = now

	header := browserHeaders(c.BaseURL(), desktopUserAgent)
	header.Set("Accept", "text/html,application/xhtml+xml")

	if _, err := c.do(ctx, c.BaseURL()+"/", header); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		c.log.Debug("session warm-up failed", "error", err)
	}
}

func browserHeaders(baseURL, userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Referer", strings.TrimRight(baseURL, "/")+"/")
	h.Set("Accept-Language", "id-ID,id;q=0.9,en;q=0.8")
	return h
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
