// Package socrata fetches JSON rows from a Socrata open data portal such as
// data.cityofnewyork.us.
package socrata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the NYC Open Data portal.
const DefaultBaseURL = "https://data.cityofnewyork.us"

type Client struct {
	httpClient       *http.Client
	baseURL          string
	appToken         string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	pageSize         int
	limiter          *rate.Limiter
}

// Options tunes the client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	AppToken    string
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// PageSize > 0 splits a fetch into $offset pages of at most PageSize rows.
	PageSize int
	// RequestsPerSecond > 0 paces requests; 0 disables pacing.
	RequestsPerSecond float64
}

// NewClient returns a client with the given options applied over defaults.
func NewClient(opt Options) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	if opt.HTTPTimeout <= 0 {
		opt.HTTPTimeout = 60 * time.Second
	}
	if opt.RetryMax <= 0 {
		opt.RetryMax = 3
	}
	if opt.BaseDelay <= 0 {
		opt.BaseDelay = 500 * time.Millisecond
	}
	if opt.MaxDelay <= 0 {
		opt.MaxDelay = 4 * time.Second
	}
	limit := rate.Inf
	if opt.RequestsPerSecond > 0 {
		limit = rate.Limit(opt.RequestsPerSecond)
	}
	return &Client{
		httpClient:       &http.Client{Timeout: opt.HTTPTimeout},
		baseURL:          strings.TrimRight(opt.BaseURL, "/"),
		appToken:         opt.AppToken,
		retryMaxAttempts: opt.RetryMax,
		retryBaseDelay:   opt.BaseDelay,
		retryMaxDelay:    opt.MaxDelay,
		pageSize:         opt.PageSize,
		limiter:          rate.NewLimiter(limit, 1),
	}
}

// Fetch returns up to limit rows of a dataset as decoded JSON objects.
func (c *Client) Fetch(ctx context.Context, datasetID string, limit int) ([]map[string]any, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id cannot be empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if c.pageSize <= 0 || c.pageSize >= limit {
		return c.getPage(ctx, c.resourceURL(datasetID, limit, -1))
	}
	var out []map[string]any
	for offset := 0; offset < limit; offset += c.pageSize {
		n := c.pageSize
		if rem := limit - offset; rem < n {
			n = rem
		}
		page, err := c.getPage(ctx, c.resourceURL(datasetID, n, offset))
		if err != nil {
			return nil, fmt.Errorf("page at offset %d: %w", offset, err)
		}
		out = append(out, page...)
		if len(page) < n {
			break
		}
	}
	return out, nil
}

func (c *Client) resourceURL(datasetID string, limit, offset int) string {
	q := url.Values{}
	q.Set("$limit", strconv.Itoa(limit))
	if offset >= 0 {
		q.Set("$offset", strconv.Itoa(offset))
		q.Set("$order", ":id")
	}
	return c.baseURL + "/resource/" + url.PathEscape(datasetID) + ".json?" + q.Encode()
}

func (c *Client) getPage(ctx context.Context, endpoint string) ([]map[string]any, error) {
	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		rows, retry, err := c.do(ctx, endpoint)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		if !retry || attempt == c.retryMaxAttempts {
			break
		}
		wait := withJitter(backoff)
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		if c.retryMaxDelay > 0 && wait > c.retryMaxDelay {
			wait = c.retryMaxDelay
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
	return nil, lastErr
}

// do performs one request and reports whether a failure is worth retrying.
func (c *Client) do(ctx context.Context, endpoint string) ([]map[string]any, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, isRetryableNetErr(err), fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp), URL: endpoint}
		var raw map[string]any
		if json.Unmarshal(body, &raw) == nil {
			if msg, ok := raw["message"].(string); ok {
				apiErr.Message = msg
			}
			if code, ok := raw["code"].(string); ok {
				apiErr.Code = code
			}
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, classifyAPIError(apiErr, resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	return rows, false, nil
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// parseRetryAfter interprets a Retry-After header as seconds or an HTTP date.
func parseRetryAfter(v string) (time.Duration, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// classifyAPIError maps status codes to typed errors.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	switch sc := apiErr.StatusCode; {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if d, err := parseRetryAfter(v); err == nil {
				ra = d
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc == http.StatusNotFound:
		return &NotFoundError{APIError: apiErr}
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func extractRequestID(resp *http.Response) string {
	for _, k := range []string{"X-Socrata-Requestid", "X-Request-Id"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter returns d with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
