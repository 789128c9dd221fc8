// Package published reads the "publish to web" CSV export of a spreadsheet.
package published

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"compras/internal/core"
	"compras/internal/delimited"
	ports "compras/internal/sheets"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxRetries   = 2
	DefaultMaxBodyBytes = 10 << 20

	maxBackoff = 30 * time.Second
)

var ErrNoURL = errors.New("no export URL configured")

type Config struct {
	// URLs maps each year to its export URL.
	URLs       map[int]string
	Timeout    time.Duration
	MaxRetries int
	Dialect    delimited.Dialect
	UserAgent  string
	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff time.Duration
	// MaxBodyBytes bounds the export size. Larger bodies are rejected whole.
	MaxBodyBytes int64
}

type Client struct {
	config Config
	client *http.Client
}

var _ ports.TableSource = (*Client)(nil)

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Dialect.Delimiter == 0 {
		cfg.Dialect = delimited.DefaultDialect()
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	urls := make(map[int]string, len(cfg.URLs))
	for y, u := range cfg.URLs {
		urls[y] = strings.TrimSpace(u)
	}
	cfg.URLs = urls
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "published" }

func (c *Client) FetchTable(ctx context.Context, year int) (core.RawTable, error) {
	uri := c.config.URLs[year]
	if uri == "" {
		return nil, fmt.Errorf("%w for year %d", ErrNoURL, year)
	}
	body, contentType, err := c.doRequest(ctx, uri)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") || looksLikeHTML(body) {
		return nil, fmt.Errorf("%w: export returned an HTML page, check that the sheet is published as CSV", core.ErrMalformedPayload)
	}
	return delimited.ParseWith(string(body), c.config.Dialect), nil
}

// doRequest retries transport failures, 5xx and 429 responses.
func (c *Client) doRequest(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	attempts := c.config.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		res, err := c.doOnce(req)
		if err == nil {
			return res.body, res.contentType, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(res.status) || attempt == attempts-1 {
			break
		}

		wait := res.retryAfter
		if wait <= 0 {
			wait = c.backoff(attempt)
		}
		slog.WarnContext(ctx, "Export request failed, retrying",
			"attempt", attempt+1,
			"status", res.status,
			"wait", wait,
			"error", err)
		if err := sleepWithContext(ctx, wait); err != nil {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

type response struct {
	body        []byte
	contentType string
	status      int
	retryAfter  time.Duration
}

func (c *Client) doOnce(req *http.Request) (response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	res := response{status: resp.StatusCode, contentType: resp.Header.Get("Content-Type")}
	limit := c.config.MaxBodyBytes
	res.body, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return res, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		res.retryAfter = parseRetryAfter(resp)
		return res, fmt.Errorf("export request failed (%s)", resp.Status)
	}
	// A cut CSV parses cleanly, so anything past the limit fails the fetch.
	if int64(len(res.body)) > limit {
		res.body = nil
		return res, fmt.Errorf("%w: export larger than %d bytes", core.ErrMalformedPayload, limit)
	}
	return res, nil
}

// backoff doubles from BaseBackoff, capped at 30s.
func (c *Client) backoff(attempt int) time.Duration {
	if attempt >= 16 {
		return maxBackoff
	}
	d := c.config.BaseBackoff << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// retryable reports whether a status is worth another attempt. Status 0
// means the request never got a response.
func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func parseRetryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, maxBackoff)
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return min(d, maxBackoff)
		}
	}
	return 0
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 512)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
