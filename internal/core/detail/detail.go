// Package detail fetches creature detail records by name.
package detail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core"
	"github.com/pokedexplorer/pokedex/internal/core/engine"
)

const (
	// DefaultBaseURL is the local detail proxy.
	DefaultBaseURL = "http://localhost:8080"
	// DefaultPathPrefix is the proxy's detail route.
	DefaultPathPrefix = "/api/pokemon"

	// UpstreamBaseURL and UpstreamPathPrefix address the public data source.
	UpstreamBaseURL    = "https://pokeapi.co"
	UpstreamPathPrefix = "/api/v2/pokemon"

	maxBodyBytes = 4 << 20
)

// Client performs detail lookups. The zero value talks to the local proxy.
type Client struct {
	BaseURL    string
	PathPrefix string
	Client     *http.Client
	Limiter    *engine.RateLimiter
	Logger     core.Logger
	Clock      func() time.Time
}

// Normalize trims and lower-cases a submitted name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Fetch looks up name and decodes the record.
func (c *Client) Fetch(ctx context.Context, name string) (*core.Pokemon, error) {
	raw, err := c.FetchRaw(ctx, name)
	if err != nil {
		return nil, err
	}

	var rec core.Pokemon
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &core.FetchError{Kind: core.FailureTransport, Name: Normalize(name), Err: fmt.Errorf("decode detail: %w", err)}
	}
	if rec.Name == "" {
		rec.Name = Normalize(name)
	}
	return &rec, nil
}

// FetchRaw performs one GET for name and returns the body unchanged. Blank
// names fail with core.ErrEmptyQuery before any network activity.
func (c *Client) FetchRaw(ctx context.Context, name string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	value := Normalize(name)
	if value == "" {
		return nil, core.ErrEmptyQuery
	}

	target, host, err := c.target(value)
	if err != nil {
		return nil, &core.FetchError{Kind: core.FailureTransport, Name: value, Err: err}
	}

	if c.Limiter != nil && host != "" {
		allowed, wait, err := c.Limiter.Acquire(ctx, host)
		if err != nil {
			c.logger().Warn("rate limit state unavailable", zap.String("host", host), zap.Error(err))
		} else if !allowed {
			return nil, &core.FetchError{
				Kind:   core.FailureTransport,
				Name:   value,
				Status: http.StatusTooManyRequests,
				Err:    fmt.Errorf("rate limited, retry in %s", wait.Round(time.Second)),
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &core.FetchError{Kind: core.FailureTransport, Name: value, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	started := c.now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &core.FetchError{Kind: core.FailureTransport, Name: value, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	c.logger().Debug("detail response",
		zap.String("name", value),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", c.now().Sub(started)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfter(resp)
		if c.Limiter != nil && host != "" && wait > 0 {
			_ = c.Limiter.Record429(ctx, host, wait)
		}
		// Still a non-2xx answer to the user; the cause is kept for logs.
		return nil, &core.FetchError{Kind: core.FailureNotFound, Name: value, Status: resp.StatusCode, Err: fmt.Errorf("upstream rate limited")}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &core.FetchError{Kind: core.FailureNotFound, Name: value, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &core.FetchError{Kind: core.FailureTransport, Name: value, Status: resp.StatusCode, Err: fmt.Errorf("read detail: %w", err)}
	}
	return body, nil
}

// URL returns the request URL used for name.
func (c *Client) URL(name string) (string, error) {
	target, _, err := c.target(Normalize(name))
	return target, err
}

func (c *Client) target(name string) (string, string, error) {
	base := DefaultBaseURL
	prefix := DefaultPathPrefix
	if c != nil && c.BaseURL != "" {
		base = c.BaseURL
	}
	// "/" selects the bare base URL.
	if c != nil && c.PathPrefix != "" {
		prefix = c.PathPrefix
	}

	parsed, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", "", fmt.Errorf("invalid detail base url %q: %w", base, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid detail base url %q", base)
	}

	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return parsed.String() + prefix + "/" + url.PathEscape(name), parsed.Hostname(), nil
}

func (c *Client) httpClient() *http.Client {
	if c != nil && c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) logger() core.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return core.NopLogger()
}

func (c *Client) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

func retryAfter(resp *http.Response) time.Duration {
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := time.ParseDuration(value + "s"); err == nil {
		return seconds
	}
	if at, err := http.ParseTime(value); err == nil {
		return time.Until(at)
	}
	return 0
}
