// Package httpstore is the "HTTP" cache backend (spec §4.1): one HTTP
// call per operation against a managed Redis-compatible REST gateway.
// Grounded on couchcryptid-storm-data-etl-service's mapbox client
// (internal/adapter/mapbox/client.go) — build request, Do, classify
// non-2xx, decode JSON body — the pack's only per-call REST client
// outside the teacher's own reverse-proxy code.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/observability"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ cache.Interface = (*Client)(nil)

func New(baseURL, token string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("httpstore: base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}, nil
}

type setRequest struct {
	Value string `json:"value"`
	TTL   int    `json:"ttlSeconds,omitempty"`
}

type getResponse struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

type keysResponse struct {
	Keys []string `json:"keys"`
}

func (c *Client) authHeader(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	u := fmt.Sprintf("%s/keys/%s", c.baseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpstore GET build request: %w", err)
	}
	c.authHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveCacheOp("get", err, time.Since(start))
		return nil, fmt.Errorf("httpstore GET %q: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		observability.ObserveCacheOp("get", nil, time.Since(start))
		return nil, cache.ErrMiss
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := classifyStatus(resp.StatusCode, resp.Body)
		observability.ObserveCacheOp("get", err, time.Since(start))
		return nil, err
	}

	var out getResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		observability.ObserveCacheOp("get", err, time.Since(start))
		return nil, fmt.Errorf("httpstore decode GET %q: %w", key, err)
	}
	observability.ObserveCacheOp("get", nil, time.Since(start))
	if !out.Found {
		return nil, cache.ErrMiss
	}
	return []byte(out.Value), nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	start := time.Now()
	body, err := json.Marshal(setRequest{Value: string(val), TTL: int(ttl.Seconds())})
	if err != nil {
		return fmt.Errorf("httpstore marshal SET %q: %w", key, err)
	}

	u := fmt.Sprintf("%s/keys/%s", c.baseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpstore SET build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveCacheOp("set", err, time.Since(start))
		return fmt.Errorf("httpstore SET %q: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := classifyStatus(resp.StatusCode, resp.Body)
		observability.ObserveCacheOp("set", err, time.Since(start))
		return err
	}
	observability.ObserveCacheOp("set", nil, time.Since(start))
	return nil
}

func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	start := time.Now()
	u := fmt.Sprintf("%s/keys?pattern=%s", c.baseURL, url.QueryEscape(pattern))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpstore KEYS build request: %w", err)
	}
	c.authHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveCacheOp("keys", err, time.Since(start))
		return nil, fmt.Errorf("httpstore KEYS %q: %w", pattern, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := classifyStatus(resp.StatusCode, resp.Body)
		observability.ObserveCacheOp("keys", err, time.Since(start))
		return nil, err
	}

	var out keysResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		observability.ObserveCacheOp("keys", err, time.Since(start))
		return nil, fmt.Errorf("httpstore decode KEYS %q: %w", pattern, err)
	}
	observability.ObserveCacheOp("keys", nil, time.Since(start))
	return out.Keys, nil
}

// Pipeline issues one HTTP call per write; the HTTP backend has no native
// pipelining, so this only groups them for the caller's convenience.
func (c *Client) Pipeline(ctx context.Context, writes map[string][]byte, ttl time.Duration) error {
	start := time.Now()
	for k, v := range writes {
		if err := c.Set(ctx, k, v, ttl); err != nil {
			observability.ObserveCacheOp("pipeline", err, time.Since(start))
			return fmt.Errorf("httpstore pipeline SET %q: %w", k, err)
		}
	}
	observability.ObserveCacheOp("pipeline", nil, time.Since(start))
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	u := c.baseURL + "/ping"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpstore PING build request: %w", err)
	}
	c.authHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveCacheOp("ping", err, time.Since(start))
		return fmt.Errorf("httpstore ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := classifyStatus(resp.StatusCode, resp.Body)
		observability.ObserveCacheOp("ping", err, time.Since(start))
		return err
	}
	observability.ObserveCacheOp("ping", nil, time.Since(start))
	return nil
}

func classifyStatus(status int, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 4096))
	return fmt.Errorf("httpstore: status %s: %s", strconv.Itoa(status), bytes.TrimSpace(b))
}
