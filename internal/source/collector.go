package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

// Collector is a generic, JSON-declared collector (spec §4.6). It
// implements collector.Interval without importing that package, so the
// worker's wiring code can still pass it to collector.NewRunner.
type Collector struct {
	decl    Declaration
	cache   cache.Interface
	fetcher *fetcher.Fetcher
	log     zerolog.Logger
}

func New(decl Declaration, c cache.Interface, f *fetcher.Fetcher, log zerolog.Logger) *Collector {
	return &Collector{decl: decl, cache: c, fetcher: f, log: log.With().Str("collector", decl.Name).Logger()}
}

func (c *Collector) Name() string { return c.decl.Name }

func (c *Collector) Collect(ctx context.Context) error {
	method := c.decl.Fetch.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, c.decl.Fetch.URL, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.decl.Name, err)
	}
	for k, v := range c.decl.Fetch.Headers {
		req.Header.Set(k, v)
	}
	c.applyAuth(req)

	_, body, err := c.fetcher.Do(ctx, req, fetcher.Options{TimeoutMs: int(c.decl.FetchTimeout().Milliseconds())})
	if err != nil {
		return fmt.Errorf("%s: fetch: %w", c.decl.Name, err)
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%s: parse: %w", c.decl.Name, err)
	}

	if c.decl.Transform.DataPath != "" {
		v, ok := walkPath(parsed, c.decl.Transform.DataPath)
		if !ok {
			return fmt.Errorf("%s: dataPath %q not found in response", c.decl.Name, c.decl.Transform.DataPath)
		}
		parsed = v
	}

	items := toArray(parsed)

	if len(c.decl.Transform.Fields) > 0 {
		mapped := make([]any, 0, len(items))
		for _, item := range items {
			obj := make(map[string]any, len(c.decl.Transform.Fields))
			for outField, srcPath := range c.decl.Transform.Fields {
				if v, ok := walkPath(item, srcPath); ok {
					obj[outField] = v
				}
			}
			mapped = append(mapped, obj)
		}
		items = mapped
	}

	if len(c.decl.Transform.Filter) > 0 {
		items = filterItems(items, c.decl.Transform.Filter)
	}

	out, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%s: marshal output: %w", c.decl.Name, err)
	}
	if err := c.cache.Set(ctx, c.decl.Redis.Key, out, c.decl.TTL()); err != nil {
		return fmt.Errorf("%s: cache set %q: %w", c.decl.Name, c.decl.Redis.Key, err)
	}
	return nil
}

func (c *Collector) applyAuth(req *http.Request) {
	a := c.decl.Auth
	if a == nil {
		return
	}
	val := os.Getenv(a.EnvVar)
	if val == "" {
		c.log.Warn().Str("env_var", a.EnvVar).Msg("auth env var not set, proceeding unauthenticated")
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+val)
	case AuthBasic:
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(val)))
	case AuthAPIKey:
		req.Header.Set(a.Header, val)
	}
}

// walkPath resolves a dotted path like "data.items" against v, which is
// the generic map[string]any/[]any tree produced by json.Unmarshal.
func walkPath(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toArray(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	if v == nil {
		return nil
	}
	return []any{v}
}

func filterItems(items []any, filter map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		match := true
		for path, want := range filter {
			got, ok := walkPath(item, path)
			if !ok || !equalValue(got, want) {
				match = false
				break
			}
		}
		if match {
			out = append(out, item)
		}
	}
	return out
}

// equalValue compares values as decoded by encoding/json, where numbers
// are always float64; a numeric want expressed as an int in Go source
// still compares correctly against a JSON number.
func equalValue(got, want any) bool {
	switch w := want.(type) {
	case float64:
		g, ok := got.(float64)
		return ok && g == w
	case int:
		g, ok := got.(float64)
		return ok && g == float64(w)
	case string:
		if g, ok := got.(string); ok {
			return g == w
		}
		if g, ok := got.(float64); ok {
			return strconv.FormatFloat(g, 'g', -1, 64) == w
		}
		return false
	default:
		return got == want
	}
}
