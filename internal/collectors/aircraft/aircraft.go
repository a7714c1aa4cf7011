// Package aircraft collects OAuth-authenticated aircraft position data
// and stores it compacted (spec §3 "Compact aircraft/kiwisdr records").
// The OAuth token is cached in-process with a margin shorter than its
// real expiry (spec §5 rate-limit handling) using the same
// hashicorp/golang-lru the teacher uses for its hotness cache.
package aircraft

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

const (
	cacheKey       = "kaos:aircraft:global"
	ttl            = 120 * time.Second
	tokenURL       = "https://opensky-network.org/api/auth/token"
	dataURL        = "https://opensky-network.org/api/states/all"
	tokenCacheTTL  = 25 * time.Minute
	tokenRealTTL   = 30 * time.Minute
	tokenCacheSlot = "token"
)

// Full is the public shape a read handler expands a Record back into.
type Full struct {
	ICAO24   string  `json:"icao24"`
	Callsign string  `json:"callsign,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Altitude int     `json:"altitude,omitempty"`
	Velocity int     `json:"velocity,omitempty"`
	Heading  int     `json:"heading,omitempty"`
	VertRate int     `json:"verticalRate,omitempty"`
	OnGround bool    `json:"onGround,omitempty"`
}

// Record is the compact, storage-side shape: optional fields omitted
// (not nulled), floats rounded (spec §3, §8 "Compact round-trip").
type Record struct {
	ICAO24   string  `json:"icao24"`
	Callsign string  `json:"callsign,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Altitude int     `json:"alt,omitempty"`
	Velocity int     `json:"vel,omitempty"`
	Heading  int     `json:"hdg,omitempty"`
	VertRate int     `json:"vr,omitempty"`
	OnGround bool    `json:"gnd,omitempty"`
}

func Compact(f Full) Record {
	return Record{
		ICAO24:   f.ICAO24,
		Callsign: f.Callsign,
		Lat:      round3(f.Lat),
		Lon:      round3(f.Lon),
		Altitude: f.Altitude,
		Velocity: f.Velocity,
		Heading:  f.Heading,
		VertRate: f.VertRate,
		OnGround: f.OnGround,
	}
}

func Expand(r Record) Full {
	return Full{
		ICAO24:   r.ICAO24,
		Callsign: r.Callsign,
		Lat:      r.Lat,
		Lon:      r.Lon,
		Altitude: r.Altitude,
		Velocity: r.Velocity,
		Heading:  r.Heading,
		VertRate: r.VertRate,
		OnGround: r.OnGround,
	}
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type statesResponse struct {
	States [][]any `json:"states"`
}

type Collector struct {
	clientID     string
	clientSecret string
	cache        cache.Interface
	fetcher      *fetcher.Fetcher
	clock        clock.Clock
	log          zerolog.Logger

	mu     sync.Mutex
	tokens *lru.Cache[string, tokenEntry]
}

type tokenEntry struct {
	value     string
	expiresAt time.Time
}

func New(clientID, clientSecret string, c cache.Interface, f *fetcher.Fetcher, ck clock.Clock, log zerolog.Logger) *Collector {
	if ck == nil {
		ck = clock.New()
	}
	tokens, _ := lru.New[string, tokenEntry](2)
	return &Collector{
		clientID:     clientID,
		clientSecret: clientSecret,
		cache:        c,
		fetcher:      f,
		clock:        ck,
		log:          log.With().Str("collector", "aircraft").Logger(),
		tokens:       tokens,
	}
}

func (c *Collector) Name() string { return "aircraft" }

func (c *Collector) Collect(ctx context.Context) error {
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("aircraft: token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dataURL, nil)
	if err != nil {
		return fmt.Errorf("aircraft: build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, body, err := c.fetcher.Do(ctx, req, fetcher.Options{TimeoutMs: 20000})
	if err != nil {
		return fmt.Errorf("aircraft: fetch: %w", err)
	}
	if resp != nil {
		if remaining := resp.Header.Get("X-Rate-Limit-Remaining"); remaining != "" {
			c.log.Info().Str("remaining_credits", remaining).Msg("aircraft: rate limit credits remaining")
		}
	}

	var parsed statesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("aircraft: decode: %w", err)
	}

	records := make([]Record, 0, len(parsed.States))
	for _, sv := range parsed.States {
		rec, ok := parseState(sv)
		if !ok {
			continue
		}
		records = append(records, Compact(rec))
	}

	out, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("aircraft: marshal: %w", err)
	}
	if err := c.cache.Set(ctx, cacheKey, out, ttl); err != nil {
		return fmt.Errorf("aircraft: cache set: %w", err)
	}
	return nil
}

func (c *Collector) token(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", nil // unauthenticated, reduced rate limit tier
	}

	c.mu.Lock()
	if t, ok := c.tokens.Get(tokenCacheSlot); ok && c.clock.Now().Before(t.expiresAt) {
		c.mu.Unlock()
		return t.value, nil
	}
	c.mu.Unlock()

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, body, err := c.fetcher.Do(ctx, req, fetcher.Options{TimeoutMs: 10000})
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.mu.Lock()
	c.tokens.Add(tokenCacheSlot, tokenEntry{value: tr.AccessToken, expiresAt: c.clock.Now().Add(tokenCacheTTL)})
	c.mu.Unlock()
	_ = tokenRealTTL // documents the margin tokenCacheTTL leaves against the real 30-min token lifetime
	return tr.AccessToken, nil
}

// parseState decodes an OpenSky state-vector array (index layout fixed
// by the upstream API: 0 icao24, 1 callsign, 5 lon, 6 lat, 7 baro alt,
// 8 on_ground, 9 velocity, 10 heading, 11 vertical_rate).
func parseState(sv []any) (Full, bool) {
	if len(sv) < 12 {
		return Full{}, false
	}
	lon, lonOK := asFloat(sv[5])
	lat, latOK := asFloat(sv[6])
	if !lonOK || !latOK {
		return Full{}, false
	}
	f := Full{
		ICAO24:   asString(sv[0]),
		Callsign: strings.TrimSpace(asString(sv[1])),
		Lat:      lat,
		Lon:      lon,
	}
	if alt, ok := asFloat(sv[7]); ok {
		f.Altitude = int(math.Round(alt))
	}
	if onGround, ok := sv[8].(bool); ok {
		f.OnGround = onGround
	}
	if vel, ok := asFloat(sv[9]); ok {
		f.Velocity = int(math.Round(vel))
	}
	if hdg, ok := asFloat(sv[10]); ok {
		f.Heading = int(math.Round(hdg))
	}
	if vr, ok := asFloat(sv[11]); ok {
		f.VertRate = int(math.Round(vr))
	}
	return f, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
