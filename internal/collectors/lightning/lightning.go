// Package lightning implements the websocket-variant collector (spec
// §4.4) for a global lightning-strike feed: holds an open connection
// for the life of the process, buffers strikes in memory keyed by a
// coarse identity, and persists a sorted snapshot on a timer.
//
// Grounded on the teacher's kafka runner (pkg/invalidation/kafka/runner.go)
// for the connect/retry-with-backoff shape, and on
// evalgo-org-eve-tower-defense's websocket coordinator for the
// gorilla/websocket dial/read loop idiom.
package lightning

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/clock"
)

const (
	cacheKey        = "kaos:lightning:global"
	ttl             = 60 * time.Second
	persistInterval = 10 * time.Second
	cleanupInterval = 60 * time.Second
	retentionWindow = 30 * time.Minute
)

type Strike struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	At  int64   `json:"time"` // unix seconds
}

type stationKey struct {
	coarseLat int64
	coarseLon int64
	second    int64
}

type Collector struct {
	urls  []string
	cache cache.Interface
	clock clock.Clock
	log   zerolog.Logger

	mu      sync.Mutex
	strikes map[stationKey]Strike

	conn *websocket.Conn
}

func New(urls []string, c cache.Interface, ck clock.Clock, log zerolog.Logger) *Collector {
	if ck == nil {
		ck = clock.New()
	}
	return &Collector{
		urls:    urls,
		cache:   c,
		clock:   ck,
		log:     log.With().Str("collector", "lightning").Logger(),
		strikes: make(map[stationKey]Strike),
	}
}

func (c *Collector) Name() string { return "lightning" }

// Start connects once, runs persistence and cleanup timers, and blocks
// reading frames until the connection drops or ctx is cancelled. The
// StreamRunner calls Start again (with backoff) whenever it returns a
// non-nil error; it returns nil only when ctx has been cancelled.
func (c *Collector) Start(ctx context.Context) error {
	if len(c.urls) == 0 {
		return fmt.Errorf("lightning: no websocket urls configured")
	}
	url := c.urls[rand.IntN(len(c.urls))]

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("lightning: dial %s: %w", url, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Info().Str("url", url).Msg("lightning websocket connected")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.persistLoop(runCtx) }()
	go func() { defer wg.Done(); c.cleanupLoop(runCtx) }()

	readErr := c.readLoop(runCtx, conn)
	cancel()
	_ = conn.Close()
	wg.Wait()

	if ctx.Err() != nil {
		return nil // clean shutdown via ctx cancel, not a failure
	}
	return readErr
}

func (c *Collector) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("lightning: read: %w", err)
		}
		c.ingest(msg)
	}
}

var latRe = regexp.MustCompile(`"lat"\s*:\s*(-?[0-9]+(\.[0-9]+)?)`)
var lonRe = regexp.MustCompile(`"lon"\s*:\s*(-?[0-9]+(\.[0-9]+)?)`)

// ingest extracts lat/lon from a loosely structured frame: find the
// "lat"/"lon" markers, parse the first numeric substring after each,
// reject anything outside valid coordinate range (spec §4.4).
func (c *Collector) ingest(raw []byte) {
	latM := latRe.FindSubmatch(raw)
	lonM := lonRe.FindSubmatch(raw)
	if latM == nil || lonM == nil {
		return
	}
	lat, err1 := strconv.ParseFloat(string(latM[1]), 64)
	lon, err2 := strconv.ParseFloat(string(lonM[1]), 64)
	if err1 != nil || err2 != nil {
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return
	}

	now := c.clock.Now()
	s := Strike{Lat: lat, Lon: lon, At: now.Unix()}
	key := stationKey{
		coarseLat: int64(math.Round(lat * 10)),
		coarseLon: int64(math.Round(lon * 10)),
		second:    now.Unix(),
	}

	c.mu.Lock()
	c.strikes[key] = s
	c.mu.Unlock()
}

func (c *Collector) persistLoop(ctx context.Context) {
	t := time.NewTicker(persistInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.persist(ctx)
		}
	}
}

func (c *Collector) persist(ctx context.Context) {
	c.mu.Lock()
	snapshot := make([]Strike, 0, len(c.strikes))
	for _, s := range c.strikes {
		snapshot = append(snapshot, s)
	}
	c.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].At > snapshot[j].At })

	body, err := json.Marshal(snapshot)
	if err != nil {
		c.log.Warn().Err(err).Msg("lightning: marshal snapshot failed")
		return
	}
	if err := c.cache.Set(ctx, cacheKey, body, ttl); err != nil {
		c.log.Warn().Err(err).Msg("lightning: cache write failed")
	}
}

func (c *Collector) cleanupLoop(ctx context.Context) {
	t := time.NewTicker(cleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.evictOld()
		}
	}
}

func (c *Collector) evictOld() {
	cutoff := c.clock.Now().Add(-retentionWindow).Unix()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, s := range c.strikes {
		if s.At < cutoff {
			delete(c.strikes, k)
		}
	}
}

// Stop closes the live connection, if any; readLoop then returns a read
// error, persist/cleanup unwind, and Start returns that error unless
// ctx has also been cancelled.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
