// Package aprs implements the stream-variant collector for amateur
// radio station positions over APRS-IS, a line-oriented TCP feed
// rather than a websocket (spec §4.4 "APRS over a TCP/stream
// gateway"). Structurally identical to the lightning collector's
// connect/buffer/persist/reconnect shape; the gateway's login-then-
// pace-reads protocol is rate limited with golang.org/x/time/rate
// so a burst of traffic doesn't starve the persistence timer.
package aprs

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/clock"
)

const (
	cacheKey        = "kaos:aprs:global"
	ttl             = 300 * time.Second
	persistInterval = 10 * time.Second
	cleanupInterval = 60 * time.Second
	retentionWindow = 60 * time.Minute
)

type Station struct {
	Call string  `json:"call"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	At   int64   `json:"time"`
}

type stationKey struct {
	call string
}

type Collector struct {
	gateways []string
	callsign string
	filter   string
	cache    cache.Interface
	clock    clock.Clock
	log      zerolog.Logger
	limiter  *rate.Limiter

	mu       sync.Mutex
	stations map[stationKey]Station
	conn     net.Conn
}

func New(gateways []string, callsign, filter string, c cache.Interface, ck clock.Clock, log zerolog.Logger) *Collector {
	if ck == nil {
		ck = clock.New()
	}
	if callsign == "" {
		callsign = "N0CALL"
	}
	return &Collector{
		gateways: gateways,
		callsign: callsign,
		filter:   filter,
		cache:    c,
		clock:    ck,
		log:      log.With().Str("collector", "aprs").Logger(),
		limiter:  rate.NewLimiter(rate.Limit(50), 100),
		stations: make(map[stationKey]Station),
	}
}

func (c *Collector) Name() string { return "aprs" }

func (c *Collector) Start(ctx context.Context) error {
	if len(c.gateways) == 0 {
		return fmt.Errorf("aprs: no gateways configured")
	}
	addr := c.gateways[int(c.clock.Now().UnixNano())%len(c.gateways)]

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("aprs: dial %s: %w", addr, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	login := fmt.Sprintf("user %s pass -1 vers kaos-ingest 1.0", c.callsign)
	if c.filter != "" {
		login += " filter " + c.filter
	}
	if _, err := fmt.Fprintf(conn, "%s\r\n", login); err != nil {
		_ = conn.Close()
		return fmt.Errorf("aprs: login: %w", err)
	}
	c.log.Info().Str("gateway", addr).Msg("aprs gateway connected")

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
		return nil
	}
	return readErr
}

func (c *Collector) readLoop(ctx context.Context, conn net.Conn) error {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}
		c.ingest(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("aprs: read: %w", err)
	}
	return fmt.Errorf("aprs: connection closed by peer")
}

var posRe = regexp.MustCompile(`^([A-Z0-9-]+)>.*[:!](\d{2})(\d{2}\.\d{2})([NS]).([0-1]\d{2})(\d{2}\.\d{2})([EW])`)

// ingest parses the subset of APRS position reports this service
// cares about; anything it doesn't recognize is dropped silently, the
// same tolerance the lightning collector applies to its frames.
func (c *Collector) ingest(line string) {
	if strings.HasPrefix(line, "#") {
		return
	}
	m := posRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	call := m[1]
	lat := dmToDecimal(m[2], m[3], m[4] == "S")
	lon := dmToDecimal(m[5], m[6], m[7] == "W")
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return
	}

	s := Station{Call: call, Lat: lat, Lon: lon, At: c.clock.Now().Unix()}
	c.mu.Lock()
	c.stations[stationKey{call: call}] = s
	c.mu.Unlock()
}

func dmToDecimal(deg, min string, negative bool) float64 {
	d, _ := strconv.ParseFloat(deg, 64)
	m, _ := strconv.ParseFloat(min, 64)
	v := d + m/60
	if negative {
		v = -v
	}
	return v
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
	snapshot := make([]Station, 0, len(c.stations))
	for _, s := range c.stations {
		snapshot = append(snapshot, s)
	}
	c.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].At > snapshot[j].At })

	body, err := json.Marshal(snapshot)
	if err != nil {
		c.log.Warn().Err(err).Msg("aprs: marshal snapshot failed")
		return
	}
	if err := c.cache.Set(ctx, cacheKey, body, ttl); err != nil {
		c.log.Warn().Err(err).Msg("aprs: cache write failed")
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
	for k, s := range c.stations {
		if s.At < cutoff {
			delete(c.stations, k)
		}
	}
}

func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
