package aprs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/clock"
)

type fakeCache struct{ store map[string][]byte }

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }
func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := f.store[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}
func (f *fakeCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	f.store[key] = val
	return nil
}
func (f *fakeCache) Keys(ctx context.Context, pattern string) ([]string, error) { return nil, nil }
func (f *fakeCache) Pipeline(ctx context.Context, writes map[string][]byte, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) Ping(ctx context.Context) error { return nil }

func TestDmToDecimal_NorthEast(t *testing.T) {
	v := dmToDecimal("40", "30.00", false)
	if v != 40.5 {
		t.Fatalf("dmToDecimal = %v want 40.5", v)
	}
}

func TestDmToDecimal_SouthWest_Negates(t *testing.T) {
	v := dmToDecimal("40", "30.00", true)
	if v != -40.5 {
		t.Fatalf("dmToDecimal = %v want -40.5", v)
	}
}

func TestIngest_ParsesValidPositionReport(t *testing.T) {
	fc := clock.NewFake()
	c := New(nil, "N0CALL", "", newFakeCache(), fc, zerolog.Nop())

	c.ingest("KJ6ABC-9>APRS,TCPIP*:!4030.50N/07945.75W>test")

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stations) != 1 {
		t.Fatalf("stations = %d want 1", len(c.stations))
	}
	for _, s := range c.stations {
		if s.Call != "KJ6ABC-9" {
			t.Fatalf("Call = %q want KJ6ABC-9", s.Call)
		}
	}
}

func TestIngest_UnrecognizedLine_Dropped(t *testing.T) {
	c := New(nil, "N0CALL", "", newFakeCache(), clock.NewFake(), zerolog.Nop())
	c.ingest("# comment line, not a position report")
	c.ingest("not a valid aprs frame at all")

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stations) != 0 {
		t.Fatalf("stations = %d want 0", len(c.stations))
	}
}

func TestPersist_WritesSortedSnapshot(t *testing.T) {
	fc := clock.NewFake()
	cch := newFakeCache()
	c := New(nil, "N0CALL", "", cch, fc, zerolog.Nop())

	c.ingest("OLD1>APRS,TCPIP*:!4000.00N/07400.00W>old")
	fc.Advance(time.Minute)
	c.ingest("NEW1>APRS,TCPIP*:!4100.00N/07500.00W>new")

	c.persist(context.Background())

	raw, ok := cch.store[cacheKey]
	if !ok {
		t.Fatal("expected kaos:aprs:global to be written")
	}
	var snap []Station
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d want 2", len(snap))
	}
	if snap[0].Call != "NEW1" {
		t.Fatalf("snap[0].Call = %q want NEW1 (most recent first)", snap[0].Call)
	}
}

func TestEvictOld_RemovesStationsPastRetention(t *testing.T) {
	fc := clock.NewFake()
	c := New(nil, "N0CALL", "", newFakeCache(), fc, zerolog.Nop())

	c.ingest("STALE>APRS,TCPIP*:!4000.00N/07400.00W>stale")
	fc.Advance(retentionWindow + time.Minute)
	c.ingest("FRESH>APRS,TCPIP*:!4100.00N/07500.00W>fresh")

	c.evictOld()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stations) != 1 {
		t.Fatalf("stations = %d want 1 after eviction", len(c.stations))
	}
	for _, s := range c.stations {
		if s.Call != "FRESH" {
			t.Fatalf("remaining station = %q want FRESH", s.Call)
		}
	}
}

func TestStart_NoGateways_Errors(t *testing.T) {
	c := New(nil, "N0CALL", "", newFakeCache(), clock.NewFake(), zerolog.Nop())
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("want error when no gateways configured")
	}
}
