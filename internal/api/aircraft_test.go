package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/kaos-observability/ingest/internal/collectors/aircraft"
)

func TestHandleAircraft_FiltersByBoundingBox(t *testing.T) {
	c := newFakeCache()
	c.set("kaos:aircraft:global", []aircraft.Record{
		{ICAO24: "in-box", Lat: 38.7, Lon: -9.1},
		{ICAO24: "out-of-box", Lat: 52.5, Lon: 13.4},
	})
	srv := newTestServer(c)

	req := httptest.NewRequest("GET", "/api/aircraft?lamin=38&lamax=39&lomin=-10&lomax=-8", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("code = %d want 200: %s", rec.Code, rec.Body.String())
	}
	var out []aircraft.Full
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ICAO24 != "in-box" {
		t.Fatalf("out = %+v want exactly in-box", out)
	}
}

func TestHandleAircraft_PartialBBox_400(t *testing.T) {
	c := newFakeCache()
	srv := newTestServer(c)

	req := httptest.NewRequest("GET", "/api/aircraft?lamin=38&lamax=39", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("code = %d want 400 (partial bbox)", rec.Code)
	}
}

func TestHandleAircraft_NoBBox_ReturnsAll(t *testing.T) {
	c := newFakeCache()
	c.set("kaos:aircraft:global", []aircraft.Record{
		{ICAO24: "a", Lat: 1, Lon: 1},
		{ICAO24: "b", Lat: 2, Lon: 2},
	})
	srv := newTestServer(c)

	req := httptest.NewRequest("GET", "/api/aircraft", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var out []aircraft.Full
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("out len = %d want 2", len(out))
	}
}

func TestHandleAircraft_CacheMiss_503(t *testing.T) {
	srv := newTestServer(newFakeCache())
	req := httptest.NewRequest("GET", "/api/aircraft", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Fatalf("code = %d want 503", rec.Code)
	}
}
