package common

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/fetcher"
)

func TestRaster_LatLonAt_NorthToSouthWestEdge(t *testing.T) {
	r := Raster{Header: RasterHeader{NX: 4, NY: 3, Lo1: -10, La1: 50, Dx: 0.5, Dy: 0.25}}

	lat, lon := r.LatLonAt(0, 0)
	if lat != 50 || lon != -10 {
		t.Fatalf("(0,0) = (%v,%v) want (50,-10)", lat, lon)
	}
	lat, lon = r.LatLonAt(2, 3)
	if lat != 49.5 || lon != -8.5 {
		t.Fatalf("(2,3) = (%v,%v) want (49.5,-8.5)", lat, lon)
	}
}

func TestRaster_MissingCell_MarshalsNull(t *testing.T) {
	r := Raster{
		Header: RasterHeader{NX: 2, NY: 1, Lo1: 0, La1: 0, Dx: 1, Dy: 1},
		Data:   []*float64{F64(1.5), nil},
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	data := decoded["data"].([]any)
	if data[0] != 1.5 {
		t.Fatalf("data[0] = %v want 1.5", data[0])
	}
	if data[1] != nil {
		t.Fatalf("data[1] = %v want null", data[1])
	}
}

func TestGetJSON_DecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"hello": "world"})
	}))
	defer srv.Close()

	f := fetcher.New(srv.Client(), clock.New())
	var out map[string]string
	if err := GetJSON(context.Background(), f, srv.URL, nil, 5000, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out["hello"] != "world" {
		t.Fatalf("out = %+v", out)
	}
}

func TestGetRaw_ReturnsBodyVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection"}`))
	}))
	defer srv.Close()

	f := fetcher.New(srv.Client(), clock.New())
	body, err := GetRaw(context.Background(), f, srv.URL, nil, 5000)
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if string(body) != `{"type":"FeatureCollection"}` {
		t.Fatalf("body = %q", body)
	}
}

func TestGetJSON_SendsHeaders(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	f := fetcher.New(srv.Client(), clock.New())
	var out map[string]string
	_ = GetJSON(context.Background(), f, srv.URL, map[string]string{"X-API-Key": "abc123"}, 5000, &out)
	if gotKey != "abc123" {
		t.Fatalf("X-API-Key = %q want abc123", gotKey)
	}
}
