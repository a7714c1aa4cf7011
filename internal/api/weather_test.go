package api

import (
	"net/http/httptest"
	"testing"
)

func TestHandleWeatherCurrent_CacheHit_SkipsUpstream(t *testing.T) {
	c := newFakeCache()
	c.set("kaos:weather:current:38.7:-9.1", map[string]any{"temp": 21})
	srv := newTestServer(c)

	req := httptest.NewRequest("GET", "/api/weather/current?lat=38.74&lon=-9.14", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("code = %d want 200: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Data-Source") != "cache" {
		t.Fatalf("X-Data-Source = %q want cache", rec.Header().Get("X-Data-Source"))
	}
}

func TestHandleWeatherCurrent_OutOfRangeCoords_400(t *testing.T) {
	srv := newTestServer(newFakeCache())
	req := httptest.NewRequest("GET", "/api/weather/current?lat=999&lon=-9.1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("code = %d want 400", rec.Code)
	}
}

func TestHandleWeatherCurrent_MissingParams_400(t *testing.T) {
	srv := newTestServer(newFakeCache())
	req := httptest.NewRequest("GET", "/api/weather/current", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("code = %d want 400", rec.Code)
	}
}

func TestHandleWeatherTile_UnknownLayer_400(t *testing.T) {
	srv := newTestServer(newFakeCache())
	req := httptest.NewRequest("GET", "/api/weather/tiles/not-a-layer/3/4/5", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("code = %d want 400", rec.Code)
	}
}
