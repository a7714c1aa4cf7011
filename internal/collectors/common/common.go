// Package common holds the small pieces every hand-written collector
// repeats: a GET-and-decode helper over the shared fetcher, and the
// raster/vector grid and compact-record shapes from the data model
// (spec §3). Individual collector packages own their own parsing of
// provider-specific payloads into these shapes.
package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kaos-observability/ingest/internal/fetcher"
)

// GetRaw issues a GET to url with headers, through f, and returns the
// raw response body unparsed (for providers whose JSON is stored as a
// passthrough, e.g. aurora, IPMA warnings).
func GetRaw(ctx context.Context, f *fetcher.Fetcher, url string, headers map[string]string, timeoutMs int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	_, body, err := f.Do(ctx, req, fetcher.Options{TimeoutMs: timeoutMs})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

// GetJSON issues a GET to url with headers, through f, and decodes the
// JSON body into out.
func GetJSON(ctx context.Context, f *fetcher.Fetcher, url string, headers map[string]string, timeoutMs int, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	_, body, err := f.Do(ctx, req, fetcher.Options{TimeoutMs: timeoutMs})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// RasterHeader describes a regular lat/lon mesh, row-major, north to
// south, west edge lo1 with dx > 0 (spec §3 raster invariants).
type RasterHeader struct {
	NX  int     `json:"nx"`
	NY  int     `json:"ny"`
	Lo1 float64 `json:"lo1"`
	La1 float64 `json:"la1"`
	Dx  float64 `json:"dx"`
	Dy  float64 `json:"dy"`
}

type Raster struct {
	Header RasterHeader `json:"header"`
	Data   []*float64   `json:"data"`
	Unit   string       `json:"unit"`
	Name   string       `json:"name"`
}

// LatLonAt returns the coordinate of cell (yi, xi) per the raster
// invariant: idx = yi*nx+xi -> lat = la1 - yi*dy, lon = lo1 + xi*dx.
func (r Raster) LatLonAt(yi, xi int) (lat, lon float64) {
	return r.Header.La1 - float64(yi)*r.Header.Dy, r.Header.Lo1 + float64(xi)*r.Header.Dx
}

// Vector is a pair of rasters sharing a header, carrying u/v components
// (spec §3 vector grid family: wind, ocean currents).
type Vector struct {
	Header RasterHeader `json:"header"`
	U      []*float64   `json:"u"`
	V      []*float64   `json:"v"`
	Unit   string       `json:"unit"`
	Name   string       `json:"name"`
}

// F64 is a small constructor helper so collector code can write
// common.F64(v) instead of repeating the &v-needs-a-variable dance.
func F64(v float64) *float64 { return &v }
