package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kaos-observability/ingest/internal/clock"
)

func newReq(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(srv.Client(), clock.New())
	resp, body, err := f.Do(context.Background(), newReq(t, srv.URL), Options{Retries: 2, RetryDelayMs: 1})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("status=%d body=%q", resp.StatusCode, body)
	}
}

func TestDo_RetriesOn5xx_ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(srv.Client(), clock.New())
	resp, _, err := f.Do(context.Background(), newReq(t, srv.URL), Options{Retries: 3, RetryDelayMs: 1})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if calls != 3 {
		t.Fatalf("calls=%d want 3", calls)
	}
}

func TestDo_4xx_NotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(srv.Client(), clock.New())
	_, _, err := f.Do(context.Background(), newReq(t, srv.URL), Options{Retries: 3, RetryDelayMs: 1})
	if err == nil {
		t.Fatal("want error")
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1 (4xx must not retry)", calls)
	}
	if StatusFor(err) != http.StatusNotFound {
		t.Fatalf("StatusFor = %d want 404", StatusFor(err))
	}
}

func TestDo_ExhaustsRetriesOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(srv.Client(), clock.New())
	_, _, err := f.Do(context.Background(), newReq(t, srv.URL), Options{Retries: 2, RetryDelayMs: 1})
	if err == nil {
		t.Fatal("want error")
	}
	if calls != 3 {
		t.Fatalf("calls=%d want 3 (1 + 2 retries)", calls)
	}
	if StatusFor(err) != http.StatusBadGateway {
		t.Fatalf("StatusFor = %d want 502", StatusFor(err))
	}
}

func TestDo_Timeout_MapsTo504(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(srv.Client(), clock.New())
	_, _, err := f.Do(context.Background(), newReq(t, srv.URL), Options{Retries: 0, TimeoutMs: 5})
	if err == nil {
		t.Fatal("want timeout error")
	}
	if StatusFor(err) != http.StatusGatewayTimeout {
		t.Fatalf("StatusFor = %d want 504", StatusFor(err))
	}
}
