// Package fetcher implements the single outbound HTTP path collectors
// use (spec §4.2): per-call timeout, bounded retries with exponential
// backoff, and classification of errors into transient vs permanent 4xx.
//
// The retry loop's shape — attempt, classify, sleep base·2^attempt,
// bounded by ctx — is grounded on the teacher's
// pkg/invalidation/kafka/runner.go Start() loop (retry group.Consume
// with backoff, bounded by ctx.Done()); the per-call request/classify
// shape is grounded on couchcryptid-storm-data-etl-service's mapbox
// client doRequest.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/observability"
)

// Kind classifies a fetch failure so callers (collectors, read handlers)
// can map it onto the spec §7 error taxonomy.
type Kind int

const (
	KindNone Kind = iota
	KindTimeout
	KindNetwork
	Kind4xx
	Kind5xx
)

// Error wraps a fetch failure with its Kind and, for HTTP responses, the
// status code.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the error is eligible for another attempt.
func (e *Error) Retryable() bool {
	return e.Kind != Kind4xx
}

type Options struct {
	TimeoutMs    int
	Retries      int
	RetryDelayMs int
	ShouldRetry  func(err error) bool
}

func defaultOptions(o Options) Options {
	if o.TimeoutMs <= 0 {
		o.TimeoutMs = 30000
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelayMs <= 0 {
		o.RetryDelayMs = 1000
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = func(err error) bool {
			var fe *Error
			if errors.As(err, &fe) {
				return fe.Retryable()
			}
			return true
		}
	}
	return o
}

type Fetcher struct {
	client *http.Client
	clock  clock.Clock
}

func New(client *http.Client, ck clock.Clock) *Fetcher {
	if ck == nil {
		ck = clock.New()
	}
	return &Fetcher{client: client, clock: ck}
}

// Do issues req (cloned per attempt via req.Clone) with bounded retries
// and exponential backoff. The caller supplies a fresh, unsent request;
// Do handles per-attempt timeout and retry itself.
func (f *Fetcher) Do(ctx context.Context, req *http.Request, opts Options) (*http.Response, []byte, error) {
	opts = defaultOptions(opts)

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
		attemptReq := req.Clone(attemptCtx)

		start := f.clock.Now()
		resp, body, err := f.do(attemptReq)
		dur := f.clock.Now().Sub(start)
		cancel()

		if err == nil {
			observability.ObserveFetch("ok", dur)
			return resp, body, nil
		}
		lastErr = err

		outcome := "error"
		var fe *Error
		if errors.As(err, &fe) {
			switch fe.Kind {
			case KindTimeout:
				outcome = "timeout"
			case Kind4xx:
				outcome = "4xx"
			case Kind5xx:
				outcome = "5xx"
			case KindNetwork:
				outcome = "network"
			}
		}
		observability.ObserveFetch(outcome, dur)

		if attempt == opts.Retries || !opts.ShouldRetry(err) {
			break
		}

		delay := time.Duration(opts.RetryDelayMs) * time.Millisecond * time.Duration(pow2(attempt))
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-f.clock.After(delay):
		}
	}
	return nil, nil, lastErr
}

func (f *Fetcher) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return resp, body, &Error{Kind: Kind4xx, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	}
	if resp.StatusCode >= 500 {
		return resp, body, &Error{Kind: Kind5xx, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	}
	if readErr != nil {
		return nil, nil, &Error{Kind: KindNetwork, Err: readErr}
	}
	return resp, body, nil
}

func pow2(n int) int64 {
	if n < 0 {
		return 1
	}
	r := int64(1)
	for range n {
		r *= 2
	}
	return r
}

// StatusFor maps a fetch error's Kind onto the HTTP status a read
// handler should surface to its own client (spec §4.2, §7).
func StatusFor(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case KindTimeout:
			return http.StatusGatewayTimeout
		case KindNetwork:
			return http.StatusBadGateway
		case Kind4xx:
			if fe.StatusCode != 0 {
				return fe.StatusCode
			}
			return http.StatusBadRequest
		case Kind5xx:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}
