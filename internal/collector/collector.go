// Package collector defines the capability-based collector model (spec
// §4.3, §4.4, §9): a collector is whatever satisfies the interfaces
// below, never a base type it must embed. The interval run-loop here
// is grounded on the teacher's scheduled-refresh goroutine
// (internal/core/scheduler in the prior tree); the reconnect/backoff
// shape used by StreamRunner is grounded on
// pkg/invalidation/kafka/runner.go Start().
package collector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/cache"
	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/fetcher"
	"github.com/kaos-observability/ingest/internal/logger"
	"github.com/kaos-observability/ingest/internal/observability"
)

// Interval is satisfied by any collector that runs to completion on a
// fixed schedule: poll a source, write its cache keys, return.
type Interval interface {
	Name() string
	Collect(ctx context.Context) error
}

// Stream is satisfied by a collector that holds a long-lived connection
// (websocket, TCP) and pushes records into the cache as they arrive,
// rather than completing a single pass.
type Stream interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
}

// Status is the last-observed state of a collector, used by the health
// rollup (spec §6).
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// Meta is the bookkeeping record a Runner keeps per collector and that
// the health surface reads.
type Meta struct {
	Name              string
	Status            Status
	LastRunAt         time.Time
	LastSuccessAt     time.Time
	LastErr           error
	ConsecutiveErrors int
}

// errorThreshold marks a collector errored once consecutive failures reach
// it; below that but above zero it is degraded, not yet errored.
const errorThreshold = 3

func statusFor(consecutiveErrors int) Status {
	switch {
	case consecutiveErrors == 0:
		return StatusOK
	case consecutiveErrors < errorThreshold:
		return StatusDegraded
	default:
		return StatusError
	}
}

// Runner wraps a single Interval collector with a non-overlap guard,
// bounded retry-with-backoff around one Collect attempt, and metadata
// tracking. The scheduler holds one Runner per interval collector and
// never double-gates concurrency on top of it.
type Runner struct {
	c       Interval
	cache   cache.Interface
	clock   clock.Clock
	log     zerolog.Logger
	retries int
	delay   time.Duration

	running chan struct{} // buffered(1), used as a non-blocking mutex

	metaMu sync.RWMutex
	meta   Meta
}

func NewRunner(c Interval, cc cache.Interface, ck clock.Clock, log zerolog.Logger, retries int, delay time.Duration) *Runner {
	if ck == nil {
		ck = clock.New()
	}
	r := &Runner{
		c:       c,
		cache:   cc,
		clock:   ck,
		log:     log.With().Str("collector", c.Name()).Logger(),
		retries: retries,
		delay:   delay,
		running: make(chan struct{}, 1),
	}
	r.running <- struct{}{}
	r.meta = Meta{Name: c.Name(), Status: StatusOK}
	return r
}

func (r *Runner) Meta() Meta {
	r.metaMu.RLock()
	defer r.metaMu.RUnlock()
	return r.meta
}

// Tick attempts one run if the previous one has finished; otherwise it
// is a no-op (the scheduler ticks on a fixed interval and must never
// queue up overlapping runs for a slow collector).
func (r *Runner) Tick(ctx context.Context) {
	select {
	case <-r.running:
	default:
		r.log.Debug().Msg("skipping tick, previous run still in flight")
		return
	}
	defer func() { r.running <- struct{}{} }()

	runCtx := logger.WithRunID(logger.WithCollector(ctx, r.c.Name()), logger.NewID())
	start := r.clock.Now()
	err := r.runWithRetry(runCtx)
	dur := r.clock.Now().Sub(start)

	r.metaMu.Lock()
	r.meta.LastRunAt = start
	if err != nil {
		r.meta.ConsecutiveErrors++
		r.meta.LastErr = err
		r.meta.Status = statusFor(r.meta.ConsecutiveErrors)
	} else {
		r.meta.ConsecutiveErrors = 0
		r.meta.LastErr = nil
		r.meta.LastSuccessAt = start
		r.meta.Status = StatusOK
	}
	meta := r.meta
	r.metaMu.Unlock()

	if err != nil {
		r.log.Warn().Err(err).Int("consecutive_errors", meta.ConsecutiveErrors).Dur("duration", dur).Msg("collector run failed")
		observability.ObserveCollectorRun(r.c.Name(), "error", dur)
	} else {
		r.log.Debug().Dur("duration", dur).Msg("collector run ok")
		observability.ObserveCollectorRun(r.c.Name(), "ok", dur)
	}
	observability.SetCollectorStatus(r.c.Name(), string(meta.Status), meta.ConsecutiveErrors)
	r.writeMeta(ctx, meta)
}

// writeMeta writes the three meta:<name>:* keys (spec §3) without TTL,
// so the health surface keeps observing a collector after its payload
// has expired. Uses the caller's ctx; runCtx only adds log fields to
// it, so once ctx is cancelled this write fails and is only logged.
func (r *Runner) writeMeta(ctx context.Context, meta Meta) {
	if r.cache == nil {
		return
	}
	name := r.c.Name()
	writes := map[string][]byte{
		"meta:" + name + ":status":      []byte(meta.Status),
		"meta:" + name + ":last-run":    []byte(strconv.FormatInt(meta.LastRunAt.UnixMilli(), 10)),
		"meta:" + name + ":error-count": []byte(strconv.Itoa(meta.ConsecutiveErrors)),
	}
	if err := r.cache.Pipeline(ctx, writes, 0); err != nil {
		r.log.Warn().Err(err).Msg("failed to write collector metadata to cache")
	}
}

func (r *Runner) runWithRetry(ctx context.Context) error {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= r.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts++
		err := r.c.Collect(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		var fe *fetcher.Error
		if errors.As(err, &fe) && !fe.Retryable() {
			break
		}
		if attempt == r.retries {
			break
		}
		delay := r.delay * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(delay):
		}
	}
	return fmt.Errorf("collect after %d attempts: %w", attempts, lastErr)
}

// StreamRunner drives a Stream collector's connect/run/reconnect loop.
// Grounded on the teacher's kafka consumer-group runner: call Start,
// and if it returns (connection dropped, subscribe failed), back off
// and retry until ctx is cancelled.
type StreamRunner struct {
	c        Stream
	clock    clock.Clock
	log      zerolog.Logger
	delay    time.Duration
	maxDelay time.Duration
}

func NewStreamRunner(c Stream, ck clock.Clock, log zerolog.Logger, delay, maxDelay time.Duration) *StreamRunner {
	if ck == nil {
		ck = clock.New()
	}
	return &StreamRunner{
		c:        c,
		clock:    ck,
		log:      log.With().Str("collector", c.Name()).Logger(),
		delay:    delay,
		maxDelay: maxDelay,
	}
}

// Run blocks until ctx is cancelled, reconnecting the Stream collector
// with exponential backoff (capped at maxDelay) every time Start returns.
func (r *StreamRunner) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		runCtx := logger.WithCollector(ctx, r.c.Name())
		observability.ObserveWSConnection(r.c.Name(), "connecting")
		err := r.c.Start(runCtx)
		if err == nil {
			// Start returns nil once ctx has been cancelled; nothing to retry.
			observability.ObserveWSConnection(r.c.Name(), "stopped")
			return
		}

		attempt++
		observability.ObserveWSConnection(r.c.Name(), "disconnected")
		observability.SetWSReconnectFailures(r.c.Name(), attempt)
		r.log.Warn().Err(err).Int("attempt", attempt).Msg("stream collector disconnected, reconnecting")

		delay := r.delay * time.Duration(1<<uint(min(attempt-1, 10)))
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(delay):
		}
	}
}

func (r *StreamRunner) Stop() { r.c.Stop() }
