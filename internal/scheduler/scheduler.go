// Package scheduler holds the worker process's job table (spec §4.5):
// one ticker per interval collector, and one goroutine per stream
// collector. It never gates concurrency itself — each collector.Runner
// already refuses to overlap itself — the scheduler only decides when
// to tick, and never runs a catch-up tick for a missed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/collector"
)

type intervalJob struct {
	runner   *collector.Runner
	interval time.Duration
}

type streamJob struct {
	runner *collector.StreamRunner
}

type Scheduler struct {
	log zerolog.Logger

	mu       sync.Mutex
	interval []intervalJob
	stream   []streamJob

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// AddInterval registers a collector to be ticked every interval. Call
// before Start; jobs added after Start has begun are not picked up.
func (s *Scheduler) AddInterval(r *collector.Runner, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = append(s.interval, intervalJob{runner: r, interval: interval})
}

// AddStream registers a long-lived stream collector.
func (s *Scheduler) AddStream(r *collector.StreamRunner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = append(s.stream, streamJob{runner: r})
}

// Start launches one goroutine per registered job. It returns
// immediately; jobs run until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.interval {
		job := job
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runInterval(runCtx, job)
		}()
	}
	for _, job := range s.stream {
		job := job
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			job.runner.Run(runCtx)
		}()
	}
	s.log.Info().Int("interval_jobs", len(s.interval)).Int("stream_jobs", len(s.stream)).Msg("scheduler started")
}

func (s *Scheduler) runInterval(ctx context.Context, job intervalJob) {
	// Run once at startup so a fresh cache isn't empty for a full interval.
	job.runner.Tick(ctx)

	t := time.NewTicker(job.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			job.runner.Tick(ctx)
		}
	}
}

// Stop cancels all jobs and blocks until they have returned.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	streams := append([]streamJob(nil), s.stream...)
	s.mu.Unlock()
	for _, job := range streams {
		job.runner.Stop()
	}
	s.wg.Wait()
}

// Status reports the last-known Meta for every interval collector, used
// by the health rollup (spec §6).
func (s *Scheduler) Status() []collector.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]collector.Meta, 0, len(s.interval))
	for _, job := range s.interval {
		out = append(out, job.runner.Meta())
	}
	return out
}
