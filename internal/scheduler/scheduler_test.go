package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaos-observability/ingest/internal/clock"
	"github.com/kaos-observability/ingest/internal/collector"
)

type countingInterval struct {
	name string
	runs int32
}

func (c *countingInterval) Name() string { return c.name }
func (c *countingInterval) Collect(ctx context.Context) error {
	atomic.AddInt32(&c.runs, 1)
	return nil
}

func TestScheduler_RunsImmediatelyThenOnInterval(t *testing.T) {
	ci := &countingInterval{name: "aurora"}
	runner := collector.NewRunner(ci, nil, clock.New(), zerolog.Nop(), 0, time.Millisecond)

	s := New(zerolog.Nop())
	s.AddInterval(runner, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(5 * time.Millisecond)
	if atomic.LoadInt32(&ci.runs) < 1 {
		t.Fatal("expected an immediate first run before any ticker fires")
	}

	time.Sleep(55 * time.Millisecond)
	cancel()
	s.Stop()

	if atomic.LoadInt32(&ci.runs) < 3 {
		t.Fatalf("runs = %d want >= 3 across ~60ms at a 20ms interval", ci.runs)
	}
}

func TestScheduler_Status_ReflectsRunnerMeta(t *testing.T) {
	ci := &countingInterval{name: "prociv"}
	runner := collector.NewRunner(ci, nil, clock.New(), zerolog.Nop(), 0, time.Millisecond)

	s := New(zerolog.Nop())
	s.AddInterval(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	time.Sleep(10 * time.Millisecond)
	s.Stop()

	statuses := s.Status()
	if len(statuses) != 1 {
		t.Fatalf("Status() len = %d want 1", len(statuses))
	}
	if statuses[0].Name != "prociv" {
		t.Fatalf("Status()[0].Name = %q want prociv", statuses[0].Name)
	}
	if statuses[0].Status != collector.StatusOK {
		t.Fatalf("Status()[0].Status = %v want ok", statuses[0].Status)
	}
}

func TestScheduler_Stop_WaitsForStreamJobs(t *testing.T) {
	fs := &stubStream{stopped: make(chan struct{})}
	sr := collector.NewStreamRunner(fs, clock.New(), zerolog.Nop(), time.Millisecond, time.Millisecond)

	s := New(zerolog.Nop())
	s.AddStream(sr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	time.Sleep(5 * time.Millisecond)
	s.Stop()

	select {
	case <-fs.stopped:
	default:
		t.Fatal("Stop() should have invoked the stream runner's Stop()")
	}
}

type stubStream struct {
	stopped chan struct{}
}

func (s *stubStream) Name() string { return "lightning" }
func (s *stubStream) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
func (s *stubStream) Stop() { close(s.stopped) }
