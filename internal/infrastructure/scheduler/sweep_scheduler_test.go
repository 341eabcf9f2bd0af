package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
)

type slowSweeper struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (s *slowSweeper) Sweep(ctx context.Context) (*usecase.SweepReport, error) {
	s.calls.Add(1)
	if s.running.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.running.Add(-1)

	select {
	case <-time.After(s.delay):
		return &usecase.SweepReport{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSchedulerRunsOnStart(t *testing.T) {
	sw := &slowSweeper{}
	s := NewSweepScheduler(sw, logger.Nop{}, time.Hour, true)
	s.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for sw.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sw.calls.Load() != 1 {
		t.Fatalf("expected 1 sweep on start, got %d", sw.calls.Load())
	}
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	sw := &slowSweeper{delay: 100 * time.Millisecond}
	s := NewSweepScheduler(sw, logger.Nop{}, 10*time.Millisecond, false)
	s.Start(context.Background())

	time.Sleep(250 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if sw.overlap.Load() {
		t.Fatalf("sweeps overlapped")
	}
	if c := sw.calls.Load(); c == 0 || c > 3 {
		t.Fatalf("expected 1..3 sweeps, got %d", c)
	}
}
