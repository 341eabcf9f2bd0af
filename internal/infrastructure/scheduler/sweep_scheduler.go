package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
)

// Sweeper — то, что умеет выполнить полную проверку цен.
type Sweeper interface {
	Sweep(ctx context.Context) (*usecase.SweepReport, error)
}

// SweepScheduler запускает проверку цен по таймеру. Проверки не пересекаются:
// тик во время идущей проверки пропускается.
type SweepScheduler struct {
	sweeper    Sweeper
	logger     logger.Logger
	interval   time.Duration
	runOnStart bool

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewSweepScheduler(sweeper Sweeper, logger logger.Logger, interval time.Duration, runOnStart bool) *SweepScheduler {
	return &SweepScheduler{
		sweeper:    sweeper,
		logger:     logger,
		interval:   interval,
		runOnStart: runOnStart,
	}
}

func (s *SweepScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop прерывает текущую проверку и ждёт выхода из цикла.
func (s *SweepScheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SweepScheduler) loop(ctx context.Context) {
	s.logger.Infof("Sweep scheduler started, interval %v", s.interval)

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Sweep scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick запускает проверку в отдельной горутине, если предыдущая завершилась.
func (s *SweepScheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warnf("Previous price check is still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		if _, err := s.sweeper.Sweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				s.logger.Warnf("Scheduled price check cancelled: %v", err)
				return
			}
			s.logger.Errorf(err, "Scheduled price check failed")
		}
	}()
}
