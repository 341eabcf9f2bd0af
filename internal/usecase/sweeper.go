package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Sweeper выполняет полную проверку цен по всем отслеживаемым товарам.
// Каждый товар проверяется независимо: ошибка одного не прерывает остальные.
type Sweeper struct {
	productRepo  ProductRepository
	cacheRepo    CacheRepository
	fetcher      PriceFetcher
	alertSink    AlertSink
	transactor   Transactor
	logger       logger.Logger
	concurrency  int
	fetchTimeout time.Duration
	now          func() time.Time

	mu   sync.RWMutex
	last *SweepReport
}

func NewSweeper(
	productRepo ProductRepository,
	cacheRepo CacheRepository,
	fetcher PriceFetcher,
	alertSink AlertSink,
	transactor Transactor,
	logger logger.Logger,
	concurrency int,
	fetchTimeout time.Duration,
) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Sweeper{
		productRepo:  productRepo,
		cacheRepo:    cacheRepo,
		fetcher:      fetcher,
		alertSink:    alertSink,
		transactor:   transactor,
		logger:       logger,
		concurrency:  concurrency,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// Sweep проверяет все товары и возвращает отчёт.
// Фатальна только ошибка чтения списка товаров. При отмене ctx возвращается
// частичный отчёт (Cancelled=true) вместе с ошибкой контекста; уже
// сохранённые обновления остаются в хранилище.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepReport, error) {
	const op = "Sweeper.Sweep"

	startedAt := s.now()
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	report := newSweepReport(startedAt, products)
	s.logger.Infof("%s: checking %d products (concurrency %d)", op, len(products), s.concurrency)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range products {
		if ctx.Err() != nil {
			break
		}

		result := &report.Results[i]
		g.Go(func() error {
			s.checkProduct(ctx, result)
			return nil
		})
	}
	_ = g.Wait()

	report.finish(s.now(), ctx.Err() != nil)
	s.setLast(report)

	s.logger.Infof(
		"%s: finished in %v: total=%d updated=%d failed=%d alerts=%d cancelled=%t",
		op, report.FinishedAt.Sub(report.StartedAt), report.Total, report.Updated, report.Failed, report.Alerts, report.Cancelled,
	)

	if report.Cancelled {
		return report, e.Wrap(op, ctx.Err())
	}

	return report, nil
}

// Last возвращает отчёт последней завершённой проверки или nil.
func (s *Sweeper) Last() *SweepReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Sweeper) setLast(report *SweepReport) {
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
}

// checkProduct проводит один товар через Pending → Fetching → Updated | Failed.
// Пишет только в свой result. Если ctx отменён, результат отбрасывается
// и состояние остаётся Fetching.
func (s *Sweeper) checkProduct(ctx context.Context, result *SweepResult) {
	const op = "Sweeper.checkProduct"
	id := result.ProductID

	result.State = domain.SweepFetching
	snapshot, err := s.fetch(ctx, id)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		kind, ok := domain.FetchErrorKindOf(err)
		if !ok {
			kind = domain.FetchUnreachable
		}
		s.logger.Warnf("%s: product %s: %v", op, id, err)
		result.fail(kind, err)
		return
	}

	updated, alerted, err := s.apply(ctx, id, snapshot)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warnf("%s: product %s: store update failed: %v", op, id, err)
		result.fail(domain.FetchStoreFailure, err)
		return
	}

	if err := s.cacheRepo.DeleteProducts(ctx, []domain.ProductID{id}); err != nil {
		s.logger.Warnf("%s: failed to invalidate cache for %s: %v", op, id, err)
	}

	switch {
	case updated.NoChanges:
		s.logger.Debugf("%s: product %s unchanged", op, id)
	case updated.PreviousPrice.Valid && !updated.PreviousPrice.Decimal.Equal(snapshot.Price):
		s.logger.Debugf("%s: product %s price %s -> %s", op, id, updated.PreviousPrice.Decimal, snapshot.Price)
	}

	result.State = domain.SweepUpdated
	result.CurrentPrice = updated.Product.CurrentPrice
	result.Alerted = alerted
}

// fetch запрашивает снимок с собственным таймаутом. Зависший запрос
// бросается: его результат, пришедший позже, никуда не попадёт.
func (s *Sweeper) fetch(ctx context.Context, id domain.ProductID) (*domain.Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	type fetchResult struct {
		snapshot *domain.Snapshot
		err      error
	}

	done := make(chan fetchResult, 1)
	go func() {
		snapshot, err := s.fetcher.Fetch(fetchCtx, id)
		done <- fetchResult{snapshot: snapshot, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.snapshot == nil {
			return nil, domain.NewFetchError(id, domain.FetchParseFailure, errors.New("empty snapshot"))
		}
		return r.snapshot, r.err
	case <-fetchCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewFetchError(id, domain.FetchUnreachable, fmt.Errorf("no response within %v", s.fetchTimeout))
	}
}

// apply сохраняет снимок и, если цена достигла цели, отправляет событие
// в той же транзакции.
func (s *Sweeper) apply(ctx context.Context, id domain.ProductID, snapshot *domain.Snapshot) (*UpsertProductRes, bool, error) {
	var (
		res     *UpsertProductRes
		alerted bool
	)

	patch := domain.NewSnapshotPatch(snapshot)
	patch.UpdateOnly = true

	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.productRepo.Upsert(ctx, id, patch)
		if err != nil {
			return err
		}

		if !domain.ShouldAlert(res.Product) {
			return nil
		}

		if err := s.alertSink.Emit(ctx, domain.NewAlertEvent(res.Product, s.now())); err != nil {
			return err
		}
		alerted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return res, alerted, nil
}

func newSweepReport(startedAt time.Time, products []domain.Product) *SweepReport {
	results := make([]SweepResult, len(products))
	for i := range products {
		results[i] = SweepResult{
			ProductID: products[i].ID,
			State:     domain.SweepPending,
		}
	}

	return &SweepReport{
		StartedAt:    startedAt,
		Total:        len(products),
		ErrorsByKind: make(map[domain.FetchErrorKind]int),
		Results:      results,
	}
}

func (r *SweepReport) finish(finishedAt time.Time, cancelled bool) {
	r.FinishedAt = finishedAt
	r.Cancelled = cancelled

	for _, res := range r.Results {
		switch res.State {
		case domain.SweepUpdated:
			r.Updated++
			if res.Alerted {
				r.Alerts++
			}
		case domain.SweepFailed:
			r.Failed++
			r.ErrorsByKind[res.ErrorKind]++
		}
	}
}

func (r *SweepResult) fail(kind domain.FetchErrorKind, err error) {
	r.State = domain.SweepFailed
	r.ErrorKind = kind
	r.Error = err.Error()
	r.CurrentPrice = decimal.NullDecimal{}
}
