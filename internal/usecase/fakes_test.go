package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/repository/memory"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/DRSN-tech/price-tracker/pkg/tr"
	"github.com/shopspring/decimal"
)

type fetchReply struct {
	title string
	price string
	kind  domain.FetchErrorKind
	block bool // ждать отмены ctx
}

type fakeFetcher struct {
	mu      sync.Mutex
	replies map[domain.ProductID]fetchReply
	calls   map[domain.ProductID]int
	onFetch func(id domain.ProductID)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		replies: make(map[domain.ProductID]fetchReply),
		calls:   make(map[domain.ProductID]int),
	}
}

func (f *fakeFetcher) set(id domain.ProductID, reply fetchReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[id] = reply
}

func (f *fakeFetcher) callCount(id domain.ProductID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeFetcher) Fetch(ctx context.Context, id domain.ProductID) (*domain.Snapshot, error) {
	f.mu.Lock()
	reply, ok := f.replies[id]
	f.calls[id]++
	onFetch := f.onFetch
	f.mu.Unlock()

	if onFetch != nil {
		onFetch(id)
	}

	if !ok {
		return nil, domain.NewFetchError(id, domain.FetchNotFound, nil)
	}
	if reply.block {
		<-ctx.Done()
		return nil, domain.NewFetchError(id, domain.FetchUnreachable, ctx.Err())
	}
	if reply.kind != "" {
		return nil, domain.NewFetchError(id, reply.kind, nil)
	}

	return domain.NewSnapshot(id, reply.title, decimal.RequireFromString(reply.price), time.Now()), nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AlertEvent
}

func (r *recordingSink) Emit(_ context.Context, event *domain.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *recordingSink) Events() []domain.AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AlertEvent(nil), r.events...)
}

type fixture struct {
	repo    *memory.ProductRepo
	fetcher *fakeFetcher
	sink    *recordingSink
	sweeper *usecase.Sweeper
	uc      *usecase.ProductUseCase
}

func newFixture(concurrency int, fetchTimeout time.Duration) *fixture {
	repo := memory.NewProductRepo()
	fetcher := newFakeFetcher()
	sink := &recordingSink{}
	sweeper := usecase.NewSweeper(repo, memory.NopCache{}, fetcher, sink, tr.NopTransactor{}, logger.Nop{}, concurrency, fetchTimeout)
	uc := usecase.NewProductUC(repo, memory.NopCache{}, fetcher, sweeper, logger.Nop{}, fetchTimeout)

	return &fixture{repo: repo, fetcher: fetcher, sink: sink, sweeper: sweeper, uc: uc}
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
