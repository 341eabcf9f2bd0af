package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/repository/memory"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/shopspring/decimal"
)

func TestTrackProductFromURL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(1, time.Second)
	f.fetcher.set("B08N5WRWNW", fetchReply{title: "Echo Dot", price: "24.50"})

	res, err := f.uc.TrackProduct(ctx, &usecase.TrackProductReq{
		ProductURL:  "https://www.amazon.com/Echo-Dot/dp/B08N5WRWNW/ref=sr_1_1?keywords=echo",
		TargetPrice: price("19.99"),
	})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if !res.Created || res.Product.ID != "B08N5WRWNW" || res.Product.Title != "Echo Dot" {
		t.Fatalf("unexpected result: %+v", res.Product)
	}

	again, err := f.uc.TrackProduct(ctx, &usecase.TrackProductReq{ProductID: "B08N5WRWNW"})
	if err != nil {
		t.Fatalf("track again: %v", err)
	}
	if again.Created {
		t.Fatalf("second track must not create")
	}
	if !again.Product.TargetPrice.Valid {
		t.Fatalf("target price lost on re-track")
	}

	if len(f.sink.Events()) != 0 {
		t.Fatalf("tracking must not emit alerts")
	}
}

func TestTrackProductErrors(t *testing.T) {
	f := newFixture(1, time.Second)

	tests := []struct {
		name string
		req  *usecase.TrackProductReq
		want error
	}{
		{"no identifier in url", &usecase.TrackProductReq{ProductURL: "https://www.amazon.com/gp/help"}, e.ErrNoIdentifierFound},
		{"invalid id", &usecase.TrackProductReq{ProductID: "b08n5wrwnw"}, e.ErrInvalidProductID},
		{"missing fields", &usecase.TrackProductReq{}, e.ErrMissingFields},
		{"negative target", &usecase.TrackProductReq{ProductID: "B08N5WRWNW", TargetPrice: price("-1")}, e.ErrInvalidPrice},
		{"not found at source", &usecase.TrackProductReq{ProductID: "B000000404"}, e.ErrFetchNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.TrackProduct(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	list, _ := f.uc.ListProducts(context.Background())
	if len(list) != 0 {
		t.Fatalf("failed requests must not change the store: %+v", list)
	}
}

func TestTrackProductSourceUnavailable(t *testing.T) {
	f := newFixture(1, time.Second)
	f.fetcher.set("B08N5WRWNW", fetchReply{kind: domain.FetchUnreachable})

	res, err := f.uc.TrackProduct(context.Background(), &usecase.TrackProductReq{ProductID: "B08N5WRWNW"})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if res.Product.CurrentPrice.Valid || res.Product.Title != "" {
		t.Fatalf("expected product without price, got %+v", res.Product)
	}
}

func TestSetTargetPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(1, time.Second)
	f.fetcher.set("B08N5WRWNW", fetchReply{title: "Echo Dot", price: "24.50"})
	_, _ = f.uc.TrackProduct(ctx, &usecase.TrackProductReq{ProductID: "B08N5WRWNW"})

	p, err := f.uc.SetTargetPrice(ctx, "B08N5WRWNW", price("20.00"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !p.TargetPrice.Decimal.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("unexpected target: %s", p.TargetPrice.Decimal)
	}
	if !p.CurrentPrice.Decimal.Equal(decimal.RequireFromString("24.50")) {
		t.Fatalf("current price changed: %s", p.CurrentPrice.Decimal)
	}

	p, err = f.uc.SetTargetPrice(ctx, "B08N5WRWNW", decimal.NullDecimal{})
	if err != nil || p.TargetPrice.Valid {
		t.Fatalf("clear target: %v %+v", err, p)
	}

	if _, err := f.uc.SetTargetPrice(ctx, "B000000001", price("1")); !errors.Is(err, e.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := f.uc.SetTargetPrice(ctx, "B08N5WRWNW", price("-0.01")); !errors.Is(err, e.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestUntrackAndLastSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(1, time.Second)

	if _, err := f.uc.LastSweep(ctx); !errors.Is(err, e.ErrNoSweepYet) {
		t.Fatalf("expected ErrNoSweepYet, got %v", err)
	}

	f.fetcher.set("B08N5WRWNW", fetchReply{title: "Echo Dot", price: "24.50"})
	_, _ = f.uc.TrackProduct(ctx, &usecase.TrackProductReq{ProductID: "B08N5WRWNW"})

	if err := f.uc.UntrackProduct(ctx, "B08N5WRWNW"); err != nil {
		t.Fatalf("untrack: %v", err)
	}
	if err := f.uc.UntrackProduct(ctx, "B08N5WRWNW"); err != nil {
		t.Fatalf("untrack twice: %v", err)
	}
	if _, err := f.uc.GetProduct(ctx, "B08N5WRWNW"); !errors.Is(err, e.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	report, err := f.uc.CheckPrices(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	last, err := f.uc.LastSweep(ctx)
	if err != nil || last != report {
		t.Fatalf("LastSweep: %v", err)
	}
}

type mapCache struct {
	mu       sync.Mutex
	products map[domain.ProductID]domain.Product
	deletes  int
	onSet    func(product *domain.Product)
}

func newMapCache() *mapCache {
	return &mapCache{products: make(map[domain.ProductID]domain.Product)}
}

func (c *mapCache) GetProduct(_ context.Context, id domain.ProductID) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *mapCache) SetProduct(_ context.Context, product *domain.Product) error {
	c.mu.Lock()
	c.products[product.ID] = *product
	onSet := c.onSet
	c.mu.Unlock()

	if onSet != nil {
		onSet(product)
	}
	return nil
}

func (c *mapCache) DeleteProducts(_ context.Context, ids []domain.ProductID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.products, id)
	}
	c.deletes++
	return nil
}

func (c *mapCache) state() (cached bool, deletes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, cached = c.products["B08N5WRWNW"]
	return cached, c.deletes
}

func TestGetProductFillsCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepo()
	cache := newMapCache()
	uc := usecase.NewProductUC(repo, cache, newFakeFetcher(), nil, logger.Nop{}, time.Second)

	_, _ = repo.Upsert(ctx, "B08N5WRWNW", domain.ProductPatch{TargetPrice: price("19.99")})
	if _, err := uc.GetProduct(ctx, "B08N5WRWNW"); err != nil {
		t.Fatalf("get: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if cached, _ := cache.state(); cached {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("product was not cached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGetProductDropsStaleCacheFill(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepo()
	cache := newMapCache()
	uc := usecase.NewProductUC(repo, cache, newFakeFetcher(), nil, logger.Nop{}, time.Second)

	_, _ = repo.Upsert(ctx, "B08N5WRWNW", domain.ProductPatch{TargetPrice: price("19.99")})

	// запись цели успевает пройти между чтением товара и заполнением кэша
	cache.onSet = func(product *domain.Product) {
		_, _ = repo.SetTargetPrice(ctx, product.ID, price("15.00"))
	}

	got, err := uc.GetProduct(ctx, "B08N5WRWNW")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TargetPrice.Decimal.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected product: %+v", got.TargetPrice)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		cached, deletes := cache.state()
		if !cached && deletes > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale product left in cache")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cached, err := uc.GetProduct(ctx, "B08N5WRWNW")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !cached.TargetPrice.Decimal.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("stale target served: %+v", cached.TargetPrice)
	}
}
