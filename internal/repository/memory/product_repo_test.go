package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/shopspring/decimal"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()
	id := domain.ProductID("B08N5WRWNW")
	title := "Echo Dot"

	patch := domain.ProductPatch{Title: &title, CurrentPrice: price("24.50")}

	first, err := repo.Upsert(ctx, id, patch)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.Created {
		t.Fatalf("expected first upsert to create")
	}

	second, err := repo.Upsert(ctx, id, patch)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Created {
		t.Fatalf("second upsert must not create")
	}
	if !second.NoChanges {
		t.Fatalf("expected NoChanges on identical upsert")
	}

	list, _ := repo.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected 1 product, got %d", len(list))
	}
}

func TestUpsertMergeKeepsTargetPrice(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()
	id := domain.ProductID("B08N5WRWNW")

	if _, err := repo.Upsert(ctx, id, domain.ProductPatch{TargetPrice: price("20.00")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := repo.Upsert(ctx, id, domain.ProductPatch{CurrentPrice: price("24.50")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !res.Product.TargetPrice.Valid || !res.Product.TargetPrice.Decimal.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("target price lost: %+v", res.Product.TargetPrice)
	}
	if res.PreviousPrice.Valid {
		t.Fatalf("previous price should be absent, got %s", res.PreviousPrice.Decimal)
	}
	if res.Product.UpdatedAt == nil {
		t.Fatalf("expected UpdatedAt to be set on change")
	}
}

func TestUpsertUpdateOnly(t *testing.T) {
	repo := NewProductRepo()

	_, err := repo.Upsert(context.Background(), "B000000001", domain.ProductPatch{CurrentPrice: price("1.00"), UpdateOnly: true})
	if !errors.Is(err, e.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()

	if err := repo.Delete(ctx, "B000000001"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}

	if _, err := repo.Upsert(ctx, "B000000001", domain.ProductPatch{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.Delete(ctx, "B000000001"); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}

	if _, err := repo.Get(ctx, "B000000001"); !errors.Is(err, e.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestSetTargetPriceAbsent(t *testing.T) {
	repo := NewProductRepo()

	_, err := repo.SetTargetPrice(context.Background(), "B000000001", price("5"))
	if !errors.Is(err, e.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()
	ids := []domain.ProductID{"C000000003", "A000000001", "B000000002"}

	for _, id := range ids {
		if _, err := repo.Upsert(ctx, id, domain.ProductPatch{}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	if err := repo.Delete(ctx, "A000000001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Upsert(ctx, "A000000001", domain.ProductPatch{}); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	list, _ := repo.List(ctx)
	want := []domain.ProductID{"C000000003", "B000000002", "A000000001"}
	for i := range want {
		if list[i].ID != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, list[i].ID, want[i])
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()
	checked := time.Now()

	if _, err := repo.Upsert(ctx, "B000000001", domain.ProductPatch{CheckedAt: &checked}); err != nil {
		t.Fatalf("create: %v", err)
	}

	p, _ := repo.Get(ctx, "B000000001")
	p.Title = "mutated"
	*p.LastCheckedAt = time.Time{}

	again, _ := repo.Get(ctx, "B000000001")
	if again.Title != "" || again.LastCheckedAt.IsZero() {
		t.Fatalf("stored product was mutated through returned copy")
	}
}

func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.ProductID(fmt.Sprintf("B%09d", i))
			_, _ = repo.Upsert(ctx, id, domain.ProductPatch{CurrentPrice: price("1.00")})
			_, _ = repo.SetTargetPrice(ctx, id, price("2.00"))
		}(i)
	}
	wg.Wait()

	list, _ := repo.List(ctx)
	if len(list) != 50 {
		t.Fatalf("expected 50 products, got %d", len(list))
	}
	for _, p := range list {
		if !p.CurrentPrice.Valid || !p.TargetPrice.Valid {
			t.Fatalf("product %s lost a field: %+v", p.ID, p)
		}
	}
}

func TestConcurrentPriceAndTargetUpdatesSameProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()
	id := domain.ProductID("B08N5WRWNW")

	if _, err := repo.Upsert(ctx, id, domain.ProductPatch{}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= rounds; i++ {
			now := time.Now()
			patch := domain.ProductPatch{
				CurrentPrice: price(fmt.Sprintf("%d.00", i)),
				CheckedAt:    &now,
				UpdateOnly:   true,
			}
			if _, err := repo.Upsert(ctx, id, patch); err != nil {
				t.Errorf("upsert %d: %v", i, err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 1; i <= rounds; i++ {
			if _, err := repo.SetTargetPrice(ctx, id, price(fmt.Sprintf("%d.50", i))); err != nil {
				t.Errorf("set target %d: %v", i, err)
				return
			}
		}
	}()
	wg.Wait()

	p, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.CurrentPrice.Valid || !p.CurrentPrice.Decimal.Equal(decimal.RequireFromString(fmt.Sprintf("%d.00", rounds))) {
		t.Fatalf("price update lost: %+v", p.CurrentPrice)
	}
	if !p.TargetPrice.Valid || !p.TargetPrice.Decimal.Equal(decimal.RequireFromString(fmt.Sprintf("%d.50", rounds))) {
		t.Fatalf("target update lost: %+v", p.TargetPrice)
	}
}
