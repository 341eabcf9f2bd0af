package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/shopspring/decimal"
)

// ProductRepo хранит товары в памяти процесса. Все операции атомарны
// относительно друг друга; List возвращает товары в порядке добавления.
type ProductRepo struct {
	mu       sync.RWMutex
	products map[domain.ProductID]*domain.Product
	order    []domain.ProductID
	now      func() time.Time
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{
		products: make(map[domain.ProductID]*domain.Product),
		now:      time.Now,
	}
}

func (r *ProductRepo) Get(_ context.Context, id domain.ProductID) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}

	return clone(p), nil
}

func (r *ProductRepo) List(_ context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, *clone(r.products[id]))
	}

	return res, nil
}

// Upsert создаёт товар или сливает патч в существующий.
func (r *ProductRepo) Upsert(_ context.Context, id domain.ProductID, patch domain.ProductPatch) (*usecase.UpsertProductRes, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	p, ok := r.products[id]
	if !ok {
		if patch.UpdateOnly {
			return nil, e.ErrProductNotFound
		}

		p = domain.NewProduct(id)
		p.CreatedAt = now
		p.Apply(patch)

		r.products[id] = p
		r.order = append(r.order, id)

		return usecase.NewUpsertProductRes(clone(p), decimal.NullDecimal{}, true, false), nil
	}

	previous := p.CurrentPrice
	changed := p.Apply(patch)
	if changed {
		p.UpdatedAt = &now
	}

	return usecase.NewUpsertProductRes(clone(p), previous, false, !changed), nil
}

func (r *ProductRepo) SetTargetPrice(_ context.Context, id domain.ProductID, price decimal.NullDecimal) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}

	if !priceEqual(p.TargetPrice, price) {
		p.TargetPrice = price
		now := r.now()
		p.UpdatedAt = &now
	}

	return clone(p), nil
}

// Delete удаляет товар. Для отсутствующего товара ошибки нет.
func (r *ProductRepo) Delete(_ context.Context, id domain.ProductID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return nil
	}

	delete(r.products, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return nil
}

func clone(p *domain.Product) *domain.Product {
	c := *p
	if p.LastCheckedAt != nil {
		t := *p.LastCheckedAt
		c.LastCheckedAt = &t
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

func priceEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
