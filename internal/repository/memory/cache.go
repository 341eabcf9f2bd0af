package memory

import (
	"context"

	"github.com/DRSN-tech/price-tracker/internal/domain"
)

// NopCache ничего не хранит, любое чтение даёт промах.
type NopCache struct{}

func (NopCache) GetProduct(context.Context, domain.ProductID) (*domain.Product, error) {
	return nil, nil
}

func (NopCache) SetProduct(context.Context, *domain.Product) error {
	return nil
}

func (NopCache) DeleteProducts(context.Context, []domain.ProductID) error {
	return nil
}
