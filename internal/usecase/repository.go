package usecase

import (
	"context"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// ProductRepository — хранилище отслеживаемых товаров.
// Запись по одному id сериализуется хранилищем; Upsert и SetTargetPrice
// меняют разные поля и не затирают друг друга.
type ProductRepository interface {
	Get(ctx context.Context, id domain.ProductID) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Upsert(ctx context.Context, id domain.ProductID, patch domain.ProductPatch) (*UpsertProductRes, error)
	SetTargetPrice(ctx context.Context, id domain.ProductID, price decimal.NullDecimal) (*domain.Product, error)
	Delete(ctx context.Context, id domain.ProductID) error
}

// CacheRepository — кэш чтения товаров. Промах: (nil, nil).
type CacheRepository interface {
	GetProduct(ctx context.Context, id domain.ProductID) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	DeleteProducts(ctx context.Context, ids []domain.ProductID) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
}

// PageRepository — объектное хранилище страниц, которые не удалось разобрать.
type PageRepository interface {
	Upload(ctx context.Context, page *domain.Page) (string, error)
}
