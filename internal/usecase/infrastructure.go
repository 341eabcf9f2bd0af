package usecase

import (
	"context"

	"github.com/DRSN-tech/price-tracker/internal/domain"
)

// PriceFetcher получает название и цену товара у внешнего источника.
// Ошибки имеют тип *domain.FetchError.
type PriceFetcher interface {
	Fetch(ctx context.Context, id domain.ProductID) (*domain.Snapshot, error)
}

// AlertSink принимает события о достижении целевой цены.
type AlertSink interface {
	Emit(ctx context.Context, event *domain.AlertEvent) error
}

// Transactor выполняет fn атомарно относительно хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}
