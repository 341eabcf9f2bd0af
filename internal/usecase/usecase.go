package usecase

import (
	"context"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductUC interface {
	TrackProduct(ctx context.Context, req *TrackProductReq) (*TrackProductRes, error)
	GetProduct(ctx context.Context, id domain.ProductID) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SetTargetPrice(ctx context.Context, id domain.ProductID, price decimal.NullDecimal) (*domain.Product, error)
	UntrackProduct(ctx context.Context, id domain.ProductID) error
	CheckPrices(ctx context.Context) (*SweepReport, error)
	LastSweep(ctx context.Context) (*SweepReport, error)
}
