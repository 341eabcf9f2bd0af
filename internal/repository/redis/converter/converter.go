package converter

import (
	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// ProductConverter преобразует Product между domain и моделью кэша.
type ProductConverter struct{}

func (ProductConverter) ToRedisModel(entity *domain.Product) *ProductRedisModel {
	return &ProductRedisModel{
		ID:            entity.ID.String(),
		Title:         entity.Title,
		CurrentPrice:  priceToString(entity.CurrentPrice),
		TargetPrice:   priceToString(entity.TargetPrice),
		LastCheckedAt: entity.LastCheckedAt,
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
	}
}

func (ProductConverter) ToEntity(model *ProductRedisModel) (*domain.Product, error) {
	current, err := priceFromString(model.CurrentPrice)
	if err != nil {
		return nil, err
	}

	target, err := priceFromString(model.TargetPrice)
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		ID:            domain.ProductID(model.ID),
		Title:         model.Title,
		CurrentPrice:  current,
		TargetPrice:   target,
		LastCheckedAt: model.LastCheckedAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}, nil
}

func priceToString(p decimal.NullDecimal) *string {
	if !p.Valid {
		return nil
	}
	s := p.Decimal.StringFixed(2)
	return &s
}

func priceFromString(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}

	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}

	return decimal.NewNullDecimal(d), nil
}
