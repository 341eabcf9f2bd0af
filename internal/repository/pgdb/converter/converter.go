package converter

import (
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
)

// ProductConverter преобразует Product между domain и моделью PostgreSQL.
type ProductConverter struct{}

func (ProductConverter) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}

	return &ProductModel{
		ID:            entity.ID.String(),
		Title:         entity.Title,
		CurrentPrice:  entity.CurrentPrice,
		TargetPrice:   entity.TargetPrice,
		LastCheckedAt: ConvertPointerTime(entity.LastCheckedAt),
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     ConvertPointerTime(entity.UpdatedAt),
	}
}

func (ProductConverter) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}

	return &domain.Product{
		ID:            domain.ProductID(model.ID),
		Title:         model.Title,
		CurrentPrice:  model.CurrentPrice,
		TargetPrice:   model.TargetPrice,
		LastCheckedAt: ConvertPointerTime(model.LastCheckedAt),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     ConvertPointerTime(model.UpdatedAt),
	}
}

// OutboxEventConverter преобразует OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter struct{}

func (OutboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	if entity == nil {
		return nil
	}

	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		ProductID:   entity.ProductID.String(),
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: ConvertPointerTime(entity.ProcessedAt),
	}
}

func (OutboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	if model == nil {
		return nil
	}

	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		ProductID:   domain.ProductID(model.ProductID),
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: ConvertPointerTime(model.ProcessedAt),
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	if models == nil {
		return nil
	}

	res := make([]*usecase.OutboxEvent, len(models))
	for i, model := range models {
		res[i] = c.ToEntity(model)
	}
	return res
}

// ConvertPointerTime копирует значение, чтобы модели не делили указатель.
func ConvertPointerTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
