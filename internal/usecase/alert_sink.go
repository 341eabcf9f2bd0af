package usecase

import (
	"context"
	"encoding/json"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
)

// OutboxAlertSink сохраняет события в outbox. Если в ctx есть транзакция,
// событие фиксируется вместе с обновлением цены; публикацией занимается outbox worker.
type OutboxAlertSink struct {
	outboxRepo OutboxRepository
}

func NewOutboxAlertSink(outboxRepo OutboxRepository) *OutboxAlertSink {
	return &OutboxAlertSink{outboxRepo: outboxRepo}
}

func (o *OutboxAlertSink) Emit(ctx context.Context, event *domain.AlertEvent) error {
	eventID := uuid.NewString()

	payload, err := json.Marshal(AlertPayload{
		EventID:      eventID,
		ProductID:    event.ProductID.String(),
		Title:        event.Title,
		CurrentPrice: event.CurrentPrice,
		TargetPrice:  event.TargetPrice,
		EmittedAt:    event.EmittedAt.UTC(),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := o.outboxRepo.Create(ctx, NewOutboxEvent(eventID, PriceAlertEvent, event.ProductID, payload, event.EmittedAt)); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
