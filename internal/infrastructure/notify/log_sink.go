package notify

import (
	"context"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
)

// LogSink пишет события о снижении цены в лог. Используется без Kafka.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(logger logger.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Emit(_ context.Context, event *domain.AlertEvent) error {
	l.logger.Infof(
		"price alert: product=%s title=%q current=%s target=%s",
		event.ProductID, event.Title, event.CurrentPrice.StringFixed(2), event.TargetPrice.StringFixed(2),
	)
	return nil
}
