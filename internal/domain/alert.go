package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertEvent сигнализирует, что цена товара достигла целевой или опустилась ниже.
type AlertEvent struct {
	ProductID    ProductID
	Title        string
	CurrentPrice decimal.Decimal
	TargetPrice  decimal.Decimal
	EmittedAt    time.Time
}

func NewAlertEvent(p *Product, emittedAt time.Time) *AlertEvent {
	return &AlertEvent{
		ProductID:    p.ID,
		Title:        p.Title,
		CurrentPrice: p.CurrentPrice.Decimal,
		TargetPrice:  p.TargetPrice.Decimal,
		EmittedAt:    emittedAt,
	}
}

// ShouldAlert решает, нужно ли уведомление после обновления цены.
// Граница включительная: current <= target.
func ShouldAlert(updated *Product) bool {
	return updated.AtOrBelowTarget()
}
