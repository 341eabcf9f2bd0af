package usecase

import (
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// PRODUCT USECASE

// TrackProductReq — запрос на отслеживание товара: ссылка или готовый идентификатор.
type TrackProductReq struct {
	ProductURL  string
	ProductID   string
	TargetPrice decimal.NullDecimal
}

type TrackProductRes struct {
	Product *domain.Product
	Created bool
}

// REPOSITORIES

type UpsertProductRes struct {
	Product       *domain.Product
	PreviousPrice decimal.NullDecimal
	Created       bool
	NoChanges     bool
}

// SWEEP

// SweepResult — итог проверки одного товара.
type SweepResult struct {
	ProductID    domain.ProductID
	State        domain.SweepState
	ErrorKind    domain.FetchErrorKind
	Error        string
	CurrentPrice decimal.NullDecimal
	Alerted      bool
}

// SweepReport — итог полной проверки цен. Частичный успех считается нормальным исходом.
type SweepReport struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	Updated      int
	Failed       int
	Alerts       int
	Cancelled    bool
	ErrorsByKind map[domain.FetchErrorKind]int
	Results      []SweepResult
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
	Failed     OutboxStatus = "failed"
)

type OutboxEventType string

const PriceAlertEvent OutboxEventType = "price_alert"

type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	ProductID   domain.ProductID
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// AlertPayload — JSON-сообщение о снижении цены, публикуемое в Kafka.
type AlertPayload struct {
	EventID      string          `json:"event_id"`
	ProductID    string          `json:"product_id"`
	Title        string          `json:"title"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	EmittedAt    time.Time       `json:"emitted_at"`
}

// INFRASTRUCTURE

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// MAPPERS

func NewTrackProductRes(product *domain.Product, created bool) *TrackProductRes {
	return &TrackProductRes{Product: product, Created: created}
}

func NewUpsertProductRes(product *domain.Product, previous decimal.NullDecimal, created, noChanges bool) *UpsertProductRes {
	return &UpsertProductRes{
		Product:       product,
		PreviousPrice: previous,
		Created:       created,
		NoChanges:     noChanges,
	}
}

func NewOutboxEvent(eventID string, eventType OutboxEventType, productID domain.ProductID, payload []byte, createdAt time.Time) *OutboxEvent {
	return &OutboxEvent{
		EventID:   eventID,
		EventType: eventType,
		ProductID: productID,
		Payload:   payload,
		Status:    Pending,
		CreatedAt: createdAt,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{Key: key, Payload: payload}
}
