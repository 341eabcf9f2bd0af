package converter

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel представляет запись таблицы products в PostgreSQL.
type ProductModel struct {
	ID            string              `db:"id"`
	Title         string              `db:"title"`
	CurrentPrice  decimal.NullDecimal `db:"current_price"`
	TargetPrice   decimal.NullDecimal `db:"target_price"`
	LastCheckedAt *time.Time          `db:"last_checked_at"`
	CreatedAt     time.Time           `db:"created_at"`
	UpdatedAt     *time.Time          `db:"updated_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	ProductID   string     `db:"product_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
