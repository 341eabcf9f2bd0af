package converter

import "time"

// ProductRedisModel — JSON-представление товара в кэше.
// Цены хранятся строками, отсутствующая цена — null.
type ProductRedisModel struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	CurrentPrice  *string    `json:"current_price"`
	TargetPrice   *string    `json:"target_price"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}
