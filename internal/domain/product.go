package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает отслеживаемый товар.
// Отсутствующая цена хранится как NullDecimal{Valid: false}, а не как ноль.
type Product struct {
	ID            ProductID
	Title         string // пустая строка, пока товар ни разу не был успешно получен
	CurrentPrice  decimal.NullDecimal
	TargetPrice   decimal.NullDecimal
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// ProductPatch — набор полей для слияния при Upsert.
// Незаданные поля (nil / Valid=false) в хранилище не меняются.
type ProductPatch struct {
	Title        *string
	CurrentPrice decimal.NullDecimal
	TargetPrice  decimal.NullDecimal
	CheckedAt    *time.Time
	UpdateOnly   bool // не создавать товар, если его нет (e.ErrProductNotFound)
}

func NewProduct(id ProductID) *Product {
	return &Product{ID: id}
}

// NewSnapshotPatch строит патч из результата успешного получения цены.
// TargetPrice не трогается.
func NewSnapshotPatch(s *Snapshot) ProductPatch {
	title := s.Title
	checkedAt := s.FetchedAt

	return ProductPatch{
		Title:        &title,
		CurrentPrice: decimal.NewNullDecimal(s.Price),
		CheckedAt:    &checkedAt,
	}
}

// Apply сливает патч в товар и сообщает, изменились ли title или цены.
func (p *Product) Apply(patch ProductPatch) (changed bool) {
	if patch.Title != nil && *patch.Title != p.Title {
		p.Title = *patch.Title
		changed = true
	}

	if patch.CurrentPrice.Valid && !priceEqual(p.CurrentPrice, patch.CurrentPrice) {
		p.CurrentPrice = patch.CurrentPrice
		changed = true
	}

	if patch.TargetPrice.Valid && !priceEqual(p.TargetPrice, patch.TargetPrice) {
		p.TargetPrice = patch.TargetPrice
		changed = true
	}

	if patch.CheckedAt != nil {
		checkedAt := *patch.CheckedAt
		p.LastCheckedAt = &checkedAt
	}

	return changed
}

// AtOrBelowTarget сообщает, что текущая цена известна, цель задана и current <= target.
func (p *Product) AtOrBelowTarget() bool {
	return p.CurrentPrice.Valid && p.TargetPrice.Valid &&
		p.CurrentPrice.Decimal.LessThanOrEqual(p.TargetPrice.Decimal)
}

func priceEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
