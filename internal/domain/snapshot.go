package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/shopspring/decimal"
)

// Snapshot — результат успешного получения данных о товаре у источника.
type Snapshot struct {
	ID        ProductID
	Title     string
	Price     decimal.Decimal
	FetchedAt time.Time
}

// NewSnapshot округляет цену до центов, как её хранит NUMERIC(12,2).
func NewSnapshot(id ProductID, title string, price decimal.Decimal, fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		ID:        id,
		Title:     title,
		Price:     price.Round(2),
		FetchedAt: fetchedAt,
	}
}

// FetchErrorKind — вид ошибки получения цены.
type FetchErrorKind string

const (
	FetchNotFound     FetchErrorKind = "not_found"
	FetchUnreachable  FetchErrorKind = "unreachable"
	FetchParseFailure FetchErrorKind = "parse_failure"
)

// FetchError — ошибка получения цены конкретного товара.
type FetchError struct {
	ProductID ProductID
	Kind      FetchErrorKind
	Err       error
}

func NewFetchError(id ProductID, kind FetchErrorKind, err error) *FetchError {
	return &FetchError{ProductID: id, Kind: kind, Err: err}
}

func (f *FetchError) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("fetch %s: %s", f.ProductID, f.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", f.ProductID, f.Kind, f.Err)
}

func (f *FetchError) Unwrap() error {
	return f.Err
}

// Is позволяет сравнивать ошибку с e.ErrFetch* через errors.Is.
func (f *FetchError) Is(target error) bool {
	switch target {
	case e.ErrFetchNotFound:
		return f.Kind == FetchNotFound
	case e.ErrFetchUnreachable:
		return f.Kind == FetchUnreachable
	case e.ErrFetchParseFailure:
		return f.Kind == FetchParseFailure
	}
	return false
}

// FetchErrorKindOf возвращает вид ошибки получения цены, если он есть.
func FetchErrorKindOf(err error) (FetchErrorKind, bool) {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind, true
	}

	switch {
	case errors.Is(err, e.ErrFetchNotFound):
		return FetchNotFound, true
	case errors.Is(err, e.ErrFetchUnreachable):
		return FetchUnreachable, true
	case errors.Is(err, e.ErrFetchParseFailure):
		return FetchParseFailure, true
	}

	return "", false
}
