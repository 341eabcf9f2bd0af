package http

import (
	"encoding/json"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/shopspring/decimal"
)

type TrackProductRequest struct {
	ProductURL  string          `json:"product_url"`
	URL         string          `json:"url"`
	ProductID   string          `json:"product_id"`
	TargetPrice json.RawMessage `json:"target_price" swaggertype:"number"`
}

type SetTargetPriceRequest struct {
	TargetPrice json.RawMessage `json:"target_price" swaggertype:"number"`
}

// ProductResponse: товар в ответах API. Цены передаются числами или null.
type ProductResponse struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	CurrentPrice  *json.Number `json:"current_price" swaggertype:"number"`
	TargetPrice   *json.Number `json:"target_price" swaggertype:"number"`
	LastCheckedAt *time.Time   `json:"last_checked_at"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     *time.Time   `json:"updated_at"`
}

type SweepResultResponse struct {
	ID           string       `json:"id"`
	State        string       `json:"state"`
	ErrorKind    string       `json:"error_kind,omitempty"`
	Error        string       `json:"error,omitempty"`
	CurrentPrice *json.Number `json:"current_price" swaggertype:"number"`
	Alerted      bool         `json:"alerted"`
}

type SweepReportResponse struct {
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at"`
	Total        int                   `json:"total"`
	Updated      int                   `json:"updated"`
	Failed       int                   `json:"failed"`
	Alerts       int                   `json:"alerts"`
	Cancelled    bool                  `json:"cancelled"`
	ErrorsByKind map[string]int        `json:"errors_by_kind"`
	Results      []SweepResultResponse `json:"results"`
}

func NewProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID.String(),
		Title:         p.Title,
		CurrentPrice:  priceNumber(p.CurrentPrice),
		TargetPrice:   priceNumber(p.TargetPrice),
		LastCheckedAt: p.LastCheckedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func NewProductListResponse(products []domain.Product) []ProductResponse {
	res := make([]ProductResponse, len(products))
	for i := range products {
		res[i] = NewProductResponse(&products[i])
	}
	return res
}

func NewSweepReportResponse(r *usecase.SweepReport) SweepReportResponse {
	byKind := make(map[string]int, len(r.ErrorsByKind))
	for kind, n := range r.ErrorsByKind {
		byKind[string(kind)] = n
	}

	results := make([]SweepResultResponse, len(r.Results))
	for i, res := range r.Results {
		results[i] = SweepResultResponse{
			ID:           res.ProductID.String(),
			State:        string(res.State),
			ErrorKind:    string(res.ErrorKind),
			Error:        res.Error,
			CurrentPrice: priceNumber(res.CurrentPrice),
			Alerted:      res.Alerted,
		}
	}

	return SweepReportResponse{
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Total:        r.Total,
		Updated:      r.Updated,
		Failed:       r.Failed,
		Alerts:       r.Alerts,
		Cancelled:    r.Cancelled,
		ErrorsByKind: byKind,
		Results:      results,
	}
}

func priceNumber(p decimal.NullDecimal) *json.Number {
	if !p.Valid {
		return nil
	}
	n := json.Number(p.Decimal.StringFixed(2))
	return &n
}
