package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrNoIdentifierFound):
		return http.StatusBadRequest, e.ErrNoIdentifierFound.Error()
	case errors.Is(err, e.ErrInvalidProductID):
		return http.StatusBadRequest, e.ErrInvalidProductID.Error()
	case errors.Is(err, e.ErrMissingFields):
		return http.StatusBadRequest, e.ErrMissingFields.Error()
	case errors.Is(err, e.ErrInvalidPrice):
		return http.StatusBadRequest, e.ErrInvalidPrice.Error()
	case errors.Is(err, e.ErrPricePrecision):
		return http.StatusBadRequest, e.ErrPricePrecision.Error()
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, e.ErrProductNotFound.Error()
	case errors.Is(err, e.ErrFetchNotFound):
		return http.StatusNotFound, e.ErrFetchNotFound.Error()
	case errors.Is(err, e.ErrNoSweepYet):
		return http.StatusNotFound, e.ErrNoSweepYet.Error()
	case errors.Is(err, e.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, e.ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса не больше maxBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return e.Wrap(err.Error(), e.ErrStatusBadRequest)
	}

	return nil
}

// targetPriceSupplied отличает отсутствующее поле от явного null.
func targetPriceSupplied(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) > 0
}

// parseTargetPrice принимает число, строку с числом, null или "".
// null и "" означают отсутствие целевой цены. Отрицательные значения
// и больше двух знаков после точки отклоняются.
func parseTargetPrice(raw json.RawMessage) (decimal.NullDecimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}, nil
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.NullDecimal{}, e.ErrInvalidPrice
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.NullDecimal{}, nil
		}
	} else {
		s = string(raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, e.ErrInvalidPrice
	}

	if d.IsNegative() {
		return decimal.NullDecimal{}, e.ErrInvalidPrice
	}

	// Check decimal places
	if !d.Equal(d.Round(2)) {
		return decimal.NullDecimal{}, e.ErrPricePrecision
	}

	return decimal.NewNullDecimal(d), nil
}

// productIDParam достаёт и проверяет {id} из пути.
func productIDParam(r *http.Request) (domain.ProductID, error) {
	return domain.ParseProductID(chi.URLParam(r, "id"))
}
