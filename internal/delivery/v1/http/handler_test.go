package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/repository/memory"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/DRSN-tech/price-tracker/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type stubFetcher struct {
	mu     sync.Mutex
	prices map[domain.ProductID]string
}

func (s *stubFetcher) Fetch(_ context.Context, id domain.ProductID) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[id]
	if !ok {
		return nil, domain.NewFetchError(id, domain.FetchUnreachable, errors.New("connection refused"))
	}
	return domain.NewSnapshot(id, "Product "+id.String(), decimal.RequireFromString(price), time.Now()), nil
}

type countingSink struct {
	mu    sync.Mutex
	count int
}

func (c *countingSink) Emit(context.Context, *domain.AlertEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

type testAPI struct {
	handler http.Handler
	repo    *memory.ProductRepo
	fetcher *stubFetcher
	sink    *countingSink
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	repo := memory.NewProductRepo()
	fetcher := &stubFetcher{prices: map[domain.ProductID]string{}}
	sink := &countingSink{}
	sweeper := usecase.NewSweeper(repo, memory.NopCache{}, fetcher, sink, tr.NopTransactor{}, logger.Nop{}, 2, time.Second)
	uc := usecase.NewProductUC(repo, memory.NopCache{}, fetcher, sweeper, logger.Nop{}, time.Second)

	mux := chi.NewRouter()
	NewRouter(mux, logger.Nop{}).Init(uc, 10*time.Second)

	return &testAPI{handler: mux, repo: repo, fetcher: fetcher, sink: sink}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestTrackProductFlow(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/products",
		`{"product_url":"https://www.amazon.com/Echo-Dot/dp/B08N5WRWNW/ref=sr_1_1","target_price":"19.99"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	created := decodeBody[map[string]any](t, rec)
	if created["id"] != "B08N5WRWNW" || created["current_price"] != nil {
		t.Fatalf("unexpected product: %v", created)
	}
	if created["target_price"] != 19.99 {
		t.Fatalf("target_price must be a JSON number, got %#v", created["target_price"])
	}

	rec = api.do(t, http.MethodPost, "/api/products", `{"product_id":"B08N5WRWNW"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-track: %d %s", rec.Code, rec.Body.String())
	}

	api.fetcher.prices["B08N5WRWNW"] = "24.50"
	rec = api.do(t, http.MethodPost, "/api/check-prices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("check: %d %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[SweepReportResponse](t, rec)
	if report.Total != 1 || report.Updated != 1 || report.Alerts != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	api.fetcher.prices["B08N5WRWNW"] = "19.99"
	rec = api.do(t, http.MethodPost, "/api/check-prices", "")
	report = decodeBody[SweepReportResponse](t, rec)
	if report.Alerts != 1 || api.sink.count != 1 {
		t.Fatalf("expected one alert, got report=%d sink=%d", report.Alerts, api.sink.count)
	}

	rec = api.do(t, http.MethodGet, "/api/products", "")
	list := decodeBody[[]ProductResponse](t, rec)
	if len(list) != 1 || list[0].CurrentPrice == nil || string(*list[0].CurrentPrice) != "19.99" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = api.do(t, http.MethodGet, "/api/check-prices/last", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("last sweep: %d", rec.Code)
	}
}

func TestTrackProductWithoutIdentifier(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/products", `{"product_url":"https://example.com/no-id-here"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	resp := decodeBody[ErrorResponse](t, rec)
	if resp.Message != e.ErrNoIdentifierFound.Error() {
		t.Fatalf("unexpected message: %s", resp.Message)
	}

	list, _ := api.repo.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("store changed: %+v", list)
	}
}

func TestTrackProductValidation(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"no fields", `{}`, http.StatusBadRequest},
		{"negative target", `{"product_id":"B08N5WRWNW","target_price":-1}`, http.StatusBadRequest},
		{"three decimals", `{"product_id":"B08N5WRWNW","target_price":"1.999"}`, http.StatusBadRequest},
		{"not a number", `{"product_id":"B08N5WRWNW","target_price":"cheap"}`, http.StatusBadRequest},
		{"lowercase id", `{"product_id":"b08n5wrwnw"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/products", tt.body)
			if rec.Code != tt.code {
				t.Fatalf("got %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
		})
	}
}

func TestSetTargetPriceEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/api/products/B08N5WRWNW", `{"target_price":10}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent product, got %d", rec.Code)
	}

	api.do(t, http.MethodPost, "/api/products", `{"product_id":"B08N5WRWNW"}`)

	rec = api.do(t, http.MethodPut, "/api/products/B08N5WRWNW", `{"target_price":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set: %d %s", rec.Code, rec.Body.String())
	}
	p := decodeBody[ProductResponse](t, rec)
	if p.TargetPrice == nil || string(*p.TargetPrice) != "10.00" {
		t.Fatalf("unexpected target: %v", p.TargetPrice)
	}

	for _, body := range []string{`{}`, `{"target":5}`} {
		rec = api.do(t, http.MethodPut, "/api/products/B08N5WRWNW", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
	stored, _ := api.repo.Get(context.Background(), "B08N5WRWNW")
	if !stored.TargetPrice.Valid || !stored.TargetPrice.Decimal.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("target lost on request without target_price: %+v", stored.TargetPrice)
	}

	rec = api.do(t, http.MethodPut, "/api/products/B08N5WRWNW", `{"target_price":null}`)
	p = decodeBody[ProductResponse](t, rec)
	if rec.Code != http.StatusOK || p.TargetPrice != nil {
		t.Fatalf("clear target with null: %d %v", rec.Code, p.TargetPrice)
	}

	api.do(t, http.MethodPut, "/api/products/B08N5WRWNW", `{"target_price":10}`)
	rec = api.do(t, http.MethodPut, "/api/products/B08N5WRWNW", `{"target_price":""}`)
	p = decodeBody[ProductResponse](t, rec)
	if rec.Code != http.StatusOK || p.TargetPrice != nil {
		t.Fatalf("clear target: %d %v", rec.Code, p.TargetPrice)
	}

	rec = api.do(t, http.MethodPut, "/api/products/not-an-id", `{"target_price":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/products", `{"product_id":"B08N5WRWNW"}`)

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodDelete, "/api/products/B08N5WRWNW", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete #%d: %d", i+1, rec.Code)
		}
	}

	rec := api.do(t, http.MethodGet, "/api/products/B08N5WRWNW", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestLastSweepBeforeAnyRun(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/check-prices/last", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestParseTargetPrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		valid   bool
		wantErr error
	}{
		{`19.99`, "19.99", true, nil},
		{`"19.99"`, "19.99", true, nil},
		{`20`, "20", true, nil},
		{`"1.50"`, "1.5", true, nil},
		{`null`, "", false, nil},
		{`""`, "", false, nil},
		{``, "", false, nil},
		{`-0.01`, "", false, e.ErrInvalidPrice},
		{`"abc"`, "", false, e.ErrInvalidPrice},
		{`true`, "", false, e.ErrInvalidPrice},
		{`1.001`, "", false, e.ErrPricePrecision},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseTargetPrice(json.RawMessage(tt.raw))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
			if got.Valid != tt.valid {
				t.Fatalf("got valid=%t, want %t", got.Valid, tt.valid)
			}
			if tt.valid && !got.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("got %s, want %s", got.Decimal, tt.want)
			}
		})
	}
}

func TestSwaggerDoc(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/swagger/doc.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	doc := decodeBody[struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}](t, rec)
	if doc.BasePath != "/api" {
		t.Fatalf("basePath: %q", doc.BasePath)
	}
	for path, method := range map[string]string{
		"/products":          "post",
		"/products/{id}":     "put",
		"/check-prices":      "post",
		"/check-prices/last": "get",
	} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Fatalf("%s %s is not documented", method, path)
		}
	}
}
