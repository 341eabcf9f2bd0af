package http

import (
	"net/http"

	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
)

const maxRequestSize = 1 << 20

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

// listProducts обрабатывает GET /api/products.
//
//	@Summary		Список отслеживаемых товаров
//	@Tags			products
//	@Produce		json
//	@Success		200	{array}		ProductResponse
//	@Failure		503	{object}	ErrorResponse	"Хранилище недоступно"
//	@Router			/products [get]
func (p *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := p.productUsecase.ListProducts(r.Context())
	if err != nil {
		p.writeError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductListResponse(products))
}

// getProduct обрабатывает GET /api/products/{id}.
//
//	@Summary		Товар по идентификатору
//	@Tags			products
//	@Produce		json
//	@Param			id	path		string	true	"ASIN"
//	@Success		200	{object}	ProductResponse
//	@Failure		400	{object}	ErrorResponse	"Некорректный идентификатор"
//	@Failure		404	{object}	ErrorResponse	"Товар не отслеживается"
//	@Router			/products/{id} [get]
func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		p.writeError(w, err)
		return
	}

	product, err := p.productUsecase.GetProduct(r.Context(), id)
	if err != nil {
		p.writeError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

// trackProduct обрабатывает POST /api/products.
// Принимает ссылку (product_url или url) либо product_id и необязательную target_price.
// 201, если товар добавлен, 200, если он уже отслеживался.
//
//	@Summary		Начать отслеживание товара
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			request	body		TrackProductRequest	true	"Ссылка или идентификатор"
//	@Success		201		{object}	ProductResponse		"Товар добавлен"
//	@Success		200		{object}	ProductResponse		"Товар уже отслеживался"
//	@Failure		400		{object}	ErrorResponse		"Ошибка валидации"
//	@Failure		404		{object}	ErrorResponse		"Товар не найден у источника"
//	@Router			/products [post]
func (p *ProductHandler) trackProduct(w http.ResponseWriter, r *http.Request) {
	var req TrackProductRequest
	if err := decodeJSON(w, r, maxRequestSize, &req); err != nil {
		p.writeError(w, err)
		return
	}

	targetPrice, err := parseTargetPrice(req.TargetPrice)
	if err != nil {
		p.writeError(w, err)
		return
	}

	productURL := req.ProductURL
	if productURL == "" {
		productURL = req.URL
	}

	res, err := p.productUsecase.TrackProduct(r.Context(), &usecase.TrackProductReq{
		ProductURL:  productURL,
		ProductID:   req.ProductID,
		TargetPrice: targetPrice,
	})
	if err != nil {
		p.writeError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
		p.logger.Infof("Started tracking product %s", res.Product.ID)
	}

	WriteSuccess(w, status, NewProductResponse(res.Product))
}

// setTargetPrice обрабатывает PUT /api/products/{id}.
// Поле target_price обязательно: null или "" сбрасывают цель.
//
//	@Summary		Задать или сбросить целевую цену
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"ASIN"
//	@Param			request	body		SetTargetPriceRequest	true	"Целевая цена"
//	@Success		200		{object}	ProductResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		404		{object}	ErrorResponse	"Товар не отслеживается"
//	@Router			/products/{id} [put]
func (p *ProductHandler) setTargetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		p.writeError(w, err)
		return
	}

	var req SetTargetPriceRequest
	if err := decodeJSON(w, r, maxRequestSize, &req); err != nil {
		p.writeError(w, err)
		return
	}

	if !targetPriceSupplied(req.TargetPrice) {
		p.writeError(w, e.Wrap("target_price", e.ErrMissingFields))
		return
	}

	targetPrice, err := parseTargetPrice(req.TargetPrice)
	if err != nil {
		p.writeError(w, err)
		return
	}

	product, err := p.productUsecase.SetTargetPrice(r.Context(), id, targetPrice)
	if err != nil {
		p.writeError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

// untrackProduct обрабатывает DELETE /api/products/{id}. Повторное удаление тоже отвечает 204.
//
//	@Summary		Прекратить отслеживание товара
//	@Tags			products
//	@Param			id	path	string	true	"ASIN"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse	"Некорректный идентификатор"
//	@Router			/products/{id} [delete]
func (p *ProductHandler) untrackProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		p.writeError(w, err)
		return
	}

	if err := p.productUsecase.UntrackProduct(r.Context(), id); err != nil {
		p.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkPrices обрабатывает POST /api/check-prices.
// Частичный отчёт при отмене проверки всё равно возвращается.
//
//	@Summary		Проверить цены всех товаров
//	@Tags			check-prices
//	@Produce		json
//	@Success		200	{object}	SweepReportResponse
//	@Failure		503	{object}	ErrorResponse	"Хранилище недоступно"
//	@Router			/check-prices [post]
func (p *ProductHandler) checkPrices(w http.ResponseWriter, r *http.Request) {
	report, err := p.productUsecase.CheckPrices(r.Context())
	if report == nil {
		p.writeError(w, err)
		return
	}
	if err != nil {
		p.logger.Warnf("Price check interrupted: %v", err)
	}

	WriteSuccess(w, http.StatusOK, NewSweepReportResponse(report))
}

// lastSweep обрабатывает GET /api/check-prices/last.
//
//	@Summary		Отчёт последней проверки цен
//	@Tags			check-prices
//	@Produce		json
//	@Success		200	{object}	SweepReportResponse
//	@Failure		404	{object}	ErrorResponse	"Проверок ещё не было"
//	@Router			/check-prices/last [get]
func (p *ProductHandler) lastSweep(w http.ResponseWriter, r *http.Request) {
	report, err := p.productUsecase.LastSweep(r.Context())
	if err != nil {
		p.writeError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewSweepReportResponse(report))
}

// writeError логирует ошибку (4xx на уровне Warn, остальное на уровне Error) и пишет ответ.
func (p *ProductHandler) writeError(w http.ResponseWriter, err error) {
	code, _ := ToHTTPResponse(err)
	if code >= http.StatusInternalServerError {
		p.logger.Errorf(err, "%d request failed", code)
	} else {
		p.logger.Warnf("%d %s", code, err.Error())
	}

	WriteError(w, err)
}
