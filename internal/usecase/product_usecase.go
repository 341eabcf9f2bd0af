package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/shopspring/decimal"
)

// ProductUseCase реализует сценарии управления отслеживаемыми товарами.
type ProductUseCase struct {
	productRepo  ProductRepository
	cacheRepo    CacheRepository
	fetcher      PriceFetcher
	sweeper      *Sweeper
	logger       logger.Logger
	fetchTimeout time.Duration
}

func NewProductUC(
	productRepo ProductRepository,
	cacheRepo CacheRepository,
	fetcher PriceFetcher,
	sweeper *Sweeper,
	logger logger.Logger,
	fetchTimeout time.Duration,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo:  productRepo,
		cacheRepo:    cacheRepo,
		fetcher:      fetcher,
		sweeper:      sweeper,
		logger:       logger,
		fetchTimeout: fetchTimeout,
	}
}

// TrackProduct начинает отслеживание товара по ссылке или идентификатору.
// Сразу пытается получить название и цену; если источник недоступен или
// страница не разобрана, товар сохраняется без цены и обновится при следующей проверке.
// Повторный вызов для того же товара не создаёт дубликат.
func (p *ProductUseCase) TrackProduct(ctx context.Context, req *TrackProductReq) (*TrackProductRes, error) {
	const op = "ProductUseCase.TrackProduct"

	id, err := resolveProductID(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := validateTargetPrice(req.TargetPrice); err != nil {
		return nil, e.Wrap(op, err)
	}

	patch := domain.ProductPatch{TargetPrice: req.TargetPrice}

	snapshot, err := p.initialFetch(ctx, id)
	switch {
	case err == nil:
		snapPatch := domain.NewSnapshotPatch(snapshot)
		patch.Title, patch.CurrentPrice, patch.CheckedAt = snapPatch.Title, snapPatch.CurrentPrice, snapPatch.CheckedAt
	case errors.Is(err, e.ErrFetchNotFound):
		return nil, e.Wrap(op, err)
	case ctx.Err() != nil:
		return nil, e.Wrap(op, ctx.Err())
	default:
		p.logger.Warnf("%s: initial fetch for %s failed, tracking without price: %v", op, id, err)
	}

	res, err := p.productRepo.Upsert(ctx, id, patch)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	p.invalidate(ctx, id)

	return NewTrackProductRes(res.Product, res.Created), nil
}

// GetProduct возвращает товар, сначала пытаясь взять его из кэша.
func (p *ProductUseCase) GetProduct(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	const op = "ProductUseCase.GetProduct"

	cached, err := p.cacheRepo.GetProduct(ctx, id)
	if err != nil {
		p.logger.Warnf("%s: cache read failed: %v", op, err)
	}
	if cached != nil {
		return cached, nil
	}

	product, err := p.productRepo.Get(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Фоновое добавление товара в кэш
	go p.fillCache(op, product)

	return product, nil
}

// fillCache кладёт товар в кэш и перечитывает его из хранилища. Если за это
// время товар изменился или удалён, запись из кэша убирается.
func (p *ProductUseCase) fillCache(op string, product *domain.Product) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := p.cacheRepo.SetProduct(ctx, product); err != nil {
		p.logger.Warnf("%s: failed to cache product in background: %v", op, err)
		return
	}

	current, err := p.productRepo.Get(ctx, product.ID)
	if err == nil && sameVersion(current, product) {
		return
	}
	if err != nil && !errors.Is(err, e.ErrProductNotFound) {
		p.logger.Warnf("%s: failed to recheck cached product %s: %v", op, product.ID, err)
	}

	p.invalidate(ctx, product.ID)
}

func sameVersion(a, b *domain.Product) bool {
	return timeEqual(a.UpdatedAt, b.UpdatedAt) && timeEqual(a.LastCheckedAt, b.LastCheckedAt)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// ListProducts возвращает все товары в порядке добавления.
func (p *ProductUseCase) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "ProductUseCase.ListProducts"

	products, err := p.productRepo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return products, nil
}

// SetTargetPrice задаёт или сбрасывает (Valid=false) целевую цену.
func (p *ProductUseCase) SetTargetPrice(ctx context.Context, id domain.ProductID, price decimal.NullDecimal) (*domain.Product, error) {
	const op = "ProductUseCase.SetTargetPrice"

	if err := validateTargetPrice(price); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := p.productRepo.SetTargetPrice(ctx, id, price)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	p.invalidate(ctx, id)

	return product, nil
}

// UntrackProduct удаляет товар. Удаление отсутствующего товара не считается ошибкой.
func (p *ProductUseCase) UntrackProduct(ctx context.Context, id domain.ProductID) error {
	const op = "ProductUseCase.UntrackProduct"

	if err := p.productRepo.Delete(ctx, id); err != nil {
		return e.Wrap(op, err)
	}

	p.invalidate(ctx, id)

	return nil
}

// CheckPrices запускает полную проверку цен.
func (p *ProductUseCase) CheckPrices(ctx context.Context) (*SweepReport, error) {
	return p.sweeper.Sweep(ctx)
}

// LastSweep возвращает отчёт последней проверки.
func (p *ProductUseCase) LastSweep(_ context.Context) (*SweepReport, error) {
	report := p.sweeper.Last()
	if report == nil {
		return nil, e.ErrNoSweepYet
	}

	return report, nil
}

func (p *ProductUseCase) initialFetch(ctx context.Context, id domain.ProductID) (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	return p.fetcher.Fetch(ctx, id)
}

// invalidate удаляет товар из кэша после записи.
func (p *ProductUseCase) invalidate(ctx context.Context, id domain.ProductID) {
	if err := p.cacheRepo.DeleteProducts(ctx, []domain.ProductID{id}); err != nil {
		p.logger.Warnf("Failed to delete product %s from cache: %v", id, err)
	}
}

// resolveProductID извлекает идентификатор из ссылки или проверяет переданный.
func resolveProductID(req *TrackProductReq) (domain.ProductID, error) {
	productURL := strings.TrimSpace(req.ProductURL)
	productID := strings.TrimSpace(req.ProductID)

	switch {
	case productURL != "":
		return domain.ExtractProductID(productURL)
	case productID != "":
		return domain.ParseProductID(productID)
	default:
		return "", e.ErrMissingFields
	}
}

func validateTargetPrice(price decimal.NullDecimal) error {
	if price.Valid && price.Decimal.IsNegative() {
		return e.ErrInvalidPrice
	}
	return nil
}
