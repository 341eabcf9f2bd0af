package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/price-tracker/internal/cfg"
	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/repository/redis/converter"
	"github.com/DRSN-tech/price-tracker/pkg/clients"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/jimlawless/whereami"
	goredis "github.com/redis/go-redis/v9"
)

type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetProduct возвращает закэшированный товар или (nil, nil) при промахе.
// Повреждённые записи удаляются и считаются промахом.
func (r *CacheRepo) GetProduct(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	key := r.productKey(id)

	data, err := r.client.Client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil // cache miss
	}
	if err != nil {
		r.logger.Warnf("Redis GET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := r.unmarshalProductFromCache(data)
	if err == nil && model.ID != id.String() {
		err = fmt.Errorf("cache ID mismatch: key_id: %s, model_id: %s", id, model.ID)
	}

	var product *domain.Product
	if err == nil {
		product, err = r.conv.ToEntity(model)
	}

	if err != nil {
		r.logger.Warnf("Dropping broken cache entry %s: %v", key, e.Wrap(whereami.WhereAmI(), err))
		if err := r.client.Client.Del(context.Background(), key).Err(); err != nil {
			r.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, nil // cache miss
	}

	return product, nil
}

// SetProduct кэширует товар с заданным TTL.
func (r *CacheRepo) SetProduct(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(r.conv.ToRedisModel(product))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := r.client.Client.Set(ctx, r.productKey(product.ID), data, r.cfg.ProductTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// DeleteProducts удаляет товары из кэша по ID
func (r *CacheRepo) DeleteProducts(ctx context.Context, ids []domain.ProductID) error {
	if len(ids) == 0 {
		return nil
	}

	if err := r.client.Client.Del(ctx, r.buildProductCacheKeys(ids)...).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// unmarshalProductFromCache десериализует JSON из кэша в модель товара
func (r *CacheRepo) unmarshalProductFromCache(data []byte) (*converter.ProductRedisModel, error) {
	var model converter.ProductRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, err
	}

	return &model, nil
}

// buildProductCacheKeys формирует Redis-ключи из ID товаров
func (r *CacheRepo) buildProductCacheKeys(ids []domain.ProductID) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.productKey(id)
	}

	return keys
}

// productKey возвращает Redis-ключ для одного товара
func (r *CacheRepo) productKey(id domain.ProductID) string {
	return fmt.Sprintf("product:%s", id)
}
