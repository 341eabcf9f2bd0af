package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/price-tracker/internal/cfg"
	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// PageRepo хранит HTML-страницы товаров в MinIO.
type PageRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewPageRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *PageRepo {
	return &PageRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает страницу и возвращает ключ объекта.
func (p *PageRepo) Upload(ctx context.Context, page *domain.Page) (string, error) {
	reader := bytes.NewReader(page.Body)

	info, err := p.mc.PutObject(ctx, p.cfg.BucketName, page.ObjectKey, reader, int64(len(page.Body)), minio.PutObjectOptions{
		ContentType: page.ContentType,
		UserMetadata: map[string]string{
			"product-id": page.ProductID.String(),
		},
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}
