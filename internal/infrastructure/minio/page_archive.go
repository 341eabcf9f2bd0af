package minio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/jitter"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
)

const uploadAttempts = 3

// PageArchive в фоне сохраняет страницы, которые не удалось разобрать.
// Загрузка не задерживает проверку цен; ошибки только логируются.
type PageArchive struct {
	pageRepo      usecase.PageRepository
	logger        logger.Logger
	shutdownCtx   context.Context
	uploadTimeout time.Duration
	backoff       jitter.Backoff
	now           func() time.Time
	wg            sync.WaitGroup
}

func NewPageArchive(pageRepo usecase.PageRepository, logger logger.Logger, shutdownCtx context.Context, uploadTimeout time.Duration) *PageArchive {
	return &PageArchive{
		pageRepo:      pageRepo,
		logger:        logger,
		shutdownCtx:   shutdownCtx,
		uploadTimeout: uploadTimeout,
		backoff:       jitter.Backoff{Base: time.Second, Max: 4 * time.Second, Factor: jitter.DefaultJitter},
		now:           time.Now,
	}
}

// Archive ставит страницу в очередь на загрузку и сразу возвращается.
func (p *PageArchive) Archive(id domain.ProductID, body []byte) {
	if len(body) == 0 {
		return
	}

	page := domain.NewPage(id, append([]byte(nil), body...), p.now())

	p.wg.Add(1)
	go p.upload(page)
}

// upload загружает страницу с повторами и экспоненциальной задержкой.
func (p *PageArchive) upload(page *domain.Page) {
	defer p.wg.Done()
	const op = "PageArchive.upload"

	ctx, cancel := context.WithTimeout(p.shutdownCtx, p.uploadTimeout)
	defer cancel()

	for attempt := 0; attempt < uploadAttempts; attempt++ {
		key, err := p.pageRepo.Upload(ctx, page)
		if err == nil {
			p.logger.Infof("%s: unparsed page for %s archived as %s", op, page.ProductID, key)
			return
		}
		p.logger.Warnf("%s: attempt %d for %s failed: %v", op, attempt+1, page.ProductID, err)

		if attempt == uploadAttempts-1 {
			break
		}

		select {
		case <-time.After(p.backoff.Next(attempt)):
		case <-ctx.Done():
			p.logger.Warnf("%s: upload interrupted, product=%s", op, page.ProductID)
			return
		}
	}
}

// WaitForUploads ожидает завершения фоновых загрузок с учётом таймаута завершения приложения.
func (p *PageArchive) WaitForUploads(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio upload timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
