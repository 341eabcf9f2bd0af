package amazon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/cfg"
	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/jitter"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/PuerkitoBio/goquery"
)

// PageArchiver сохраняет страницы, которые не удалось разобрать.
type PageArchiver interface {
	Archive(id domain.ProductID, body []byte)
}

// Fetcher получает название и цену товара со страницы {BaseURL}/dp/{id}.
type Fetcher struct {
	client   *http.Client
	cfg      *cfg.FetcherCfg
	backoff  jitter.Backoff
	archiver PageArchiver
	logger   logger.Logger
	now      func() time.Time
}

// NewFetcher создаёт Fetcher. archiver может быть nil.
func NewFetcher(cfg *cfg.FetcherCfg, archiver PageArchiver, logger logger.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		backoff: jitter.Backoff{
			Base:   cfg.RetryBase,
			Max:    cfg.RetryMax,
			Factor: jitter.DefaultJitter,
		},
		archiver: archiver,
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch возвращает снимок товара или *domain.FetchError.
// unreachable повторяется до cfg.MaxRetries попыток; not_found и
// parse_failure возвращаются сразу.
func (f *Fetcher) Fetch(ctx context.Context, id domain.ProductID) (*domain.Snapshot, error) {
	const op = "Fetcher.Fetch"

	attempts := max(f.cfg.MaxRetries, 1)

	var lastErr *domain.FetchError
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := f.backoff.Next(attempt - 1)
			f.logger.Debugf("%s: retrying %s in %v (attempt %d/%d): %v", op, id, delay, attempt+1, attempts, lastErr)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, domain.NewFetchError(id, domain.FetchUnreachable, ctx.Err())
			}
		}

		snapshot, err := f.fetchOnce(ctx, id)
		if err == nil {
			return snapshot, nil
		}

		lastErr = err
		if err.Kind != domain.FetchUnreachable || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, id domain.ProductID) (*domain.Snapshot, *domain.FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.productURL(id), nil)
	if err != nil {
		return nil, domain.NewFetchError(id, domain.FetchUnreachable, err)
	}

	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(id, domain.FetchUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, domain.NewFetchError(id, domain.FetchNotFound, fmt.Errorf("status code: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, domain.NewFetchError(id, domain.FetchUnreachable, fmt.Errorf("status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, domain.NewFetchError(id, domain.FetchUnreachable, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, f.parseFailure(id, body, err)
	}

	page, err := parsePage(doc)
	if err != nil {
		return nil, f.parseFailure(id, body, err)
	}

	return domain.NewSnapshot(id, page.Title, page.Price, f.now()), nil
}

func (f *Fetcher) parseFailure(id domain.ProductID, body []byte, err error) *domain.FetchError {
	if f.archiver != nil {
		f.archiver.Archive(id, body)
	}
	return domain.NewFetchError(id, domain.FetchParseFailure, err)
}

func (f *Fetcher) productURL(id domain.ProductID) string {
	return fmt.Sprintf("%s/dp/%s", f.cfg.BaseURL, id)
}
