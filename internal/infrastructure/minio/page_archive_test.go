package minio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/pkg/jitter"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
)

type fakePageRepo struct {
	mu       sync.Mutex
	failures int
	pages    []*domain.Page
	attempts int
}

func (f *fakePageRepo) Upload(_ context.Context, page *domain.Page) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return "", errors.New("minio: service unavailable")
	}
	f.pages = append(f.pages, page)
	return page.ObjectKey, nil
}

func TestArchiveRetriesUpload(t *testing.T) {
	repo := &fakePageRepo{failures: 2}
	archive := NewPageArchive(repo, logger.Nop{}, context.Background(), time.Second)
	archive.backoff = jitter.Backoff{Base: time.Millisecond, Max: time.Millisecond}

	body := []byte("<html>captcha</html>")
	archive.Archive("B08N5WRWNW", body)
	body[0] = 'X'

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := archive.WaitForUploads(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	if repo.attempts != 3 || len(repo.pages) != 1 {
		t.Fatalf("expected 3 attempts and 1 page, got %d and %d", repo.attempts, len(repo.pages))
	}
	page := repo.pages[0]
	if !strings.HasPrefix(page.ObjectKey, "B08N5WRWNW/") || string(page.Body) != "<html>captcha</html>" {
		t.Fatalf("unexpected page: key=%s body=%s", page.ObjectKey, page.Body)
	}
}

func TestArchiveGivesUp(t *testing.T) {
	repo := &fakePageRepo{failures: 10}
	archive := NewPageArchive(repo, logger.Nop{}, context.Background(), time.Second)
	archive.backoff = jitter.Backoff{Base: time.Millisecond, Max: time.Millisecond}

	archive.Archive("B08N5WRWNW", []byte("x"))
	archive.Archive("B08N5WRWNW", nil)

	if err := archive.WaitForUploads(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if repo.attempts != uploadAttempts || len(repo.pages) != 0 {
		t.Fatalf("expected %d attempts and no pages, got %d and %d", uploadAttempts, repo.attempts, len(repo.pages))
	}
}
