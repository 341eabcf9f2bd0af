package domain

import (
	"fmt"
	"time"
)

// Page — сырая HTML-страница товара, сохраняемая для разбора ошибок парсинга.
type Page struct {
	ProductID   ProductID
	ObjectKey   string
	Body        []byte
	ContentType string
	FetchedAt   time.Time
}

// NewPage строит страницу с ключом вида <id>/<unix-nano>.html.
func NewPage(id ProductID, body []byte, fetchedAt time.Time) *Page {
	return &Page{
		ProductID:   id,
		ObjectKey:   fmt.Sprintf("%s/%d.html", id, fetchedAt.UnixNano()),
		Body:        body,
		ContentType: "text/html; charset=utf-8",
		FetchedAt:   fetchedAt,
	}
}
