package domain

import (
	"net/url"
	"regexp"

	"github.com/DRSN-tech/price-tracker/pkg/e"
)

// ProductID — канонический идентификатор товара у источника (ASIN):
// ровно 10 символов A-Z и 0-9.
type ProductID string

const productIDLen = 10

var (
	productIDRe = regexp.MustCompile(`^[A-Z0-9]{10}$`)

	// Сегмент пути из 10 символов, перед которым стоит '/',
	// а после — конец сегмента, query, fragment или конец строки.
	productIDSegmentRe = regexp.MustCompile(`/([A-Z0-9]{10})(?:[/?#]|$)`)
)

func (id ProductID) String() string {
	return string(id)
}

// ParseProductID проверяет "голый" идентификатор.
func ParseProductID(s string) (ProductID, error) {
	if !productIDRe.MatchString(s) {
		return "", e.ErrInvalidProductID
	}
	return ProductID(s), nil
}

// ExtractProductID находит идентификатор товара в произвольной ссылке.
// Возвращает первый подходящий сегмент пути либо e.ErrNoIdentifierFound.
func ExtractProductID(raw string) (ProductID, error) {
	for _, candidate := range extractionInputs(raw) {
		if m := productIDSegmentRe.FindStringSubmatch(candidate); len(m) == 2 {
			return ProductID(m[1]), nil
		}
	}

	return "", e.ErrNoIdentifierFound
}

// extractionInputs возвращает строку для поиска: путь разобранного URL
// либо исходную строку, если это не URL.
func extractionInputs(raw string) []string {
	if len(raw) <= productIDLen {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Opaque != "" {
		return []string{raw}
	}

	return []string{u.EscapedPath()}
}
