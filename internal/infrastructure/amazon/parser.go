package amazon

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

var (
	errNoTitle       = errors.New("product title not found")
	errNoPrice       = errors.New("product price not found")
	errNegativePrice = errors.New("negative price")
)

// Селекторы цены в порядке приоритета. Первый непустой и разбираемый побеждает.
var priceSelectors = []string{
	"#corePrice_feature_div .a-offscreen",
	"#corePriceDisplay_desktop_feature_div .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"#priceblock_saleprice",
	"#price_inside_buybox",
	"#newBuyBoxPrice",
	".a-price .a-offscreen",
}

var (
	priceNumberRe = regexp.MustCompile(`(-?)\s*[$€£]?\s*(\d[\d,]*(?:\.\d+)?)`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// parsedPage — то, что удалось достать со страницы товара.
type parsedPage struct {
	Title string
	Price decimal.Decimal
}

// parsePage извлекает название и цену из HTML страницы товара.
func parsePage(doc *goquery.Document) (*parsedPage, error) {
	title := parseTitle(doc)
	if title == "" {
		return nil, errNoTitle
	}

	price, err := parsePrice(doc)
	if err != nil {
		return nil, err
	}

	return &parsedPage{Title: title, Price: price}, nil
}

func parseTitle(doc *goquery.Document) string {
	if title := cleanText(doc.Find("#productTitle").First().Text()); title != "" {
		return title
	}

	if title, ok := doc.Find(`meta[name="title"]`).First().Attr("content"); ok {
		if title = cleanText(title); title != "" {
			return title
		}
	}

	return cleanText(doc.Find("title").First().Text())
}

func parsePrice(doc *goquery.Document) (decimal.Decimal, error) {
	for _, selector := range priceSelectors {
		var (
			price decimal.Decimal
			found bool
			err   error
		)

		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			price, err = parsePriceText(s.Text())
			found = err == nil
			return !found && !errors.Is(err, errNegativePrice)
		})

		if errors.Is(err, errNegativePrice) {
			return decimal.Decimal{}, err
		}
		if found {
			return price, nil
		}
	}

	return parseJSONLDPrice(doc)
}

// parseJSONLDPrice ищет "price" в блоках application/ld+json (offers товара).
func parseJSONLDPrice(doc *goquery.Document) (decimal.Decimal, error) {
	var (
		price decimal.Decimal
		err   = errNoPrice
	)

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if json.Unmarshal([]byte(s.Text()), &data) != nil {
			return true
		}

		raw, ok := findJSONPrice(data)
		if !ok {
			return true
		}

		price, err = parsePriceText(raw)
		return err != nil && !errors.Is(err, errNegativePrice)
	})

	return price, err
}

func findJSONPrice(v any) (string, bool) {
	switch t := v.(type) {
	case map[string]any:
		if p, ok := t["price"]; ok {
			switch pv := p.(type) {
			case string:
				return pv, true
			case float64:
				return decimal.NewFromFloat(pv).String(), true
			}
		}
		for _, key := range []string{"offers", "@graph"} {
			if nested, ok := t[key]; ok {
				if s, ok := findJSONPrice(nested); ok {
					return s, true
				}
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := findJSONPrice(item); ok {
				return s, true
			}
		}
	}
	return "", false
}

// parsePriceText превращает текст вида "$1,234.56" в decimal.
func parsePriceText(text string) (decimal.Decimal, error) {
	m := priceNumberRe.FindStringSubmatch(cleanText(text))
	if m == nil {
		return decimal.Decimal{}, errNoPrice
	}
	if m[1] == "-" {
		return decimal.Decimal{}, errNegativePrice
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", ""))
	if err != nil {
		return decimal.Decimal{}, errNoPrice
	}

	return price.Round(2), nil
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
