package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// Хранилище
	ErrStoreUnavailable = fmt.Errorf("product store unavailable")

	// Получение цены с внешнего источника
	ErrFetchNotFound     = fmt.Errorf("product not found at source")
	ErrFetchUnreachable  = fmt.Errorf("product source unreachable")
	ErrFetchParseFailure = fmt.Errorf("product page could not be parsed")

	// 400 Bad Request
	ErrStatusBadRequest  = fmt.Errorf("bad request")
	ErrNoIdentifierFound = fmt.Errorf("no product identifier found in url")
	ErrInvalidProductID  = fmt.Errorf("invalid product id")
	ErrMissingFields     = fmt.Errorf("missing required fields")
	ErrInvalidPrice      = fmt.Errorf("invalid price")
	ErrPricePrecision    = fmt.Errorf("price must have at most 2 decimal places")

	// 404 Not Found
	ErrProductNotFound = fmt.Errorf("product not found")
	ErrNoSweepYet      = fmt.Errorf("no price check has run yet")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
