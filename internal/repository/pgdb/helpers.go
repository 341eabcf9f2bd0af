package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// querier — общее подмножество pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn возвращает транзакцию из контекста, если она есть, иначе пул.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, err := tr.TxFromCtx(ctx); err == nil {
		return tx
	}
	return pool
}

func postgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// storeErr переводит ошибки драйвера в ошибки хранилища.
// Ошибки с кодом SQLSTATE — ошибки запроса, остальные — недоступность базы.
func storeErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return e.ErrProductNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}

	return errors.Join(e.ErrStoreUnavailable, err)
}
