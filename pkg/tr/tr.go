package tr

import (
	"context"

	"github.com/DRSN-tech/price-tracker/pkg/e"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
)

type ctxKey struct{}

// TxFromCtx извлекает объект транзакции (pgx.Tx) из контекста
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	txAny := ctx.Value(ctxKey{})
	tx, ok := txAny.(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}

// WithTx кладёт транзакцию в контекст.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, ctxKey{}, tx)
}

// PgTransactor выполняет функцию внутри транзакции PostgreSQL.
// Репозитории достают транзакцию через TxFromCtx.
type PgTransactor struct {
	db transaction.Transactional
}

func NewPgTransactor(db transaction.Transactional) *PgTransactor {
	return &PgTransactor{db: db}
}

// WithinTx коммитит транзакцию, если fn вернула nil, иначе откатывает её.
func (t *PgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "PgTransactor.WithinTx"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, t.db)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			_ = tx.Rollback(ctx)
		}
	}()

	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		return e.Wrap(op, e.ErrTransactionNotFound)
	}

	if err = fn(WithTx(ctx, pgxTx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// NopTransactor просто вызывает fn. Используется хранилищем в памяти.
type NopTransactor struct{}

func (NopTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
