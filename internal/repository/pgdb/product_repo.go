package pgdb

import (
	"context"

	"github.com/DRSN-tech/price-tracker/internal/domain"
	"github.com/DRSN-tech/price-tracker/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

const productColumns = `id, title, current_price, target_price, last_checked_at, created_at, updated_at`

// ProductRepo реализует репозиторий товаров поверх PostgreSQL.
// Если в ctx есть транзакция (tr.WithTx), запросы выполняются в ней.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) Get(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	model, err := scanProduct(conn(ctx, p.pool).QueryRow(ctx, query, id.String()))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), storeErr(err))
	}

	return p.conv.ToEntity(model), nil
}

// List возвращает товары в порядке добавления.
func (p *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY seq`

	rows, err := conn(ctx, p.pool).Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), storeErr(err))
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		model, err := scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), storeErr(err))
		}
		result = append(result, *p.conv.ToEntity(model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), storeErr(err))
	}

	return result, nil
}

// Upsert идемпотентно создаёт товар или сливает в него патч.
// NULL-параметры не меняют колонки; updated_at обновляется только
// при изменении названия или цен.
func (p *ProductRepo) Upsert(ctx context.Context, id domain.ProductID, patch domain.ProductPatch) (*usecase.UpsertProductRes, error) {
	query := upsertQuery(patch.UpdateOnly)

	var (
		model     converter.ProductModel
		created   bool
		previous  decimal.NullDecimal
		noChanges *bool
	)
	err := conn(ctx, p.pool).QueryRow(ctx, query,
		id.String(), patch.Title, patch.CurrentPrice, patch.TargetPrice, patch.CheckedAt,
	).Scan(
		&model.ID, &model.Title, &model.CurrentPrice, &model.TargetPrice,
		&model.LastCheckedAt, &model.CreatedAt, &model.UpdatedAt,
		&created, &previous, &noChanges,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), storeErr(err))
	}

	return usecase.NewUpsertProductRes(p.conv.ToEntity(&model), previous, created, noChanges != nil && *noChanges), nil
}

// upsertQuery собирает запрос Upsert. prev хранит строку до записи,
// no_changes не учитывает last_checked_at. В режиме updateOnly
// отсутствующая строка не создаётся и запрос не возвращает строк.
func upsertQuery(updateOnly bool) string {
	// $1 id, $2 title, $3 current_price, $4 target_price, $5 last_checked_at
	insert := `
		INSERT INTO products (id, title, current_price, target_price, last_checked_at)
		VALUES ($1, COALESCE($2::text, ''), $3::numeric, $4::numeric, $5::timestamptz)
		ON CONFLICT (id)
		DO UPDATE SET` + mergeSet + `
		RETURNING ` + productColumns + `, (xmax = 0) AS created`

	update := `
		UPDATE products SET` + mergeSet + `
		WHERE id = $1
		RETURNING ` + productColumns + `, false AS created`

	write := insert
	if updateOnly {
		write = update
	}

	return `
		WITH prev AS (
			SELECT title, current_price, target_price
			FROM products
			WHERE id = $1
		), upsert AS (` + write + `
		)
		SELECT
			u.id, u.title, u.current_price, u.target_price, u.last_checked_at, u.created_at, u.updated_at,
			u.created,
			prev.current_price AS previous_price,
			(NOT u.created
				AND u.title = prev.title
				AND u.current_price IS NOT DISTINCT FROM prev.current_price
				AND u.target_price IS NOT DISTINCT FROM prev.target_price) AS no_changes
		FROM upsert u
		LEFT JOIN prev ON true;
	`
}

// mergeSet — слияние патча с существующей строкой.
const mergeSet = `
			title = COALESCE($2::text, products.title),
			current_price = COALESCE($3::numeric, products.current_price),
			target_price = COALESCE($4::numeric, products.target_price),
			last_checked_at = COALESCE($5::timestamptz, products.last_checked_at),
			updated_at = CASE
				WHEN products.title IS DISTINCT FROM COALESCE($2::text, products.title)
					OR products.current_price IS DISTINCT FROM COALESCE($3::numeric, products.current_price)
					OR products.target_price IS DISTINCT FROM COALESCE($4::numeric, products.target_price)
				THEN NOW()
				ELSE products.updated_at
			END`

// SetTargetPrice задаёт целевую цену; NullDecimal{Valid: false} сбрасывает её.
func (p *ProductRepo) SetTargetPrice(ctx context.Context, id domain.ProductID, price decimal.NullDecimal) (*domain.Product, error) {
	query := `
		UPDATE products
		SET target_price = $2::numeric,
			updated_at = CASE
				WHEN target_price IS DISTINCT FROM $2::numeric THEN NOW()
				ELSE updated_at
			END
		WHERE id = $1
		RETURNING ` + productColumns

	model, err := scanProduct(conn(ctx, p.pool).QueryRow(ctx, query, id.String(), price))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), storeErr(err))
	}

	return p.conv.ToEntity(model), nil
}

// Delete удаляет товар. Отсутствие строки — не ошибка.
func (p *ProductRepo) Delete(ctx context.Context, id domain.ProductID) error {
	if _, err := conn(ctx, p.pool).Exec(ctx, `DELETE FROM products WHERE id = $1`, id.String()); err != nil {
		return e.Wrap(whereami.WhereAmI(), storeErr(err))
	}

	return nil
}

func scanProduct(row pgx.Row) (*converter.ProductModel, error) {
	var model converter.ProductModel
	if err := row.Scan(
		&model.ID, &model.Title, &model.CurrentPrice, &model.TargetPrice,
		&model.LastCheckedAt, &model.CreatedAt, &model.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &model, nil
}
