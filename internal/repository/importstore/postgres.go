// Package importstore persists import chunks to Postgres. Each chunk runs in
// its own transaction; reference rows and products are written in bulk.
package importstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"product-catalog/internal/domain"
	"product-catalog/internal/importer"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) importer.Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresStore{pool: pool, logger: logger}
}

func (s *postgresStore) InTx(ctx context.Context, fn func(tx importer.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("commit chunk tx", zap.Error(err))
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) SelectReferenceIDs(ctx context.Context, kind domain.ReferenceKind, names []string) (map[string]int64, error) {
	table, err := kind.Table()
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, name FROM %s WHERE name = ANY($1)`, table)
	rows, err := t.tx.Query(ctx, q, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64, len(names))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertReferences skips names another transaction committed in the
// meantime. A unique violation can still surface when the competing insert
// is not yet visible; it is reported as domain.ErrAlreadyExists.
func (t *postgresTx) InsertReferences(ctx context.Context, kind domain.ReferenceKind, names []string, now time.Time) error {
	table, err := kind.Table()
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`
INSERT INTO %s (name, created_at, updated_at)
SELECT n, $2, $2 FROM unnest($1::text[]) AS n
ON CONFLICT (name) DO NOTHING
`, table)
	if _, err := t.tx.Exec(ctx, q, names, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpsertProducts inserts new products and only refreshes updated_at on
// existing ones.
func (t *postgresTx) UpsertProducts(ctx context.Context, rows []domain.ProductRow, now time.Time) error {
	const q = `
INSERT INTO products (product_number, category_id, department_id, manufacturer_id, upc, sku, regular_price, sale_price, description, created_at, updated_at)
SELECT p.product_number, p.category_id, p.department_id, p.manufacturer_id, p.upc, p.sku, p.regular_price, p.sale_price, p.description, $10, $10
FROM unnest($1::text[], $2::bigint[], $3::bigint[], $4::bigint[], $5::bigint[], $6::bigint[], $7::float8[], $8::float8[], $9::text[])
    AS p(product_number, category_id, department_id, manufacturer_id, upc, sku, regular_price, sale_price, description)
ON CONFLICT (product_number) DO UPDATE
SET updated_at = EXCLUDED.updated_at
`
	n := len(rows)
	var (
		numbers       = make([]string, n)
		categories    = make([]int64, n)
		departments   = make([]int64, n)
		manufacturers = make([]int64, n)
		upcs          = make([]int64, n)
		skus          = make([]int64, n)
		regular       = make([]float64, n)
		sale          = make([]float64, n)
		descriptions  = make([]string, n)
	)
	for i, r := range rows {
		numbers[i] = r.ProductNumber
		categories[i] = r.CategoryID
		departments[i] = r.DepartmentID
		manufacturers[i] = r.ManufacturerID
		upcs[i] = r.UPC
		skus[i] = r.SKU
		regular[i] = r.RegularPrice
		sale[i] = r.SalePrice
		descriptions[i] = r.Description
	}
	_, err := t.tx.Exec(ctx, q, numbers, categories, departments, manufacturers, upcs, skus, regular, sale, descriptions, now)
	return err
}
