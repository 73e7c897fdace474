package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"product-catalog/internal/domain"
)

const productColumns = `id, product_number, category_id, department_id, manufacturer_id, upc, sku, regular_price::float8, sale_price::float8, description, created_at, updated_at, deleted_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE deleted_at IS NULL
ORDER BY id ASC
`
	return r.query(ctx, q)
}

func (r *postgresRepo) ListByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE category_id = $1 AND deleted_at IS NULL
ORDER BY id ASC
`
	result, err := r.query(ctx, q, categoryID)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("product repo: list by category", zap.Int64("category_id", categoryID), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1 AND deleted_at IS NULL
`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("product repo: get", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

// Update applies the non-nil fields of patch.
func (r *postgresRepo) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	const q = `
UPDATE products
SET product_number = COALESCE($2::text, product_number),
    category_id = COALESCE($3::bigint, category_id),
    department_id = COALESCE($4::bigint, department_id),
    manufacturer_id = COALESCE($5::bigint, manufacturer_id),
    upc = COALESCE($6::bigint, upc),
    sku = COALESCE($7::bigint, sku),
    regular_price = COALESCE($8::float8::numeric, regular_price),
    sale_price = COALESCE($9::float8::numeric, sale_price),
    description = COALESCE($10::text, description),
    updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + productColumns
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id,
		patch.ProductNumber, patch.CategoryID, patch.DepartmentID, patch.ManufacturerID,
		patch.UPC, patch.SKU, patch.RegularPrice, patch.SalePrice, patch.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, domain.ErrAlreadyExists
			case "23503":
				return nil, domain.ErrInvalidReference
			}
		}
		r.logger.Error("product repo: update", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("product repo: query", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.ProductNumber, &p.CategoryID, &p.DepartmentID, &p.ManufacturerID,
		&p.UPC, &p.SKU, &p.RegularPrice, &p.SalePrice, &p.Description,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
