package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"product-catalog/internal/domain"
)

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

func (r *postgresRepo) List(ctx context.Context, kind domain.ReferenceKind) ([]domain.Reference, error) {
	table, err := kind.Table()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
SELECT id, name, created_at, updated_at
FROM %s
ORDER BY name ASC
`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Reference{}
	for rows.Next() {
		var ref domain.Reference
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) Get(ctx context.Context, kind domain.ReferenceKind, id int64) (*domain.Reference, error) {
	table, err := kind.Table()
	if err != nil {
		return nil, err
	}
	var ref domain.Reference
	err = r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT id, name, created_at, updated_at FROM %s WHERE id = $1`, table), id).
		Scan(&ref.ID, &ref.Name, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ref, nil
}

func (r *postgresRepo) Rename(ctx context.Context, kind domain.ReferenceKind, id int64, name string) (*domain.Reference, error) {
	table, err := kind.Table()
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
UPDATE %s
SET name = $2, updated_at = now()
WHERE id = $1
RETURNING id, name, created_at, updated_at
`, table)
	var ref domain.Reference
	if err := r.pool.QueryRow(ctx, q, id, name).Scan(&ref.ID, &ref.Name, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("rename reference", zap.String("kind", string(kind)), zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &ref, nil
}

// Delete removes the row; products referencing it keep a NULL reference.
func (r *postgresRepo) Delete(ctx context.Context, kind domain.ReferenceKind, id int64) error {
	table, err := kind.Table()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
