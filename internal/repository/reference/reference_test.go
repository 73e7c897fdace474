package reference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-catalog/internal/domain"
	"product-catalog/internal/repository/repotest"
)

func TestPostgres_ListRenameDelete(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	_, err := pool.Exec(ctx, `INSERT INTO categories (name) VALUES ('Toys'), ('Games')`)
	require.NoError(t, err)

	repo := NewPostgres(pool, nil)
	list, err := repo.List(ctx, domain.KindCategory)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Games", list[0].Name)

	renamed, err := repo.Rename(ctx, domain.KindCategory, list[1].ID, "Puzzles")
	require.NoError(t, err)
	assert.Equal(t, "Puzzles", renamed.Name)

	_, err = repo.Rename(ctx, domain.KindCategory, list[1].ID, "Games")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	require.NoError(t, repo.Delete(ctx, domain.KindCategory, list[0].ID))
	_, err = repo.Get(ctx, domain.KindCategory, list[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, domain.KindCategory, list[0].ID), domain.ErrNotFound)
}

func TestPostgres_DeleteKeepsProducts(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)

	var makerID int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO manufacturers (name) VALUES ('Acme') RETURNING id`).Scan(&makerID))
	_, err := pool.Exec(ctx, `INSERT INTO products (product_number, manufacturer_id) VALUES ('P-1', $1)`, makerID)
	require.NoError(t, err)

	require.NoError(t, NewPostgres(pool, nil).Delete(ctx, domain.KindManufacturer, makerID))

	var manufacturerID *int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT manufacturer_id FROM products WHERE product_number = 'P-1'`).Scan(&manufacturerID))
	assert.Nil(t, manufacturerID)
}

func TestPostgres_UnknownKind(t *testing.T) {
	pool := repotest.Pool(t)
	_, err := NewPostgres(pool, nil).List(context.Background(), domain.ReferenceKind("colours"))
	assert.Error(t, err)
}
