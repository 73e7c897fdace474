package importstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-catalog/internal/domain"
	"product-catalog/internal/importer"
	"product-catalog/internal/repository/repotest"
)

func TestPostgres_ImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	store := NewPostgres(pool, nil)

	recs := make([]domain.ProductRecord, 0, 3)
	for i := 0; i < 3; i++ {
		recs = append(recs, domain.ProductRecord{
			ProductNumber:    fmt.Sprintf("P-%d", i),
			CategoryName:     "Toys",
			DepartmentName:   importer.DefaultName,
			ManufacturerName: "Acme",
			UPC:              int64(100 + i),
			RegularPrice:     12.34,
			Description:      importer.NoInformation,
		})
	}
	chunk := importer.Chunk{Index: 0, Records: recs}

	require.NoError(t, importer.NewChunkProcessor(store).Process(ctx, chunk))

	var firstUpdated time.Time
	require.NoError(t, pool.QueryRow(ctx, `SELECT updated_at FROM products WHERE product_number = 'P-0'`).Scan(&firstUpdated))

	recs[0].RegularPrice = 99
	require.NoError(t, importer.NewChunkProcessor(store).Process(ctx, chunk))

	var (
		count   int
		price   float64
		created time.Time
		updated time.Time
	)
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&count))
	require.NoError(t, pool.QueryRow(ctx, `SELECT regular_price::float8, created_at, updated_at FROM products WHERE product_number = 'P-0'`).Scan(&price, &created, &updated))
	assert.Equal(t, 3, count)
	assert.Equal(t, 12.34, price)
	assert.True(t, updated.After(firstUpdated), "updated_at should move forward")
	assert.True(t, created.Before(updated))

	var cats int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM categories WHERE name = 'Toys'`).Scan(&cats))
	assert.Equal(t, 1, cats)
}

func TestPostgres_FailedChunkRollsBack(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)
	store := NewPostgres(pool, nil)

	err := store.InTx(ctx, func(tx importer.Tx) error {
		if _, err := importer.Resolve(ctx, tx, domain.KindCategory, []string{"Ghost"}, time.Now()); err != nil {
			return err
		}
		// rejected by the upc check and the category foreign key
		return tx.UpsertProducts(ctx, []domain.ProductRow{{ProductNumber: "X", UPC: -1}}, time.Now())
	})
	require.Error(t, err)

	var cats int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM categories`).Scan(&cats))
	assert.Zero(t, cats)
}

func TestPostgres_ConcurrentChunksShareReference(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)

	recs := func(yield func(domain.ProductRecord) bool) {
		for i := 0; i < 8; i++ {
			rec := domain.ProductRecord{
				ProductNumber:    fmt.Sprintf("C-%d", i),
				CategoryName:     "Shared",
				DepartmentName:   importer.DefaultName,
				ManufacturerName: importer.DefaultName,
				Description:      importer.NoInformation,
			}
			if !yield(rec) {
				return
			}
		}
	}
	runner := importer.NewRunner(importer.NewChunkProcessor(NewPostgres(pool, nil)), importer.Options{Workers: 4})
	b := runner.Run(ctx, importer.BatchName, importer.Chunks(recs, 1), nil)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	snap, err := b.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, importer.StatusCompleted, snap.Status)

	var cats, distinctIDs int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM categories WHERE name = 'Shared'`).Scan(&cats))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(DISTINCT category_id) FROM products`).Scan(&distinctIDs))
	assert.Equal(t, 1, cats)
	assert.Equal(t, 1, distinctIDs)
}

func TestPostgres_ConcurrentChunksOverlapInOppositeOrder(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(t)

	// every chunk carries both names and both product numbers, alternating
	// the order in which they appear
	recs := func(yield func(domain.ProductRecord) bool) {
		for i := 0; i < 40; i++ {
			names := []string{"Toys", "Books"}
			numbers := []string{"O-1", "O-2"}
			if (i/2)%2 == 1 {
				names[0], names[1] = names[1], names[0]
				numbers[0], numbers[1] = numbers[1], numbers[0]
			}
			rec := domain.ProductRecord{
				ProductNumber:    numbers[i%2],
				CategoryName:     names[i%2],
				DepartmentName:   names[i%2],
				ManufacturerName: names[i%2],
				Description:      importer.NoInformation,
			}
			if !yield(rec) {
				return
			}
		}
	}
	runner := importer.NewRunner(importer.NewChunkProcessor(NewPostgres(pool, nil)), importer.Options{Workers: 4})
	b := runner.Run(ctx, importer.BatchName, importer.Chunks(recs, 2), nil)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	snap, err := b.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, importer.StatusCompleted, snap.Status, "failures: %v", snap.Failures)
	assert.Equal(t, 20, snap.Succeeded)

	var cats, products int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM categories`).Scan(&cats))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&products))
	assert.Equal(t, 2, cats)
	assert.Equal(t, 2, products)
}
