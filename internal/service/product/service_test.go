package product

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-catalog/internal/domain"
	"product-catalog/internal/export"
)

// memoryRepo is a lightweight in-memory product repository for tests.
type memoryRepo struct {
	items   map[int64]domain.Product
	patched domain.ProductPatch
	err     error
}

func (r *memoryRepo) List(context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	for _, p := range r.items {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) ListByCategory(_ context.Context, categoryID int64) ([]domain.Product, error) {
	out := []domain.Product{}
	for id := int64(1); id <= int64(len(r.items)); id++ {
		p, ok := r.items[id]
		if ok && p.CategoryID != nil && *p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.patched = patch
	if patch.ProductNumber != nil {
		p.ProductNumber = *patch.ProductNumber
	}
	return &p, nil
}

func (r *memoryRepo) SoftDelete(_ context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type memoryRefs struct {
	refs map[domain.ReferenceKind]map[int64]string
}

func (r *memoryRefs) List(context.Context, domain.ReferenceKind) ([]domain.Reference, error) {
	return nil, nil
}

func (r *memoryRefs) Get(_ context.Context, kind domain.ReferenceKind, id int64) (*domain.Reference, error) {
	name, ok := r.refs[kind][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Reference{ID: id, Name: name}, nil
}

func (r *memoryRefs) Rename(context.Context, domain.ReferenceKind, int64, string) (*domain.Reference, error) {
	return nil, nil
}

func (r *memoryRefs) Delete(context.Context, domain.ReferenceKind, int64) error {
	return nil
}

func newService(t *testing.T) (*Service, *memoryRepo, string) {
	t.Helper()
	toys := int64(1)
	repo := &memoryRepo{items: map[int64]domain.Product{
		1: {ID: 1, ProductNumber: "P-1", CategoryID: &toys, UPC: 5, RegularPrice: 10, Description: "Train"},
		2: {ID: 2, ProductNumber: "P-2", CategoryID: &toys, SalePrice: 1.5, Description: "N/I"},
		3: {ID: 3, ProductNumber: "P-3", Description: "Orphan"},
	}}
	refs := &memoryRefs{refs: map[domain.ReferenceKind]map[int64]string{
		domain.KindCategory:     {1: "Toys & Games"},
		domain.KindDepartment:   {1: "Kids"},
		domain.KindManufacturer: {},
	}}
	dir := filepath.Join(t.TempDir(), "csv")
	svc := New(repo, refs, ExportConfig{Dir: dir, URLHost: "http://localhost:8080/"}, nil)
	svc.now = func() time.Time { return time.Date(2025, 2, 3, 4, 5, 0, 0, time.UTC) }
	return svc, repo, dir
}

func ptr[T any](v T) *T { return &v }

func TestService_UpdateValidates(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, UpdateInput{
		ProductNumber:  ptr(" "),
		UPC:            ptr(int64(-1)),
		RegularPrice:   ptr(-2.0),
		ManufacturerID: ptr(int64(9)),
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "product_number")
	assert.Contains(t, verr.Fields, "upc")
	assert.Contains(t, verr.Fields, "regular_price")
	assert.Contains(t, verr.Fields, "manufacturer_id")

	_, err = svc.Update(ctx, 1, UpdateInput{ProductNumber: ptr(strings.Repeat("x", 256))})
	require.ErrorAs(t, err, &verr)

	p, err := svc.Update(ctx, 1, UpdateInput{ProductNumber: ptr(" P-100 "), DepartmentID: ptr(int64(1))})
	require.NoError(t, err)
	assert.Equal(t, "P-100", p.ProductNumber)
	assert.Equal(t, int64(1), *repo.patched.DepartmentID)
	assert.Nil(t, repo.patched.UPC)

	_, err = svc.Update(ctx, 99, UpdateInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_UpdateDuplicateNumber(t *testing.T) {
	svc, repo, _ := newService(t)
	repo.err = domain.ErrAlreadyExists

	_, err := svc.Update(context.Background(), 1, UpdateInput{ProductNumber: ptr("P-2")})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "already taken", verr.Fields["product_number"])
}

func TestService_ExportCSV(t *testing.T) {
	svc, _, dir := newService(t)

	url, err := svc.Export(context.Background(), 1, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/storage/csv/toys_games_2025_02_03-05_05.csv", url)

	f, err := os.Open(filepath.Join(dir, "toys_games_2025_02_03-05_05.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, []string{"P-1", "5", "0", "10.00", "0.00", "Train"}, rows[1])
	assert.Equal(t, []string{"P-2", "0", "0", "0.00", "1.50", "N/I"}, rows[2])
}

func TestService_ExportUnknownCategory(t *testing.T) {
	svc, _, dir := newService(t)
	_, err := svc.Export(context.Background(), 42, export.FormatCSV)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_Delete(t *testing.T) {
	svc, _, _ := newService(t)
	require.NoError(t, svc.Delete(context.Background(), 3))
	assert.ErrorIs(t, svc.Delete(context.Background(), 3), domain.ErrNotFound)
}
