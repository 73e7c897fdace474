package product

import (
	"context"

	"product-catalog/internal/domain"
)

// Repository reads and edits products. Soft-deleted products are invisible
// to every method.
type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	SoftDelete(ctx context.Context, id int64) error
}
