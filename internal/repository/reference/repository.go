package reference

import (
	"context"

	"product-catalog/internal/domain"
)

// Repository manages the category, department and manufacturer tables.
type Repository interface {
	List(ctx context.Context, kind domain.ReferenceKind) ([]domain.Reference, error)
	Get(ctx context.Context, kind domain.ReferenceKind, id int64) (*domain.Reference, error)
	Rename(ctx context.Context, kind domain.ReferenceKind, id int64, name string) (*domain.Reference, error)
	Delete(ctx context.Context, kind domain.ReferenceKind, id int64) error
}
