package reference

import (
	"context"
	"strings"
	"unicode/utf8"

	"product-catalog/internal/domain"
	productrepo "product-catalog/internal/repository/product"
	refrepo "product-catalog/internal/repository/reference"
)

// MaxNameLength bounds category, department and manufacturer names.
const MaxNameLength = 255

// Service manages categories, departments and manufacturers.
type Service struct {
	repo     refrepo.Repository
	products productrepo.Repository
}

func New(repo refrepo.Repository, products productrepo.Repository) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) List(ctx context.Context, kind domain.ReferenceKind) ([]domain.Reference, error) {
	return s.repo.List(ctx, kind)
}

func (s *Service) Get(ctx context.Context, kind domain.ReferenceKind, id int64) (*domain.Reference, error) {
	return s.repo.Get(ctx, kind, id)
}

// Rename validates name and applies it. Names must stay unique per kind.
func (s *Service) Rename(ctx context.Context, kind domain.ReferenceKind, id int64, name string) (*domain.Reference, error) {
	name = strings.TrimSpace(name)
	verr := &domain.ValidationError{}
	switch {
	case name == "":
		verr.Add("name", "required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		verr.Add("name", "must be at most 255 characters")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return s.repo.Rename(ctx, kind, id, name)
}

func (s *Service) Delete(ctx context.Context, kind domain.ReferenceKind, id int64) error {
	return s.repo.Delete(ctx, kind, id)
}

// CategoryProducts lists the products of a category, failing with
// domain.ErrNotFound when the category does not exist.
func (s *Service) CategoryProducts(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	if _, err := s.repo.Get(ctx, domain.KindCategory, categoryID); err != nil {
		return nil, err
	}
	return s.products.ListByCategory(ctx, categoryID)
}
