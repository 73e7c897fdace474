package product

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"product-catalog/internal/domain"
	"product-catalog/internal/export"
	productrepo "product-catalog/internal/repository/product"
	refrepo "product-catalog/internal/repository/reference"
)

const (
	maxProductNumber = 255
	maxPrice         = 99999999.99
)

// ExportConfig says where generated files go and how they are linked.
type ExportConfig struct {
	Dir     string
	URLHost string
	// URLPath is the route the directory is served under.
	URLPath string
}

type Service struct {
	repo   productrepo.Repository
	refs   refrepo.Repository
	export ExportConfig
	logger *zap.Logger
	now    func() time.Time
}

func New(repo productrepo.Repository, refs refrepo.Repository, cfg ExportConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URLPath == "" {
		cfg.URLPath = "/storage/csv"
	}
	return &Service{repo: repo, refs: refs, export: cfg, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateInput is the body of a partial product update.
type UpdateInput struct {
	ProductNumber  *string  `json:"product_number"`
	CategoryID     *int64   `json:"category_id"`
	DepartmentID   *int64   `json:"department_id"`
	ManufacturerID *int64   `json:"manufacturer_id"`
	UPC            *int64   `json:"upc"`
	SKU            *int64   `json:"sku"`
	RegularPrice   *float64 `json:"regular_price"`
	SalePrice      *float64 `json:"sale_price"`
	Description    *string  `json:"description"`
}

// Update validates in, checks that referenced ids exist and applies the
// patch.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*domain.Product, error) {
	verr := &domain.ValidationError{}
	if in.ProductNumber != nil {
		n := strings.TrimSpace(*in.ProductNumber)
		switch {
		case n == "":
			verr.Add("product_number", "must not be empty")
		case utf8.RuneCountInString(n) > maxProductNumber:
			verr.Add("product_number", "must be at most 255 characters")
		}
		in.ProductNumber = &n
	}
	checkCount(verr, "upc", in.UPC)
	checkCount(verr, "sku", in.SKU)
	checkPrice(verr, "regular_price", in.RegularPrice)
	checkPrice(verr, "sale_price", in.SalePrice)

	refs := []struct {
		field string
		kind  domain.ReferenceKind
		id    *int64
	}{
		{"category_id", domain.KindCategory, in.CategoryID},
		{"department_id", domain.KindDepartment, in.DepartmentID},
		{"manufacturer_id", domain.KindManufacturer, in.ManufacturerID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if _, err := s.refs.Get(ctx, ref.kind, *ref.id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				verr.Add(ref.field, "does not exist")
				continue
			}
			return nil, err
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, domain.ProductPatch{
		ProductNumber:  in.ProductNumber,
		CategoryID:     in.CategoryID,
		DepartmentID:   in.DepartmentID,
		ManufacturerID: in.ManufacturerID,
		UPC:            in.UPC,
		SKU:            in.SKU,
		RegularPrice:   in.RegularPrice,
		SalePrice:      in.SalePrice,
		Description:    in.Description,
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return nil, (&domain.ValidationError{}).Add("product_number", "already taken")
	case errors.Is(err, domain.ErrInvalidReference):
		return nil, (&domain.ValidationError{}).Add("reference", "does not exist")
	}
	return p, err
}

func checkCount(verr *domain.ValidationError, field string, v *int64) {
	if v != nil && *v < 0 {
		verr.Add(field, "must be a non-negative integer")
	}
}

func checkPrice(verr *domain.ValidationError, field string, v *float64) {
	if v == nil {
		return
	}
	if math.IsNaN(*v) || *v < 0 || *v > maxPrice {
		verr.Add(field, "must be between 0 and 99999999.99")
	}
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id)
}

// Export writes the category's products to a new file in the export
// directory and returns its download URL.
func (s *Service) Export(ctx context.Context, categoryID int64, format export.Format) (string, error) {
	category, err := s.refs.Get(ctx, domain.KindCategory, categoryID)
	if err != nil {
		return "", err
	}
	products, err := s.repo.ListByCategory(ctx, categoryID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.export.Dir, 0o775); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := export.FileName(category.Name, s.now(), format)
	path := filepath.Join(s.export.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := export.Write(f, format, products); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}

	s.logger.Info("category exported",
		zap.Int64("category_id", categoryID),
		zap.String("file", name),
		zap.Int("products", len(products)),
	)
	return strings.TrimRight(s.export.URLHost, "/") + s.export.URLPath + "/" + name, nil
}
