package importer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"product-catalog/internal/domain"
)

// BuildRows substitutes reference ids for names. When a product number
// repeats inside records only its first occurrence is kept, matching the
// first-write-wins policy of the upsert. Rows come back sorted by product
// number so overlapping chunks lock rows in the same order.
func BuildRows(records []domain.ProductRecord, ids ReferenceIDs) ([]domain.ProductRow, error) {
	rows := make([]domain.ProductRow, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ProductNumber]; dup {
			continue
		}
		seen[rec.ProductNumber] = struct{}{}

		categoryID, err := lookup(ids.Categories, domain.KindCategory, rec)
		if err != nil {
			return nil, err
		}
		departmentID, err := lookup(ids.Departments, domain.KindDepartment, rec)
		if err != nil {
			return nil, err
		}
		manufacturerID, err := lookup(ids.Manufacturers, domain.KindManufacturer, rec)
		if err != nil {
			return nil, err
		}

		rows = append(rows, domain.ProductRow{
			ProductNumber:  rec.ProductNumber,
			CategoryID:     categoryID,
			DepartmentID:   departmentID,
			ManufacturerID: manufacturerID,
			UPC:            rec.UPC,
			SKU:            rec.SKU,
			RegularPrice:   rec.RegularPrice,
			SalePrice:      rec.SalePrice,
			Description:    rec.Description,
		})
	}
	slices.SortFunc(rows, func(a, b domain.ProductRow) int {
		return strings.Compare(a.ProductNumber, b.ProductNumber)
	})
	return rows, nil
}

// UpsertProducts writes records in one bulk statement.
func UpsertProducts(ctx context.Context, tx Tx, records []domain.ProductRecord, ids ReferenceIDs, now time.Time) error {
	rows, err := BuildRows(records, ids)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.UpsertProducts(ctx, rows, now); err != nil {
		return fmt.Errorf("upsert %d products: %w", len(rows), err)
	}
	return nil
}

func lookup(ids map[string]int64, kind domain.ReferenceKind, rec domain.ProductRecord) (int64, error) {
	var name string
	switch kind {
	case domain.KindCategory:
		name = rec.CategoryName
	case domain.KindDepartment:
		name = rec.DepartmentName
	case domain.KindManufacturer:
		name = rec.ManufacturerName
	}
	id, ok := ids[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q for product %s", ErrUnresolvedReference, kind, name, rec.ProductNumber)
	}
	return id, nil
}
