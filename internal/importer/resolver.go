package importer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"product-catalog/internal/domain"
)

// ReferenceIDs holds the name to id mappings for one chunk.
type ReferenceIDs struct {
	Categories    map[string]int64
	Departments   map[string]int64
	Manufacturers map[string]int64
}

// Resolve makes sure every name has a row in the kind's table and returns
// the name to id mapping. Missing names are inserted, then the whole set is
// selected again so ids inserted by a concurrent chunk are picked up.
// Missing names are inserted in sorted order.
func Resolve(ctx context.Context, tx Tx, kind domain.ReferenceKind, names []string, now time.Time) (map[string]int64, error) {
	if len(names) == 0 {
		return map[string]int64{}, nil
	}

	existing, err := tx.SelectReferenceIDs(ctx, kind, names)
	if err != nil {
		return nil, fmt.Errorf("select %s names: %w", kind, err)
	}

	var missing []string
	for _, name := range names {
		if _, ok := existing[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return existing, nil
	}
	// concurrent chunks must take unique-index locks in the same order
	slices.Sort(missing)

	if err := tx.InsertReferences(ctx, kind, missing, now); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, fmt.Errorf("insert %s names: %w", kind, err)
	}

	ids, err := tx.SelectReferenceIDs(ctx, kind, names)
	if err != nil {
		return nil, fmt.Errorf("reselect %s names: %w", kind, err)
	}
	for _, name := range names {
		if _, ok := ids[name]; !ok {
			return nil, fmt.Errorf("%w: %s %q missing after insert", ErrUnresolvedReference, kind, name)
		}
	}
	return ids, nil
}

// ResolveChunk resolves the distinct category, department and manufacturer
// names appearing in records.
func ResolveChunk(ctx context.Context, tx Tx, records []domain.ProductRecord, now time.Time) (ReferenceIDs, error) {
	var (
		ids ReferenceIDs
		err error
	)
	ids.Categories, err = Resolve(ctx, tx, domain.KindCategory, distinct(records, func(r domain.ProductRecord) string { return r.CategoryName }), now)
	if err != nil {
		return ReferenceIDs{}, err
	}
	ids.Departments, err = Resolve(ctx, tx, domain.KindDepartment, distinct(records, func(r domain.ProductRecord) string { return r.DepartmentName }), now)
	if err != nil {
		return ReferenceIDs{}, err
	}
	ids.Manufacturers, err = Resolve(ctx, tx, domain.KindManufacturer, distinct(records, func(r domain.ProductRecord) string { return r.ManufacturerName }), now)
	if err != nil {
		return ReferenceIDs{}, err
	}
	return ids, nil
}

// distinct returns the unique values of field in first-seen order.
func distinct(records []domain.ProductRecord, field func(domain.ProductRecord) string) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		v := field(r)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
