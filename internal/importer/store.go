package importer

import (
	"context"
	"time"

	"product-catalog/internal/domain"
)

// Store scopes a unit of work in a transaction. fn's writes are committed
// when it returns nil and rolled back otherwise.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the table access the pipeline needs inside one chunk transaction.
type Tx interface {
	// SelectReferenceIDs returns the ids of the rows whose name is in names.
	// Names without a row are absent from the result.
	SelectReferenceIDs(ctx context.Context, kind domain.ReferenceKind, names []string) (map[string]int64, error)
	// InsertReferences bulk-inserts names. A name that already exists is
	// skipped, or reported as domain.ErrAlreadyExists.
	InsertReferences(ctx context.Context, kind domain.ReferenceKind, names []string, now time.Time) error
	// UpsertProducts bulk-writes rows keyed on product number. Existing
	// products only get updated_at refreshed.
	UpsertProducts(ctx context.Context, rows []domain.ProductRow, now time.Time) error
}
