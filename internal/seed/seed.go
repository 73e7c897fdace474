// Package seed loads a small demo catalog through the regular import
// pipeline. Re-running it only refreshes updated_at on the demo products.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"

	"go.uber.org/zap"

	"product-catalog/internal/importer"
)

//go:embed products.csv
var sampleCSV []byte

// SampleCSV returns the embedded demo file.
func SampleCSV() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(sampleCSV))
}

// Apply imports the demo file and waits for the batch. Three of its rows
// are deliberately invalid and are skipped by the reader.
func Apply(ctx context.Context, store importer.Store, logger *zap.Logger) (importer.Snapshot, error) {
	imp := importer.New(store, importer.Options{ChunkSize: 5, Workers: 2, Logger: logger})
	b, err := imp.ImportReader(ctx, "demo-products.csv", SampleCSV())
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("read demo file: %w", err)
	}
	snap, err := b.Wait(ctx)
	if err != nil {
		return snap, err
	}
	if snap.Status != importer.StatusCompleted {
		return snap, fmt.Errorf("demo import finished with status %s", snap.Status)
	}
	return snap, nil
}
