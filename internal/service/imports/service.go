// Package imports starts CSV product imports from uploads and answers
// status and cancel requests for them.
package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"product-catalog/internal/batchstore"
	"product-catalog/internal/importer"
)

// Starter is the part of the importer the service drives.
type Starter interface {
	ImportFile(ctx context.Context, path string) (*importer.Batch, error)
	Batch(id string) (*importer.Batch, bool)
	Cancel(id string) bool
}

type Service struct {
	importer  Starter
	store     batchstore.Store
	uploadDir string
	logger    *zap.Logger
}

func New(imp Starter, store batchstore.Store, uploadDir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{importer: imp, store: store, uploadDir: uploadDir, logger: logger}
}

// Upload copies r into the upload directory and starts importing it. The
// stored copy is removed once the batch finishes. File-level errors
// (unreadable, no header) are returned synchronously and the copy is
// removed right away.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (importer.Snapshot, error) {
	if err := os.MkdirAll(s.uploadDir, 0o775); err != nil {
		return importer.Snapshot{}, fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, uuid.NewString()+filepath.Ext(filename))

	f, err := os.Create(path)
	if err != nil {
		return importer.Snapshot{}, fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return importer.Snapshot{}, fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return importer.Snapshot{}, fmt.Errorf("store upload: %w", err)
	}

	b, err := s.importer.ImportFile(ctx, path)
	if err != nil {
		_ = os.Remove(path)
		return importer.Snapshot{}, err
	}
	s.logger.Info("import started",
		zap.String("batch_id", b.ID()),
		zap.String("upload", filename),
		zap.String("path", path),
	)
	go s.removeWhenDone(b, path)
	return b.Snapshot(), nil
}

func (s *Service) removeWhenDone(b *importer.Batch, path string) {
	<-b.Done()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove upload", zap.String("batch_id", b.ID()), zap.String("path", path), zap.Error(err))
	}
}

// Status prefers the live batch when it runs in this process and falls
// back to the snapshot store.
func (s *Service) Status(ctx context.Context, id string) (importer.Snapshot, error) {
	if b, ok := s.importer.Batch(id); ok {
		return b.Snapshot(), nil
	}
	return s.store.Get(ctx, id)
}

// Cancel stops scheduling new chunks of a batch running in this process.
// It returns domain.ErrNotFound for unknown batches and ErrFinished for
// batches that already completed.
func (s *Service) Cancel(ctx context.Context, id string) (importer.Snapshot, error) {
	if s.importer.Cancel(id) {
		if b, ok := s.importer.Batch(id); ok {
			return b.Snapshot(), nil
		}
		return s.store.Get(ctx, id)
	}
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return importer.Snapshot{}, err
	}
	if snap.Status.Finished() {
		return snap, ErrFinished
	}
	return snap, ErrNotLocal
}

var (
	// ErrFinished means the batch can no longer be cancelled.
	ErrFinished = errors.New("import already finished")
	// ErrNotLocal means the batch runs in another process.
	ErrNotLocal = errors.New("import runs in another process")
)

// IsFileError reports whether err rejects the uploaded file as a whole.
func IsFileError(err error) bool {
	return errors.Is(err, importer.ErrHeaderMissing) ||
		errors.Is(err, importer.ErrFileUnreadable) ||
		errors.Is(err, importer.ErrFileNotFound)
}
