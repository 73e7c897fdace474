// Package importer loads product CSV files into the catalog. Files are
// streamed, rows validated and normalized, and records written in chunks
// that each commit in their own transaction on a pool of workers.
package importer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// BatchName labels batches started from files.
const BatchName = "Import CSV Products"

// Options tune an Importer. Zero values select defaults.
type Options struct {
	ChunkSize int
	Workers   int
	Logger    *zap.Logger
	Metrics   Metrics
	Snapshots SnapshotSaver
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}
	return o
}

// Importer starts import batches and keeps track of the ones still running
// in this process so they can be cancelled.
type Importer struct {
	runner *Runner
	opts   Options

	mu     sync.Mutex
	active map[string]*Batch
}

// New builds an Importer writing through store.
func New(store Store, opts Options) *Importer {
	return NewWithProcessor(NewChunkProcessor(store), opts)
}

func NewWithProcessor(p Processor, opts Options) *Importer {
	opts = opts.withDefaults()
	return &Importer{
		runner: NewRunner(p, opts),
		opts:   opts,
		active: make(map[string]*Batch),
	}
}

// ImportFile opens path and starts a batch for it. Errors opening the file
// or reading its header are returned before any chunk is scheduled.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Batch, error) {
	src, err := OpenCSV(path, i.opts.Logger, i.opts.Metrics)
	if err != nil {
		return nil, err
	}
	return i.start(ctx, src), nil
}

// ImportReader is ImportFile for an already open stream. rc is closed by
// the batch.
func (i *Importer) ImportReader(ctx context.Context, name string, rc io.ReadCloser) (*Batch, error) {
	src, err := NewCSVSource(name, rc, i.opts.Logger, i.opts.Metrics)
	if err != nil {
		return nil, err
	}
	return i.start(ctx, src), nil
}

func (i *Importer) start(ctx context.Context, src *CSVSource) *Batch {
	name := fmt.Sprintf("%s (%s)", BatchName, filepath.Base(src.Name()))
	b := i.runner.Run(ctx, name, Chunks(src.Records(), i.opts.ChunkSize), src.Err)

	i.mu.Lock()
	i.active[b.ID()] = b
	i.mu.Unlock()

	go func() {
		<-b.Done()
		i.mu.Lock()
		delete(i.active, b.ID())
		i.mu.Unlock()
	}()
	return b
}

// Batch returns a batch still running in this process.
func (i *Importer) Batch(id string) (*Batch, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	b, ok := i.active[id]
	return b, ok
}

// Cancel cancels a running batch. It reports false when the batch is
// unknown here or already finished.
func (i *Importer) Cancel(id string) bool {
	b, ok := i.Batch(id)
	if !ok {
		return false
	}
	return b.Cancel()
}

// Shutdown cancels every running batch and waits for in-flight chunks.
func (i *Importer) Shutdown(ctx context.Context) error {
	i.mu.Lock()
	batches := make([]*Batch, 0, len(i.active))
	for _, b := range i.active {
		batches = append(batches, b)
	}
	i.mu.Unlock()

	for _, b := range batches {
		b.Cancel()
	}
	for _, b := range batches {
		if _, err := b.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
