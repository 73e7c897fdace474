package importer

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status is the aggregate state of a batch.
type Status string

const (
	StatusPending               Status = "pending"
	StatusRunning               Status = "running"
	StatusCompleted             Status = "completed"
	StatusCompletedWithFailures Status = "completed_with_failures"
	StatusCancelled             Status = "cancelled"
)

// Finished reports whether no more chunks will run.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusCompletedWithFailures || s == StatusCancelled
}

// ChunkStatus is the outcome of one chunk.
type ChunkStatus string

const (
	ChunkSucceeded ChunkStatus = "succeeded"
	ChunkFailed    ChunkStatus = "failed"
	ChunkCancelled ChunkStatus = "cancelled"
)

// ChunkResult describes a finished chunk.
type ChunkResult struct {
	Index        int         `json:"index"`
	Records      int         `json:"records"`
	FirstProduct string      `json:"first_product_number,omitempty"`
	LastProduct  string      `json:"last_product_number,omitempty"`
	Status       ChunkStatus `json:"status"`
	Error        string      `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of a batch, suitable for storage and
// JSON responses. Chunks counts every chunk taken from the file so far.
type Snapshot struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Status     Status        `json:"status"`
	Chunks     int           `json:"chunks"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Cancelled  int           `json:"cancelled"`
	Records    int           `json:"records"`
	Failures   []ChunkResult `json:"failures,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Pending is the number of scheduled chunks that have not finished.
func (s Snapshot) Pending() int {
	return s.Chunks - s.Succeeded - s.Failed - s.Cancelled
}

// Batch is the handle of one running or finished import.
type Batch struct {
	cancel atomic.Bool
	done   chan struct{}

	mu   sync.Mutex
	snap Snapshot

	// serializes snapshot publication so stores see states in order
	pubMu sync.Mutex
}

func newBatch(id, name string, now time.Time) *Batch {
	return &Batch{
		done: make(chan struct{}),
		snap: Snapshot{
			ID:        id,
			Name:      name,
			Status:    StatusPending,
			CreatedAt: now,
		},
	}
}

func (b *Batch) ID() string {
	return b.snap.ID
}

func (b *Batch) Name() string {
	return b.snap.Name
}

// Cancel stops chunks that have not started yet from running. Chunks in
// flight finish normally. It returns false once the batch has finished.
// A batch whose chunks all ran before the cancel took effect still ends
// completed.
func (b *Batch) Cancel() bool {
	select {
	case <-b.done:
		return false
	default:
	}
	b.cancel.Store(true)
	return true
}

func (b *Batch) Cancelled() bool {
	return b.cancel.Load()
}

// Done is closed when every scheduled chunk has finished.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch finishes or ctx ends.
func (b *Batch) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-b.done:
		return b.Snapshot(), nil
	case <-ctx.Done():
		return b.Snapshot(), ctx.Err()
	}
}

func (b *Batch) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.snap
	if b.snap.Failures != nil {
		s.Failures = append([]ChunkResult(nil), b.snap.Failures...)
	}
	if b.snap.FinishedAt != nil {
		t := *b.snap.FinishedAt
		s.FinishedAt = &t
	}
	return s
}

func (b *Batch) setStatus(s Status) {
	b.mu.Lock()
	b.snap.Status = s
	b.mu.Unlock()
}

func (b *Batch) scheduled() {
	b.mu.Lock()
	b.snap.Chunks++
	b.mu.Unlock()
}

func (b *Batch) record(res ChunkResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch res.Status {
	case ChunkSucceeded:
		b.snap.Succeeded++
		b.snap.Records += res.Records
	case ChunkFailed:
		b.snap.Failed++
		b.snap.Failures = append(b.snap.Failures, res)
	case ChunkCancelled:
		b.snap.Cancelled++
	}
}

func (b *Batch) finish(now time.Time, sourceErr error) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sourceErr != nil {
		b.snap.Error = sourceErr.Error()
	}
	switch {
	case b.snap.Cancelled > 0:
		b.snap.Status = StatusCancelled
	case b.snap.Failed > 0 || sourceErr != nil:
		b.snap.Status = StatusCompletedWithFailures
	default:
		b.snap.Status = StatusCompleted
	}
	b.snap.FinishedAt = &now
	return b.snap.Status
}

// SnapshotSaver persists batch snapshots for polling.
type SnapshotSaver interface {
	Save(ctx context.Context, s Snapshot) error
}

// Runner schedules chunks on a bounded pool of workers and aggregates their
// outcomes on a Batch. Failed chunks are recorded, never retried.
type Runner struct {
	processor Processor
	opts      Options
	now       func() time.Time
	newID     func() string
}

func NewRunner(p Processor, opts Options) *Runner {
	return &Runner{
		processor: p,
		opts:      opts.withDefaults(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Run starts processing chunks in the background and returns the batch
// handle immediately. Processing is detached from ctx cancellation; use
// Batch.Cancel to stop scheduling. sourceErr, when not nil, is consulted
// after chunks is exhausted to learn whether the producer stopped early.
func (r *Runner) Run(ctx context.Context, name string, chunks iter.Seq[Chunk], sourceErr func() error) *Batch {
	ctx = context.WithoutCancel(ctx)
	b := newBatch(r.newID(), name, r.now().UTC())
	b.setStatus(StatusRunning)
	r.opts.Metrics.BatchStarted()
	r.publish(ctx, b)

	go r.run(ctx, b, chunks, sourceErr)
	return b
}

func (r *Runner) run(ctx context.Context, b *Batch, chunks iter.Seq[Chunk], sourceErr func() error) {
	logger := r.opts.Logger.With(zap.String("batch_id", b.ID()), zap.String("batch", b.Name()))
	logger.Info("batch started", zap.Int("workers", r.opts.Workers))

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for chunk := range chunks {
		b.scheduled()
		if b.Cancelled() {
			r.skip(ctx, b, chunk)
			break
		}
		g.Go(func() error {
			r.process(ctx, logger, b, chunk)
			return nil
		})
	}
	_ = g.Wait()

	var srcErr error
	if sourceErr != nil {
		srcErr = sourceErr()
	}
	if srcErr != nil {
		logger.Error("import source stopped early", zap.Error(srcErr))
	}
	status := b.finish(r.now().UTC(), srcErr)
	r.opts.Metrics.BatchFinished(status)
	r.publish(ctx, b)

	snap := b.Snapshot()
	logger.Info("batch finished",
		zap.String("status", string(status)),
		zap.Int("chunks", snap.Chunks),
		zap.Int("succeeded", snap.Succeeded),
		zap.Int("failed", snap.Failed),
		zap.Int("cancelled", snap.Cancelled),
		zap.Int("records", snap.Records),
	)
	close(b.done)
}

func (r *Runner) process(ctx context.Context, logger *zap.Logger, b *Batch, chunk Chunk) {
	if b.Cancelled() {
		r.skip(ctx, b, chunk)
		return
	}

	first, last := chunk.bounds()
	res := ChunkResult{
		Index:        chunk.Index,
		Records:      len(chunk.Records),
		FirstProduct: first,
		LastProduct:  last,
		Status:       ChunkSucceeded,
	}

	start := time.Now()
	err := r.safeProcess(ctx, chunk)
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.Int("chunk", chunk.Index),
		zap.Int("records", len(chunk.Records)),
		zap.String("first_product_number", first),
		zap.String("last_product_number", last),
		zap.Duration("duration", elapsed),
	}
	if err != nil {
		res.Status = ChunkFailed
		res.Error = err.Error()
		logger.Error("chunk rolled back", append(fields, zap.Error(err))...)
	} else {
		logger.Info("chunk committed", fields...)
	}

	b.record(res)
	r.opts.Metrics.ChunkFinished(res.Status, elapsed)
	r.publish(ctx, b)
}

func (r *Runner) safeProcess(ctx context.Context, chunk Chunk) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ChunkError{Index: chunk.Index, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return r.processor.Process(ctx, chunk)
}

func (r *Runner) skip(ctx context.Context, b *Batch, chunk Chunk) {
	b.record(ChunkResult{Index: chunk.Index, Records: len(chunk.Records), Status: ChunkCancelled})
	r.opts.Metrics.ChunkFinished(ChunkCancelled, 0)
	r.publish(ctx, b)
}

func (r *Runner) publish(ctx context.Context, b *Batch) {
	if r.opts.Snapshots == nil {
		return
	}
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	if err := r.opts.Snapshots.Save(ctx, b.Snapshot()); err != nil {
		r.opts.Logger.Warn("save batch snapshot", zap.String("batch_id", b.ID()), zap.Error(err))
	}
}
