package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type processorFunc func(ctx context.Context, chunk Chunk) error

func (f processorFunc) Process(ctx context.Context, chunk Chunk) error { return f(ctx, chunk) }

type recordingSaver struct {
	mu    sync.Mutex
	saved []Snapshot
}

func (s *recordingSaver) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, snap)
	return nil
}

func (s *recordingSaver) all() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.saved...)
}

func waitBatch(t *testing.T, b *Batch) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := b.Wait(ctx)
	require.NoError(t, err, "batch did not finish")
	return snap
}

func TestRunner_AllChunksSucceed(t *testing.T) {
	saver := &recordingSaver{}
	r := NewRunner(processorFunc(func(context.Context, Chunk) error { return nil }), Options{Workers: 3, Snapshots: saver})

	b := r.Run(context.Background(), BatchName, Chunks(records(125), 50), nil)
	snap := waitBatch(t, b)

	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 3, snap.Chunks)
	assert.Equal(t, 3, snap.Succeeded)
	assert.Equal(t, 125, snap.Records)
	assert.Zero(t, snap.Pending())
	assert.NotNil(t, snap.FinishedAt)

	saved := saver.all()
	require.NotEmpty(t, saved)
	assert.Equal(t, StatusRunning, saved[0].Status)
	assert.Equal(t, StatusCompleted, saved[len(saved)-1].Status)
	assert.Equal(t, b.ID(), saved[len(saved)-1].ID)
}

func TestRunner_FailedChunkDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	boom := errors.New("boom")
	r := NewRunner(processorFunc(func(_ context.Context, c Chunk) error {
		if c.Index == 1 {
			return &ChunkError{Index: c.Index, Err: boom}
		}
		return nil
	}), Options{Workers: 2, Logger: zap.New(core)})

	snap := waitBatch(t, r.Run(context.Background(), BatchName, Chunks(records(125), 50), nil))

	assert.Equal(t, StatusCompletedWithFailures, snap.Status)
	assert.Equal(t, 2, snap.Succeeded)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 75, snap.Records)
	require.Len(t, snap.Failures, 1)
	assert.Equal(t, ChunkResult{
		Index:        1,
		Records:      50,
		FirstProduct: "P-050",
		LastProduct:  "P-099",
		Status:       ChunkFailed,
		Error:        "chunk 1: boom",
	}, snap.Failures[0])

	rolledBack := logs.FilterMessage("chunk rolled back").All()
	require.Len(t, rolledBack, 1)
	assert.Equal(t, "P-050", rolledBack[0].ContextMap()["first_product_number"])
	assert.Len(t, logs.FilterMessage("chunk committed").All(), 2)
}

func TestRunner_PanicFailsChunk(t *testing.T) {
	r := NewRunner(processorFunc(func(_ context.Context, c Chunk) error {
		if c.Index == 0 {
			panic("nil map")
		}
		return nil
	}), Options{})

	snap := waitBatch(t, r.Run(context.Background(), BatchName, Chunks(records(60), 50), nil))

	assert.Equal(t, StatusCompletedWithFailures, snap.Status)
	require.Len(t, snap.Failures, 1)
	assert.Contains(t, snap.Failures[0].Error, "panic: nil map")
}

func TestRunner_CancelSkipsPendingChunks(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls []int
	var mu sync.Mutex

	r := NewRunner(processorFunc(func(_ context.Context, c Chunk) error {
		mu.Lock()
		calls = append(calls, c.Index)
		mu.Unlock()
		if c.Index == 0 {
			close(started)
			<-release
		}
		return nil
	}), Options{Workers: 1})

	b := r.Run(context.Background(), BatchName, Chunks(records(150), 50), nil)
	<-started
	assert.True(t, b.Cancel())
	close(release)

	snap := waitBatch(t, b)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Equal(t, 1, snap.Succeeded)
	// reading stops at the first chunk seen after the cancel
	assert.GreaterOrEqual(t, snap.Cancelled, 1)
	assert.Zero(t, snap.Pending())
	assert.Equal(t, 50, snap.Records)
	assert.Equal(t, []int{0}, calls)

	assert.False(t, b.Cancel(), "finished batch cannot be cancelled")
}

func TestRunner_DetachedFromRequestContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(processorFunc(func(ctx context.Context, _ Chunk) error {
		return ctx.Err()
	}), Options{})

	b := r.Run(ctx, BatchName, Chunks(records(10), 5), nil)
	cancel()

	snap := waitBatch(t, b)
	assert.Equal(t, StatusCompleted, snap.Status)
}

func TestRunner_SourceErrorMarksBatch(t *testing.T) {
	srcErr := errors.New("disk gone")
	r := NewRunner(processorFunc(func(context.Context, Chunk) error { return nil }), Options{})

	snap := waitBatch(t, r.Run(context.Background(), BatchName, Chunks(records(10), 5), func() error { return srcErr }))

	assert.Equal(t, StatusCompletedWithFailures, snap.Status)
	assert.Equal(t, "disk gone", snap.Error)
	assert.Equal(t, 2, snap.Succeeded)
}

func TestBatch_SnapshotIsCopy(t *testing.T) {
	b := newBatch("id", "name", time.Now())
	b.record(ChunkResult{Index: 0, Status: ChunkFailed, Error: "x"})
	snap := b.Snapshot()
	snap.Failures[0].Error = "changed"
	assert.Equal(t, "x", b.Snapshot().Failures[0].Error)
}

func TestStatusFinished(t *testing.T) {
	assert.False(t, StatusPending.Finished())
	assert.False(t, StatusRunning.Finished())
	assert.True(t, StatusCompleted.Finished())
	assert.True(t, StatusCompletedWithFailures.Finished())
	assert.True(t, StatusCancelled.Finished())
}

func TestBatch_LateCancelKeepsOutcome(t *testing.T) {
	b := newBatch("id", "name", time.Now())
	b.scheduled()
	b.record(ChunkResult{Index: 0, Records: 50, Status: ChunkSucceeded})
	require.True(t, b.Cancel())

	assert.Equal(t, StatusCompleted, b.finish(time.Now(), nil))

	b = newBatch("id", "name", time.Now())
	b.scheduled()
	b.record(ChunkResult{Index: 0, Status: ChunkFailed, Error: "x"})
	require.True(t, b.Cancel())
	assert.Equal(t, StatusCompletedWithFailures, b.finish(time.Now(), nil))
}
