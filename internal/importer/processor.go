package importer

import (
	"context"
	"time"
)

// Processor handles one chunk. Implementations must not share mutable state
// between concurrent calls.
type Processor interface {
	Process(ctx context.Context, chunk Chunk) error
}

// ChunkProcessor resolves a chunk's references and upserts its products in
// a single transaction. A failure rolls back both.
type ChunkProcessor struct {
	store Store
	now   func() time.Time
}

func NewChunkProcessor(store Store) *ChunkProcessor {
	return &ChunkProcessor{store: store, now: time.Now}
}

func (p *ChunkProcessor) Process(ctx context.Context, chunk Chunk) error {
	now := p.now().UTC()
	err := p.store.InTx(ctx, func(tx Tx) error {
		ids, err := ResolveChunk(ctx, tx, chunk.Records, now)
		if err != nil {
			return err
		}
		return UpsertProducts(ctx, tx, chunk.Records, ids, now)
	})
	if err != nil {
		return &ChunkError{Index: chunk.Index, Err: err}
	}
	return nil
}
