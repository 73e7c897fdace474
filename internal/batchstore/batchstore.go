// Package batchstore keeps import batch snapshots for status polling after
// the request that started the batch has returned.
package batchstore

import (
	"context"
	"sync"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/importer"
)

// Store saves and loads batch snapshots. Get returns domain.ErrNotFound for
// unknown or expired batches.
type Store interface {
	Save(ctx context.Context, s importer.Snapshot) error
	Get(ctx context.Context, id string) (importer.Snapshot, error)
}

type memoryEntry struct {
	snap    importer.Snapshot
	expires time.Time
}

// Memory is a process-local Store. Entries expire ttl after their last save.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Save(_ context.Context, s importer.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.entries[s.ID] = memoryEntry{snap: s, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (importer.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || (m.ttl > 0 && !m.now().Before(e.expires)) {
		delete(m.entries, id)
		return importer.Snapshot{}, domain.ErrNotFound
	}
	return e.snap, nil
}

// sweep drops expired entries; callers hold mu.
func (m *Memory) sweep() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
		}
	}
}
