package importer

import (
	"context"
	"sync"
	"time"

	"product-catalog/internal/domain"
)

type memProduct struct {
	row       domain.ProductRow
	createdAt time.Time
	updatedAt time.Time
}

// memStore applies writes immediately and undoes them on rollback.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	refs     map[domain.ReferenceKind]map[string]int64
	products map[string]memProduct

	// conflictErr reports domain.ErrAlreadyExists for names that exist.
	conflictErr bool
	// failUpsert fails the product write of any chunk containing the key.
	failUpsert map[string]error
	// onSelect runs after each reference select, outside the lock.
	onSelect func(tx *memTx, kind domain.ReferenceKind)

	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		refs: map[domain.ReferenceKind]map[string]int64{
			domain.KindCategory:     {},
			domain.KindDepartment:   {},
			domain.KindManufacturer: {},
		},
		products:   map[string]memProduct{},
		failUpsert: map[string]error{},
	}
}

func (s *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.rollbacks++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	return nil
}

func (s *memStore) product(number string) (memProduct, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[number]
	return p, ok
}

func (s *memStore) productCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

func (s *memStore) refNames(kind domain.ReferenceKind) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.refs[kind]))
	for k, v := range s.refs[kind] {
		out[k] = v
	}
	return out
}

type memTx struct {
	s    *memStore
	undo []func()
}

func (t *memTx) SelectReferenceIDs(_ context.Context, kind domain.ReferenceKind, names []string) (map[string]int64, error) {
	t.s.mu.Lock()
	out := make(map[string]int64, len(names))
	for _, n := range names {
		if id, ok := t.s.refs[kind][n]; ok {
			out[n] = id
		}
	}
	hook := t.s.onSelect
	t.s.mu.Unlock()

	if hook != nil {
		hook(t, kind)
	}
	return out, nil
}

func (t *memTx) InsertReferences(_ context.Context, kind domain.ReferenceKind, names []string, _ time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	conflict := false
	for _, n := range names {
		if _, ok := t.s.refs[kind][n]; ok {
			conflict = true
			continue
		}
		t.s.nextID++
		t.s.refs[kind][n] = t.s.nextID
		name := n
		t.undo = append(t.undo, func() { delete(t.s.refs[kind], name) })
	}
	if conflict && t.s.conflictErr {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (t *memTx) UpsertProducts(_ context.Context, rows []domain.ProductRow, now time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, r := range rows {
		if err, ok := t.s.failUpsert[r.ProductNumber]; ok {
			return err
		}
	}
	for _, r := range rows {
		number := r.ProductNumber
		if prev, ok := t.s.products[number]; ok {
			next := prev
			next.updatedAt = now
			t.s.products[number] = next
			t.undo = append(t.undo, func() { t.s.products[number] = prev })
			continue
		}
		t.s.products[number] = memProduct{row: r, createdAt: now, updatedAt: now}
		t.undo = append(t.undo, func() { delete(t.s.products, number) })
	}
	return nil
}
