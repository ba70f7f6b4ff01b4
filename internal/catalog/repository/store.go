// Package repository holds the in-memory catalog store and the on-disk
// fallback catalog.
package repository

import (
	"sync/atomic"

	"cotizador_backend/internal/catalog/domain"
)

// Store publishes the current catalog snapshot. Readers always observe one
// complete snapshot; writers replace it in a single atomic step.
type Store struct {
	current atomic.Pointer[domain.Snapshot]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the published snapshot, or nil before the first load.
func (s *Store) Current() *domain.Snapshot {
	return s.current.Load()
}

// Swap publishes snap and returns the snapshot it replaced.
func (s *Store) Swap(snap *domain.Snapshot) *domain.Snapshot {
	return s.current.Swap(snap)
}

// SwapIfEmpty publishes snap only when nothing has been published yet.
func (s *Store) SwapIfEmpty(snap *domain.Snapshot) bool {
	return s.current.CompareAndSwap(nil, snap)
}
