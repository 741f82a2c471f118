// Package memory keeps batches, sales and allocation records in process
// memory. It has no transactions: pair it with tx.Nop so the allocation
// engine compensates failed operations itself.
package memory

import (
	"sync"
	"time"

	"shopstock/internal/core/id"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

// Store holds all collections behind one lock.
type Store struct {
	mu          sync.RWMutex
	batches     map[id.ID]*stock.Batch
	sales       map[id.ID]*sales.Sale
	allocations map[id.ID][]sales.AllocationRecord
	now         func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		batches:     make(map[id.ID]*stock.Batch),
		sales:       make(map[id.ID]*sales.Sale),
		allocations: make(map[id.ID][]sales.AllocationRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Batches returns the batch repository view.
func (s *Store) Batches() *BatchRepo { return &BatchRepo{s: s} }

// Sales returns the sale repository view.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

// Allocations returns the allocation record repository view.
func (s *Store) Allocations() *AllocationRepo { return &AllocationRepo{s: s} }

var (
	_ stock.Repository           = (*BatchRepo)(nil)
	_ sales.Repository           = (*SaleRepo)(nil)
	_ sales.AllocationRepository = (*AllocationRepo)(nil)
)
