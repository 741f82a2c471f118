package stock

import (
	"context"

	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
)

// Repository defines storage operations for stock batches.
type Repository interface {
	// List returns batches in store order (oldest first).
	List(ctx context.Context, filter Filter) ([]*Batch, error)

	// ListByProduct returns every batch for key, oldest first.
	ListByProduct(ctx context.Context, key ProductKey) ([]*Batch, error)

	Get(ctx context.Context, batchID id.ID) (*Batch, error)

	// Create assigns ID and timestamps when they are unset.
	Create(ctx context.Context, batch *Batch) error

	// Update persists brand, model and unit cost.
	Update(ctx context.Context, batch *Batch) error

	Delete(ctx context.Context, batchID id.ID) error

	// DecreaseRemaining subtracts amount atomically. Amounts <= 0 or larger
	// than the remaining quantity fail with INVALID_QUANTITY.
	DecreaseRemaining(ctx context.Context, batchID id.ID, amount types.Quantity) (*Batch, error)

	// IncreaseRemaining adds amount atomically. Amounts <= 0 or larger than
	// the batch's room fail with INVALID_QUANTITY.
	IncreaseRemaining(ctx context.Context, batchID id.ID, amount types.Quantity) (*Batch, error)
}

// Filter narrows batch listings. Empty fields match everything.
type Filter struct {
	Brand  string
	Model  string
	Status Status
}

// Match reports whether b passes the filter.
func (f Filter) Match(b *Batch) bool {
	if f.Brand != "" && b.Brand != f.Brand {
		return false
	}
	if f.Model != "" && b.Model != f.Model {
		return false
	}
	if f.Status != "" && b.Status() != f.Status {
		return false
	}
	return true
}
