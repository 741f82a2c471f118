package memory

import (
	"context"
	"slices"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/stock"
)

// BatchRepo implements stock.Repository.
type BatchRepo struct {
	s *Store
}

func (r *BatchRepo) List(ctx context.Context, filter stock.Filter) ([]*stock.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*stock.Batch, 0, len(r.s.batches))
	for _, b := range r.s.batches {
		if filter.Match(b) {
			out = append(out, b.Clone())
		}
	}
	sortBatches(out)
	return out, nil
}

func (r *BatchRepo) ListByProduct(ctx context.Context, key stock.ProductKey) ([]*stock.Batch, error) {
	return r.List(ctx, stock.Filter{Brand: key.Brand, Model: key.Model})
}

func (r *BatchRepo) Get(ctx context.Context, batchID id.ID) (*stock.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	return b.Clone(), nil
}

func (r *BatchRepo) Create(ctx context.Context, batch *stock.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := batch.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id.IsNil(batch.ID) {
		batch.ID = id.New()
	}
	if _, exists := r.s.batches[batch.ID]; exists {
		return apperror.NewConflict("batch already exists").WithDetail("id", batch.ID)
	}
	now := r.s.now()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now
	r.s.batches[batch.ID] = batch.Clone()
	return nil
}

func (r *BatchRepo) Update(ctx context.Context, batch *stock.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.batches[batch.ID]
	if !ok {
		return apperror.NewNotFound("batch", batch.ID)
	}
	stored.Brand = batch.Brand
	stored.Model = batch.Model
	stored.UnitCost = batch.UnitCost
	stored.UpdatedAt = r.s.now()

	*batch = *stored.Clone()
	return nil
}

func (r *BatchRepo) Delete(ctx context.Context, batchID id.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.batches[batchID]; !ok {
		return apperror.NewNotFound("batch", batchID)
	}
	delete(r.s.batches, batchID)
	return nil
}

func (r *BatchRepo) DecreaseRemaining(ctx context.Context, batchID id.ID, amount types.Quantity) (*stock.Batch, error) {
	return r.adjust(ctx, batchID, -amount, amount)
}

func (r *BatchRepo) IncreaseRemaining(ctx context.Context, batchID id.ID, amount types.Quantity) (*stock.Batch, error) {
	return r.adjust(ctx, batchID, amount, amount)
}

func (r *BatchRepo) adjust(ctx context.Context, batchID id.ID, delta, amount types.Quantity) (*stock.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperror.NewInvalidQuantity("amount must be positive").WithDetail("amount", amount)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	next := b.RemainingQuantity + delta
	if next < 0 || next > b.InitialQuantity {
		return nil, apperror.NewInvalidQuantity("remaining quantity would leave [0, initial]").
			WithDetail("batch_id", batchID).
			WithDetail("remaining", b.RemainingQuantity).
			WithDetail("initial", b.InitialQuantity).
			WithDetail("delta", delta)
	}
	b.RemainingQuantity = next
	b.UpdatedAt = r.s.now()
	return b.Clone(), nil
}

func sortBatches(batches []*stock.Batch) {
	slices.SortFunc(batches, func(a, b *stock.Batch) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})
}
