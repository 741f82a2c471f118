package memory

import (
	"context"
	"slices"

	"shopstock/internal/core/id"
	"shopstock/internal/domain/sales"
)

// AllocationRepo implements sales.AllocationRepository.
type AllocationRepo struct {
	s *Store
}

func (r *AllocationRepo) ListBySale(ctx context.Context, saleID id.ID) ([]sales.AllocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return slices.Clone(r.s.allocations[saleID]), nil
}

func (r *AllocationRepo) ListBySales(ctx context.Context, saleIDs []id.ID) (map[id.ID][]sales.AllocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[id.ID][]sales.AllocationRecord, len(saleIDs))
	for _, saleID := range saleIDs {
		if records, ok := r.s.allocations[saleID]; ok {
			out[saleID] = slices.Clone(records)
		}
	}
	return out, nil
}

func (r *AllocationRepo) ListAll(ctx context.Context) ([]sales.AllocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []sales.AllocationRecord
	for _, records := range r.s.allocations {
		out = append(out, records...)
	}
	slices.SortFunc(out, func(a, b sales.AllocationRecord) int {
		if c := id.Compare(a.SaleID, b.SaleID); c != 0 {
			return c
		}
		return a.Seq - b.Seq
	})
	return out, nil
}

func (r *AllocationRepo) Replace(ctx context.Context, saleID id.ID, records []sales.AllocationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if len(records) == 0 {
		delete(r.s.allocations, saleID)
		return nil
	}
	stored := slices.Clone(records)
	for i := range stored {
		stored[i].SaleID = saleID
	}
	r.s.allocations[saleID] = stored
	return nil
}

func (r *AllocationRepo) DeleteBySale(ctx context.Context, saleID id.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.allocations, saleID)
	return nil
}
