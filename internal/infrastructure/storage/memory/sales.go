package memory

import (
	"context"
	"slices"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/domain/sales"
)

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	s *Store
}

func (r *SaleRepo) List(ctx context.Context, filter sales.Filter) ([]*sales.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*sales.Sale, 0, len(r.s.sales))
	for _, sale := range r.s.sales {
		if filter.Match(sale) {
			out = append(out, sale.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *sales.Sale) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *SaleRepo) Get(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sale, ok := r.s.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	return sale.Clone(), nil
}

func (r *SaleRepo) Create(ctx context.Context, sale *sales.Sale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id.IsNil(sale.ID) {
		sale.ID = id.New()
	}
	if _, exists := r.s.sales[sale.ID]; exists {
		return apperror.NewConflict("sale already exists").WithDetail("id", sale.ID)
	}
	now := r.s.now()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.UpdatedAt = now
	sale.Date = sales.DateOf(sale.Date)
	r.s.sales[sale.ID] = sale.Clone()
	return nil
}

func (r *SaleRepo) Update(ctx context.Context, sale *sales.Sale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.sales[sale.ID]
	if !ok {
		return apperror.NewNotFound("sale", sale.ID)
	}
	sale.CreatedAt = stored.CreatedAt
	sale.UpdatedAt = r.s.now()
	sale.Date = sales.DateOf(sale.Date)
	r.s.sales[sale.ID] = sale.Clone()
	return nil
}

func (r *SaleRepo) Delete(ctx context.Context, saleID id.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sales[saleID]; !ok {
		return apperror.NewNotFound("sale", saleID)
	}
	delete(r.s.sales, saleID)
	return nil
}
