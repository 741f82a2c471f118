package stock

import (
	"context"
	"fmt"
	"strings"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/pkg/logger"
)

// Service provides stock intake and batch maintenance.
// Sale-driven depletion goes through the allocation engine, not here.
type Service struct {
	repo Repository
}

// NewService creates a new batch store service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateBatchRequest registers a new purchase.
type CreateBatchRequest struct {
	Brand    string
	Model    string
	Quantity types.Quantity
	UnitCost types.Money
}

// UpdateBatchRequest edits batch metadata. Quantities are owned by the
// allocation engine and the dedicated decrease/increase operations.
type UpdateBatchRequest struct {
	Brand    *string
	Model    *string
	UnitCost *types.Money
}

// Create registers a batch with remaining = initial = quantity.
func (s *Service) Create(ctx context.Context, req CreateBatchRequest) (*Batch, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity("quantity must be positive").
			WithDetail("quantity", req.Quantity)
	}
	if req.Quantity > types.MaxQuantity {
		return nil, apperror.NewInvalidQuantity("quantity is too large").
			WithDetail("quantity", req.Quantity).
			WithDetail("max", types.MaxQuantity)
	}

	key := NewProductKey(req.Brand, req.Model)
	batch := &Batch{
		Brand:             key.Brand,
		Model:             key.Model,
		InitialQuantity:   req.Quantity,
		RemainingQuantity: req.Quantity,
		UnitCost:          req.UnitCost,
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	logger.Info(ctx, "stock batch created",
		"batch_id", batch.ID,
		"product", batch.Key().String(),
		"quantity", batch.InitialQuantity,
	)
	return batch, nil
}

// Update changes brand, model or unit cost. Allocation records keep the
// cost they were made at, so past profit is unaffected.
func (s *Service) Update(ctx context.Context, batchID id.ID, req UpdateBatchRequest) (*Batch, error) {
	batch, err := s.repo.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if req.Brand != nil {
		batch.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Model != nil {
		batch.Model = strings.TrimSpace(*req.Model)
	}
	if req.UnitCost != nil {
		batch.UnitCost = *req.UnitCost
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, fmt.Errorf("update batch: %w", err)
	}
	return batch, nil
}

// Delete removes a batch. Sales that consumed it keep their records; a later
// reversal skips the missing batch.
func (s *Service) Delete(ctx context.Context, batchID id.ID) error {
	if err := s.repo.Delete(ctx, batchID); err != nil {
		return err
	}
	logger.Info(ctx, "stock batch deleted", "batch_id", batchID)
	return nil
}

// Get returns a batch by ID.
func (s *Service) Get(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.Get(ctx, batchID)
}

// List returns batches matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Batch, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.NewValidation("unknown stock status").WithDetail("status", filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Decrease subtracts amount from a batch's remaining quantity.
func (s *Service) Decrease(ctx context.Context, batchID id.ID, amount types.Quantity) (*Batch, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewInvalidQuantity("amount must be positive").WithDetail("amount", amount)
	}
	return s.repo.DecreaseRemaining(ctx, batchID, amount)
}

// Increase adds amount to a batch's remaining quantity.
func (s *Service) Increase(ctx context.Context, batchID id.ID, amount types.Quantity) (*Batch, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewInvalidQuantity("amount must be positive").WithDetail("amount", amount)
	}
	return s.repo.IncreaseRemaining(ctx, batchID, amount)
}

// Valuation sums cost over all batches.
func (s *Service) Valuation(ctx context.Context) (Valuation, error) {
	batches, err := s.repo.List(ctx, Filter{})
	if err != nil {
		return Valuation{}, fmt.Errorf("list batches: %w", err)
	}
	return Value(batches), nil
}

// Value computes the valuation of batches.
func Value(batches []*Batch) Valuation {
	v := Valuation{GrandTotal: types.Zero(), RemainingValue: types.Zero()}
	for _, b := range batches {
		v.Batches++
		v.Units = v.Units.Add(b.InitialQuantity)
		v.RemainingUnits = v.RemainingUnits.Add(b.RemainingQuantity)
		v.GrandTotal = v.GrandTotal.Add(types.Mul(b.UnitCost, b.InitialQuantity))
		v.RemainingValue = v.RemainingValue.Add(types.Mul(b.UnitCost, b.RemainingQuantity))
	}
	return v
}
