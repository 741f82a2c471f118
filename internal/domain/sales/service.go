package sales

import (
	"context"
	"fmt"

	"shopstock/internal/core/id"
)

// Service gives read access to the ledger. Writes go through the
// allocation engine so stock and sales move together.
type Service struct {
	repo    Repository
	records AllocationRepository
}

// NewService creates a new sale ledger service.
func NewService(repo Repository, records AllocationRepository) *Service {
	return &Service{repo: repo, records: records}
}

// Get returns a sale by ID.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.Get(ctx, saleID)
}

// List returns sales matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Sale, error) {
	return s.repo.List(ctx, filter)
}

// Allocations returns the batches a sale consumed.
func (s *Service) Allocations(ctx context.Context, saleID id.ID) ([]AllocationRecord, error) {
	if _, err := s.repo.Get(ctx, saleID); err != nil {
		return nil, err
	}
	records, err := s.records.ListBySale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return records, nil
}
