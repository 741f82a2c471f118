package reports

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"shopstock/internal/core/id"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

// Service provides report generation operations.
type Service struct {
	batches BatchSource
	sales   SaleSource
	records RecordSource
	policy  CostPolicy
}

// NewService creates a new reports service. policy is used when a request
// does not name one.
func NewService(batches BatchSource, saleSource SaleSource, records RecordSource, policy CostPolicy) *Service {
	if policy == "" {
		policy = CostRecorded
	}
	return &Service{batches: batches, sales: saleSource, records: records, policy: policy}
}

// DefaultPolicy returns the configured cost policy.
func (s *Service) DefaultPolicy() CostPolicy {
	return s.policy
}

// Load reads batches and the sales in r concurrently, then the allocation
// records of those sales.
func (s *Service) Load(ctx context.Context, r DateRange) (Input, error) {
	var (
		batches []*stock.Batch
		list    []*sales.Sale
		bySale  map[id.ID][]sales.AllocationRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		batches, err = s.batches.List(gctx, stock.Filter{})
		if err != nil {
			return fmt.Errorf("list batches: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		list, err = s.sales.List(gctx, sales.Filter{From: r.From, To: r.To})
		if err != nil {
			return fmt.Errorf("list sales: %w", err)
		}
		ids := make([]id.ID, len(list))
		for i, sale := range list {
			ids[i] = sale.ID
		}
		bySale, err = s.records.ListBySales(gctx, ids)
		if err != nil {
			return fmt.Errorf("list allocation records: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	return Input{Sales: list, Batches: batches, Records: bySale}, nil
}

// Daily builds the daily summary report.
func (s *Service) Daily(ctx context.Context, r DateRange, policy CostPolicy) (*DailyReport, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = s.policy
	}

	in, err := s.Load(ctx, r)
	if err != nil {
		return nil, err
	}

	days := DailySummary(in, r, policy)
	return &DailyReport{
		From:   r.From,
		To:     r.To,
		Policy: policy,
		Days:   append([]DaySummary{}, slices.Collect(days)...),
		Totals: Sum(days),
	}, nil
}

// Brands builds the per-brand summary report.
func (s *Service) Brands(ctx context.Context, r DateRange, policy CostPolicy) (*BrandReport, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = s.policy
	}

	in, err := s.Load(ctx, r)
	if err != nil {
		return nil, err
	}

	return &BrandReport{
		From:   r.From,
		To:     r.To,
		Policy: policy,
		Brands: append([]BrandSummary{}, slices.Collect(ByBrand(in, r, policy))...),
	}, nil
}
