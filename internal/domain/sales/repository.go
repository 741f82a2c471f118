package sales

import (
	"context"

	"shopstock/internal/core/id"
)

// Repository defines storage operations for sales.
type Repository interface {
	// List returns sales ordered by date, then creation.
	List(ctx context.Context, filter Filter) ([]*Sale, error)
	Get(ctx context.Context, saleID id.ID) (*Sale, error)
	// Create assigns ID and timestamps when they are unset.
	Create(ctx context.Context, sale *Sale) error
	Update(ctx context.Context, sale *Sale) error
	Delete(ctx context.Context, saleID id.ID) error
}

// AllocationRepository stores allocation records.
type AllocationRepository interface {
	// ListBySale returns a sale's records ordered by Seq.
	ListBySale(ctx context.Context, saleID id.ID) ([]AllocationRecord, error)
	// ListBySales groups records by sale.
	ListBySales(ctx context.Context, saleIDs []id.ID) (map[id.ID][]AllocationRecord, error)
	ListAll(ctx context.Context) ([]AllocationRecord, error)
	// Replace swaps the full record set of a sale.
	Replace(ctx context.Context, saleID id.ID, records []AllocationRecord) error
	DeleteBySale(ctx context.Context, saleID id.ID) error
}
