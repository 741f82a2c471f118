package reports

import (
	"context"

	"shopstock/internal/core/id"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

// BatchSource lists batches in store order.
type BatchSource interface {
	List(ctx context.Context, filter stock.Filter) ([]*stock.Batch, error)
}

// SaleSource lists sales.
type SaleSource interface {
	List(ctx context.Context, filter sales.Filter) ([]*sales.Sale, error)
}

// RecordSource lists allocation records grouped by sale.
type RecordSource interface {
	ListBySales(ctx context.Context, saleIDs []id.ID) (map[id.ID][]sales.AllocationRecord, error)
}
