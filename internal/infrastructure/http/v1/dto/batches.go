package dto

import (
	"time"

	"shopstock/internal/core/types"
	"shopstock/internal/domain/stock"
)

// BatchListQuery filters GET /batches.
type BatchListQuery struct {
	Brand  string `form:"brand" binding:"max=100"`
	Model  string `form:"model" binding:"max=100"`
	Status string `form:"status" binding:"omitempty,oneof=in_stock low_stock out_of_stock"`
}

// ToFilter converts the query to a domain filter.
func (q BatchListQuery) ToFilter() stock.Filter {
	return stock.Filter{Brand: q.Brand, Model: q.Model, Status: stock.Status(q.Status)}
}

// CreateBatchRequest registers a purchase.
type CreateBatchRequest struct {
	Brand    string         `json:"brand" binding:"required,max=100"`
	Model    string         `json:"model" binding:"required,max=100"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost types.Money    `json:"unitCost"`
}

// ToDomain converts to the service request.
func (r CreateBatchRequest) ToDomain() stock.CreateBatchRequest {
	return stock.CreateBatchRequest{
		Brand:    r.Brand,
		Model:    r.Model,
		Quantity: r.Quantity,
		UnitCost: r.UnitCost,
	}
}

// UpdateBatchRequest edits batch metadata; absent fields stay unchanged.
type UpdateBatchRequest struct {
	Brand    *string      `json:"brand" binding:"omitempty,min=1,max=100"`
	Model    *string      `json:"model" binding:"omitempty,min=1,max=100"`
	UnitCost *types.Money `json:"unitCost"`
}

func (r UpdateBatchRequest) ToDomain() stock.UpdateBatchRequest {
	return stock.UpdateBatchRequest{Brand: r.Brand, Model: r.Model, UnitCost: r.UnitCost}
}

// AdjustBatchRequest is the body of the decrease and increase endpoints.
type AdjustBatchRequest struct {
	Quantity types.Quantity `json:"quantity"`
}

// BatchResponse is a batch with its stock status label.
type BatchResponse struct {
	ID                string         `json:"id"`
	Brand             string         `json:"brand"`
	Model             string         `json:"model"`
	InitialQuantity   types.Quantity `json:"initialQuantity"`
	RemainingQuantity types.Quantity `json:"remainingQuantity"`
	UnitCost          types.Money    `json:"unitCost"`
	TotalCost         types.Money    `json:"totalCost"`
	Status            stock.Status   `json:"status"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// FromBatch creates BatchResponse from stock.Batch.
func FromBatch(b *stock.Batch) BatchResponse {
	return BatchResponse{
		ID:                b.ID.String(),
		Brand:             b.Brand,
		Model:             b.Model,
		InitialQuantity:   b.InitialQuantity,
		RemainingQuantity: b.RemainingQuantity,
		UnitCost:          b.UnitCost,
		TotalCost:         types.Mul(b.UnitCost, b.InitialQuantity),
		Status:            b.Status(),
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

// FromBatches converts a list.
func FromBatches(batches []*stock.Batch) []BatchResponse {
	out := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, FromBatch(b))
	}
	return out
}
