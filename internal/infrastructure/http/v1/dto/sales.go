package dto

import (
	"time"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/allocation"
	"shopstock/internal/domain/sales"
)

// SaleListQuery filters GET /sales. Dates are inclusive.
type SaleListQuery struct {
	From  string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To    string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Brand string `form:"brand" binding:"max=100"`
	Model string `form:"model" binding:"max=100"`
}

// ToFilter converts the query to a domain filter.
func (q SaleListQuery) ToFilter() (sales.Filter, error) {
	from, err := ParseDay("from", q.From)
	if err != nil {
		return sales.Filter{}, err
	}
	to, err := ParseDay("to", q.To)
	if err != nil {
		return sales.Filter{}, err
	}
	if from != nil && to != nil && from.After(*to) {
		return sales.Filter{}, apperror.NewValidation("from must not be after to")
	}
	return sales.Filter{From: from, To: to, Brand: q.Brand, Model: q.Model}, nil
}

// TopUpRequest offers a new batch to cover a shortage.
type TopUpRequest struct {
	Quantity types.Quantity `json:"quantity"`
	UnitCost types.Money    `json:"unitCost"`
}

// SaleRequest is the body of POST /sales and PUT /sales/:id.
type SaleRequest struct {
	Brand     string         `json:"brand" binding:"required,max=100"`
	Model     string         `json:"model" binding:"required,max=100"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
	Date      string         `json:"date" binding:"required,datetime=2006-01-02"`
	TopUp     *TopUpRequest  `json:"topUp"`
}

func (r SaleRequest) day() (time.Time, error) {
	d, err := ParseDay("date", r.Date)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	return *d, nil
}

func (r SaleRequest) topUp() *allocation.TopUp {
	if r.TopUp == nil {
		return nil
	}
	return &allocation.TopUp{Quantity: r.TopUp.Quantity, UnitCost: r.TopUp.UnitCost}
}

// ToAllocate converts to an allocation request.
func (r SaleRequest) ToAllocate() (allocation.AllocateRequest, error) {
	day, err := r.day()
	if err != nil {
		return allocation.AllocateRequest{}, err
	}
	return allocation.AllocateRequest{
		Brand:     r.Brand,
		Model:     r.Model,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Date:      day,
		TopUp:     r.topUp(),
	}, nil
}

// ToReallocate converts to a reallocation of saleID.
func (r SaleRequest) ToReallocate(saleID id.ID) (allocation.ReallocateRequest, error) {
	day, err := r.day()
	if err != nil {
		return allocation.ReallocateRequest{}, err
	}
	return allocation.ReallocateRequest{
		SaleID:    saleID,
		Brand:     r.Brand,
		Model:     r.Model,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Date:      day,
		TopUp:     r.topUp(),
	}, nil
}

// AvailabilityQuery is GET /sales/availability.
type AvailabilityQuery struct {
	Brand    string `form:"brand" binding:"required,max=100"`
	Model    string `form:"model" binding:"required,max=100"`
	Quantity string `form:"quantity" binding:"required"`
}

// SaleResponse is a sale on the wire; the date renders as YYYY-MM-DD.
type SaleResponse struct {
	ID        string         `json:"id"`
	Brand     string         `json:"brand"`
	Model     string         `json:"model"`
	UnitPrice types.Money    `json:"unitPrice"`
	Quantity  types.Quantity `json:"quantity"`
	Total     types.Money    `json:"total"`
	Date      string         `json:"date"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// FromSale creates SaleResponse from sales.Sale.
func FromSale(s *sales.Sale) SaleResponse {
	return SaleResponse{
		ID:        s.ID.String(),
		Brand:     s.Brand,
		Model:     s.Model,
		UnitPrice: s.UnitPrice,
		Quantity:  s.Quantity,
		Total:     s.Total,
		Date:      s.Date.Format(DateLayout),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// FromSales converts a list.
func FromSales(list []*sales.Sale) []SaleResponse {
	out := make([]SaleResponse, 0, len(list))
	for _, s := range list {
		out = append(out, FromSale(s))
	}
	return out
}

// AllocationResponse answers POST /sales and PUT /sales/:id.
type AllocationResponse struct {
	Sale       SaleResponse          `json:"sale"`
	Movements  []allocation.Movement `json:"movements"`
	TopUpBatch *BatchResponse        `json:"topUpBatch,omitempty"`
	Restored   []allocation.Movement `json:"restored,omitempty"`
	Warning    *apperror.AppError    `json:"warning,omitempty"`
}

// FromAllocation converts an engine result.
func FromAllocation(r *allocation.AllocationResult) AllocationResponse {
	resp := AllocationResponse{
		Sale:      FromSale(r.Sale),
		Movements: r.Movements,
		Restored:  r.Restored,
		Warning:   r.Warning,
	}
	if resp.Movements == nil {
		resp.Movements = []allocation.Movement{}
	}
	if r.TopUpBatch != nil {
		b := FromBatch(r.TopUpBatch)
		resp.TopUpBatch = &b
	}
	return resp
}

// ReversalResponse answers DELETE /sales/:id. The sale is gone either way;
// Warning reports quantity no batch could take back.
type ReversalResponse struct {
	SaleID   string                `json:"saleId"`
	Restored []allocation.Movement `json:"restored"`
	Dropped  types.Quantity        `json:"dropped"`
	Warning  *apperror.AppError    `json:"warning,omitempty"`
}

// FromReversal converts an engine result.
func FromReversal(r *allocation.ReversalResult) ReversalResponse {
	resp := ReversalResponse{
		SaleID:   r.Sale.ID.String(),
		Restored: r.Restored,
		Dropped:  r.Dropped,
		Warning:  r.Warning,
	}
	if resp.Restored == nil {
		resp.Restored = []allocation.Movement{}
	}
	return resp
}
