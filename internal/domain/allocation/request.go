package allocation

import (
	"time"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

// TopUp is a batch the caller offers to receive when stock is short.
type TopUp struct {
	Quantity types.Quantity
	UnitCost types.Money
}

func (t *TopUp) validate() error {
	if t == nil {
		return nil
	}
	if !t.Quantity.IsPositive() {
		return apperror.NewInvalidQuantity("top-up quantity must be positive").
			WithDetail("topUpQuantity", t.Quantity)
	}
	if t.Quantity > types.MaxQuantity {
		return apperror.NewInvalidQuantity("top-up quantity is too large").
			WithDetail("topUpQuantity", t.Quantity).
			WithDetail("max", types.MaxQuantity)
	}
	if t.UnitCost.IsNegative() {
		return apperror.NewValidation("top-up unit cost must not be negative").
			WithDetail("field", "topUp.unitCost")
	}
	return nil
}

// AllocateRequest records a new sale.
type AllocateRequest struct {
	Brand     string
	Model     string
	Quantity  types.Quantity
	UnitPrice types.Money
	Date      time.Time
	TopUp     *TopUp
}

// Validate checks every field before anything is touched.
func (r AllocateRequest) Validate() error {
	return validateSaleFields(r.Brand, r.Model, r.Quantity, r.UnitPrice, r.Date, r.TopUp)
}

func (r AllocateRequest) order() order {
	return order{
		key:       stock.NewProductKey(r.Brand, r.Model),
		quantity:  r.Quantity,
		unitPrice: r.UnitPrice,
		date:      sales.DateOf(r.Date),
		topUp:     r.TopUp,
	}
}

// ReallocateRequest edits an existing sale. The old consumption is
// reversed in full and the new parameters are allocated fresh.
type ReallocateRequest struct {
	SaleID    id.ID
	Brand     string
	Model     string
	Quantity  types.Quantity
	UnitPrice types.Money
	Date      time.Time
	TopUp     *TopUp
}

// Validate checks every field before anything is touched.
func (r ReallocateRequest) Validate() error {
	if id.IsNil(r.SaleID) {
		return apperror.NewValidation("sale id is required").WithDetail("field", "saleId")
	}
	return validateSaleFields(r.Brand, r.Model, r.Quantity, r.UnitPrice, r.Date, r.TopUp)
}

func (r ReallocateRequest) order() order {
	return order{
		key:       stock.NewProductKey(r.Brand, r.Model),
		quantity:  r.Quantity,
		unitPrice: r.UnitPrice,
		date:      sales.DateOf(r.Date),
		topUp:     r.TopUp,
	}
}

// ReverseRequest deletes a sale and returns its quantity to stock.
type ReverseRequest struct {
	SaleID id.ID
}

// Validate checks the request.
func (r ReverseRequest) Validate() error {
	if id.IsNil(r.SaleID) {
		return apperror.NewValidation("sale id is required").WithDetail("field", "saleId")
	}
	return nil
}

func validateSaleFields(brand, model string, qty types.Quantity, price types.Money, date time.Time, topUp *TopUp) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity("quantity must be positive").WithDetail("quantity", qty)
	}
	if qty > types.MaxQuantity {
		return apperror.NewInvalidQuantity("quantity is too large").
			WithDetail("quantity", qty).
			WithDetail("max", types.MaxQuantity)
	}
	if price.IsNegative() {
		return apperror.NewInvalidQuantity("unit price must not be negative").WithDetail("unitPrice", price)
	}
	if err := stock.NewProductKey(brand, model).Validate(); err != nil {
		return err
	}
	if date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	return topUp.validate()
}

// order is a validated sale to allocate.
type order struct {
	key       stock.ProductKey
	quantity  types.Quantity
	unitPrice types.Money
	date      time.Time
	topUp     *TopUp
}

// Availability previews whether a quantity can be allocated.
type Availability struct {
	Brand     string         `json:"brand"`
	Model     string         `json:"model"`
	Requested types.Quantity `json:"requested"`
	Available types.Quantity `json:"available"`
	Shortage  types.Quantity `json:"shortage"`
}

// Short reports whether a top-up is needed.
func (a Availability) Short() bool { return a.Shortage > 0 }

// AllocationResult is returned by Allocate and Reallocate.
type AllocationResult struct {
	Sale       *sales.Sale  `json:"sale"`
	Movements  []Movement   `json:"movements"`
	TopUpBatch *stock.Batch `json:"topUpBatch,omitempty"`

	// Restored and Warning are set by Reallocate.
	Restored []Movement         `json:"restored,omitempty"`
	Warning  *apperror.AppError `json:"warning,omitempty"`
}

// ReversalResult is returned by Reverse. Warning carries PARTIAL_REVERSAL
// when Dropped > 0; the sale is deleted either way.
type ReversalResult struct {
	Sale     *sales.Sale        `json:"sale"`
	Restored []Movement         `json:"restored"`
	Dropped  types.Quantity     `json:"dropped"`
	Warning  *apperror.AppError `json:"warning,omitempty"`
}
