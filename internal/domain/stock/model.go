// Package stock provides the batch store: purchased stock batches and
// their remaining quantities.
package stock

import (
	"strings"
	"time"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
)

// LowStockThreshold is the largest remaining quantity labeled low stock.
const LowStockThreshold types.Quantity = 6

// Status is the availability label of a batch.
type Status string

const (
	StatusInStock    Status = "in_stock"
	StatusLowStock   Status = "low_stock"
	StatusOutOfStock Status = "out_of_stock"
)

// StatusOf labels a remaining quantity.
func StatusOf(remaining types.Quantity) Status {
	switch {
	case remaining > LowStockThreshold:
		return StatusInStock
	case remaining > 0:
		return StatusLowStock
	default:
		return StatusOutOfStock
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusOutOfStock:
		return true
	}
	return false
}

// ProductKey identifies a product by brand and model. Candidate batches for
// a sale are all batches sharing the sale's key.
type ProductKey struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
}

// NewProductKey builds a key from untrimmed input.
func NewProductKey(brand, model string) ProductKey {
	return ProductKey{Brand: strings.TrimSpace(brand), Model: strings.TrimSpace(model)}
}

// String returns the lock key form "brand|model".
func (k ProductKey) String() string {
	return k.Brand + "|" + k.Model
}

// Validate checks both parts are present.
func (k ProductKey) Validate() error {
	if k.Brand == "" {
		return apperror.NewValidation("brand is required").WithDetail("field", "brand")
	}
	if k.Model == "" {
		return apperror.NewValidation("model is required").WithDetail("field", "model")
	}
	return nil
}

// Batch is one purchase of a product.
// Invariant: 0 <= RemainingQuantity <= InitialQuantity.
type Batch struct {
	ID                id.ID          `db:"id" json:"id"`
	Brand             string         `db:"brand" json:"brand"`
	Model             string         `db:"model" json:"model"`
	InitialQuantity   types.Quantity `db:"initial_quantity" json:"initialQuantity"`
	RemainingQuantity types.Quantity `db:"remaining_quantity" json:"remainingQuantity"`
	UnitCost          types.Money    `db:"unit_cost" json:"unitCost"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

// Key returns the batch's product key.
func (b *Batch) Key() ProductKey {
	return ProductKey{Brand: b.Brand, Model: b.Model}
}

// Room is how many units can still be restored to the batch.
func (b *Batch) Room() types.Quantity {
	return b.InitialQuantity - b.RemainingQuantity
}

// Status returns the availability label.
func (b *Batch) Status() Status {
	return StatusOf(b.RemainingQuantity)
}

// Validate checks the batch invariants.
func (b *Batch) Validate() error {
	if err := b.Key().Validate(); err != nil {
		return err
	}
	if b.InitialQuantity.IsNegative() {
		return apperror.NewInvalidQuantity("initial quantity must not be negative")
	}
	if b.RemainingQuantity.IsNegative() || b.RemainingQuantity > b.InitialQuantity {
		return apperror.NewInvalidQuantity("remaining quantity must be between 0 and initial quantity").
			WithDetail("initial", b.InitialQuantity).
			WithDetail("remaining", b.RemainingQuantity)
	}
	if b.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost must not be negative").WithDetail("field", "unitCost")
	}
	return nil
}

// Clone returns a copy safe to mutate.
func (b *Batch) Clone() *Batch {
	c := *b
	return &c
}

// Valuation is the stock grand total.
type Valuation struct {
	Batches        int            `json:"batches"`
	Units          types.Quantity `json:"units"`
	RemainingUnits types.Quantity `json:"remainingUnits"`
	GrandTotal     types.Money    `json:"grandTotal"`
	RemainingValue types.Money    `json:"remainingValue"`
}
