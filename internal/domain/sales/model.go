// Package sales provides the sale ledger and the allocation records that
// link each sale to the batches it consumed.
package sales

import (
	"time"

	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/stock"
)

// Sale is one recorded sale of a product.
// Total equals UnitPrice × Quantity at write time.
type Sale struct {
	ID        id.ID          `db:"id" json:"id"`
	Brand     string         `db:"brand" json:"brand"`
	Model     string         `db:"model" json:"model"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	Total     types.Money    `db:"total" json:"total"`
	Date      time.Time      `db:"sale_date" json:"date"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// Key returns the sale's product key.
func (s *Sale) Key() stock.ProductKey {
	return stock.ProductKey{Brand: s.Brand, Model: s.Model}
}

// Clone returns a copy safe to mutate.
func (s *Sale) Clone() *Sale {
	c := *s
	return &c
}

// DateOf truncates t to its calendar day in UTC, keeping the year, month and
// day t carries in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AllocationRecord says Quantity units of a sale came from BatchID at
// UnitCost. Records are written with the sale and replaced on edit.
type AllocationRecord struct {
	SaleID    id.ID          `db:"sale_id" json:"saleId"`
	Seq       int            `db:"seq" json:"seq"`
	BatchID   id.ID          `db:"batch_id" json:"batchId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// Filter narrows sale listings. Bounds are inclusive calendar days.
type Filter struct {
	From  *time.Time
	To    *time.Time
	Brand string
	Model string
}

// Match reports whether s passes the filter.
func (f Filter) Match(s *Sale) bool {
	if f.Brand != "" && s.Brand != f.Brand {
		return false
	}
	if f.Model != "" && s.Model != f.Model {
		return false
	}
	day := DateOf(s.Date)
	if f.From != nil && day.Before(DateOf(*f.From)) {
		return false
	}
	if f.To != nil && day.After(DateOf(*f.To)) {
		return false
	}
	return true
}
