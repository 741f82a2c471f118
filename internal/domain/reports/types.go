// Package reports derives read-only sales aggregates from the ledger and
// the batch store.
package reports

import (
	"fmt"
	"time"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
)

// CostPolicy selects the cost basis used for profit.
type CostPolicy string

const (
	// CostRecorded uses the unit cost stored in each allocation record.
	// Sales without records fall back to CostFirstMatch and are counted as
	// unattributed.
	CostRecorded CostPolicy = "recorded"
	// CostStrict reports no profit for sales without records.
	CostStrict CostPolicy = "strict"
	// CostFirstMatch uses the first batch (oldest first) with the sale's
	// brand and model, or zero when none exists.
	CostFirstMatch CostPolicy = "first_match"
)

// ParseCostPolicy parses a policy name; empty means CostRecorded.
func ParseCostPolicy(s string) (CostPolicy, error) {
	switch CostPolicy(s) {
	case "", CostRecorded:
		return CostRecorded, nil
	case CostStrict, CostFirstMatch:
		return CostPolicy(s), nil
	}
	return "", fmt.Errorf("unknown cost policy %q", s)
}

// DateRange bounds a report by calendar day, inclusive. A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Validate rejects inverted ranges.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && sales.DateOf(*r.From).After(sales.DateOf(*r.To)) {
		return apperror.NewValidation("from must not be after to")
	}
	return nil
}

// Contains compares by calendar day.
func (r DateRange) Contains(t time.Time) bool {
	d := sales.DateOf(t)
	if r.From != nil && d.Before(sales.DateOf(*r.From)) {
		return false
	}
	if r.To != nil && d.After(sales.DateOf(*r.To)) {
		return false
	}
	return true
}

// Input is everything a summary is computed from.
type Input struct {
	Sales   []*sales.Sale
	Batches []*stock.Batch // store order, oldest first
	Records map[id.ID][]sales.AllocationRecord
}

// DaySummary aggregates one calendar day.
type DaySummary struct {
	Date         time.Time      `json:"date"`
	TotalItems   types.Quantity `json:"totalItems"`
	TotalIncome  types.Money    `json:"totalIncome"`
	TotalProfit  types.Money    `json:"totalProfit"`
	Unattributed int            `json:"unattributed"`
}

// BrandSummary aggregates one brand over a range.
type BrandSummary struct {
	Brand        string         `json:"brand"`
	TotalItems   types.Quantity `json:"totalItems"`
	TotalIncome  types.Money    `json:"totalIncome"`
	TotalProfit  types.Money    `json:"totalProfit"`
	Unattributed int            `json:"unattributed"`
}

// Totals are the dashboard summary boxes.
type Totals struct {
	Days         int            `json:"days"`
	TotalItems   types.Quantity `json:"totalItems"`
	TotalIncome  types.Money    `json:"totalIncome"`
	TotalProfit  types.Money    `json:"totalProfit"`
	Unattributed int            `json:"unattributed"`
}

// DailyReport is the daily summary with its totals.
type DailyReport struct {
	From   *time.Time   `json:"from,omitempty"`
	To     *time.Time   `json:"to,omitempty"`
	Policy CostPolicy   `json:"policy"`
	Days   []DaySummary `json:"days"`
	Totals Totals       `json:"totals"`
}

// BrandReport is the per-brand summary.
type BrandReport struct {
	From   *time.Time     `json:"from,omitempty"`
	To     *time.Time     `json:"to,omitempty"`
	Policy CostPolicy     `json:"policy"`
	Brands []BrandSummary `json:"brands"`
}
