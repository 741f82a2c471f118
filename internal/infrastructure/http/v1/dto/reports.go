package dto

import (
	"shopstock/internal/domain/reports"
)

// ReportQuery selects the range and cost basis of a report.
type ReportQuery struct {
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Policy string `form:"policy" binding:"omitempty,oneof=recorded strict first_match"`
}

// Range parses the bounds; empty means open.
func (q ReportQuery) Range() (reports.DateRange, error) {
	from, err := ParseDay("from", q.From)
	if err != nil {
		return reports.DateRange{}, err
	}
	to, err := ParseDay("to", q.To)
	if err != nil {
		return reports.DateRange{}, err
	}
	r := reports.DateRange{From: from, To: to}
	return r, r.Validate()
}
