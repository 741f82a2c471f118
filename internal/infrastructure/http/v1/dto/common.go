// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"shopstock/internal/core/apperror"
)

// DateLayout is the calendar-day format used in requests.
const DateLayout = time.DateOnly

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResponse never renders items as null.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// ParseDay parses an optional YYYY-MM-DD value; empty yields nil.
func ParseDay(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, apperror.NewValidation("invalid date").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return &t, nil
}
