// Package domain holds types shared by the business services.
package domain

import (
	"context"

	"shopstock/internal/core/id"
)

// Event types emitted by the allocation engine.
const (
	EventSaleAllocated   = "sale.allocated"
	EventSaleReallocated = "sale.reallocated"
	EventSaleReversed    = "sale.reversed"
	EventBatchToppedUp   = "batch.topped_up"
)

// Aggregate types.
const (
	AggregateSale  = "sale"
	AggregateBatch = "batch"
)

// Event is a domain event written alongside the change that caused it.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher records events. Implementations backed by a database must
// write within the caller's transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
