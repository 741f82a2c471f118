package app

import (
	"context"
	"encoding/json"
	"fmt"

	"shopstock/internal/domain"
	"shopstock/internal/domain/allocation"
	"shopstock/internal/infrastructure/metrics"
	"shopstock/internal/infrastructure/storage/postgres"
	"shopstock/pkg/logger"
)

// partialSuffix marks reversal events that dropped quantity.
const partialSuffix = ".partial"

// EventRelayHandler logs every outbox event and counts it. Reversals that
// could not return all their quantity are logged at warn level and counted
// separately.
func EventRelayHandler(m *metrics.Metrics) postgres.OutboxHandler {
	return postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		switch msg.EventType {
		case domain.EventSaleAllocated, domain.EventSaleReallocated, domain.EventSaleReversed:
			var ev allocation.SaleEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
			}
			logger.Info(ctx, "sale event",
				"event_type", msg.EventType,
				"sale_id", ev.SaleID,
				"product", ev.Brand+"|"+ev.Model,
				"quantity", ev.Quantity,
			)
			if ev.Dropped > 0 {
				logger.Warn(ctx, "partial reversal",
					"sale_id", ev.SaleID,
					"dropped", ev.Dropped,
				)
				m.OutboxEvent(msg.EventType + partialSuffix)
			}
		case domain.EventBatchToppedUp:
			var ev allocation.TopUpEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
			}
			logger.Info(ctx, "batch topped up",
				"batch_id", ev.BatchID,
				"sale_id", ev.SaleID,
				"quantity", ev.Quantity,
			)
		default:
			logger.Debug(ctx, "outbox event", "event_type", msg.EventType, "aggregate_id", msg.AggregateID)
		}
		m.OutboxEvent(msg.EventType)
		return nil
	})
}
