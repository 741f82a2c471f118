package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstock/internal/core/id"
	"shopstock/internal/domain"
	"shopstock/internal/domain/allocation"
	"shopstock/internal/infrastructure/metrics"
	"shopstock/internal/infrastructure/storage/postgres"
)

func TestEventRelayHandler(t *testing.T) {
	m := metrics.New()
	h := EventRelayHandler(m)
	ctx := context.Background()

	payload, err := json.Marshal(allocation.SaleEvent{SaleID: id.New(), Brand: "Acme", Model: "X1", Quantity: 3, Dropped: 2})
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, &postgres.OutboxMessage{
		ID: id.New(), EventType: domain.EventSaleReversed, Payload: payload,
	}))

	err = h.Handle(ctx, &postgres.OutboxMessage{
		ID: id.New(), EventType: domain.EventBatchToppedUp, Payload: []byte("{broken"),
	})
	assert.Error(t, err)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `event_type="sale.reversed"`)
	assert.Contains(t, body, `event_type="sale.reversed.partial"`)
	assert.NotContains(t, body, `event_type="batch.topped_up"`)
}
