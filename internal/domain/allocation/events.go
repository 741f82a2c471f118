package allocation

import (
	"time"

	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/sales"
)

// SaleEvent is the payload of sale.allocated, sale.reallocated and
// sale.reversed.
type SaleEvent struct {
	SaleID    id.ID          `json:"saleId"`
	Brand     string         `json:"brand"`
	Model     string         `json:"model"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
	Total     types.Money    `json:"total"`
	Date      time.Time      `json:"date"`
	Movements []Movement     `json:"movements,omitempty"`
	Restored  []Movement     `json:"restored,omitempty"`
	Dropped   types.Quantity `json:"dropped,omitempty"`
}

// TopUpEvent is the payload of batch.topped_up.
type TopUpEvent struct {
	BatchID  id.ID          `json:"batchId"`
	Brand    string         `json:"brand"`
	Model    string         `json:"model"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost types.Money    `json:"unitCost"`
	SaleID   id.ID          `json:"saleId"`
}

func newSaleEvent(s *sales.Sale, movements, restored []Movement, dropped types.Quantity) SaleEvent {
	return SaleEvent{
		SaleID:    s.ID,
		Brand:     s.Brand,
		Model:     s.Model,
		Quantity:  s.Quantity,
		UnitPrice: s.UnitPrice,
		Total:     s.Total,
		Date:      s.Date,
		Movements: movements,
		Restored:  restored,
		Dropped:   dropped,
	}
}
