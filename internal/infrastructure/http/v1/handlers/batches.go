package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"shopstock/internal/core/id"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/stock"
	"shopstock/internal/infrastructure/http/v1/dto"
)

// BatchHandler handles HTTP requests for stock batches.
type BatchHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(base *BaseHandler, service *stock.Service) *BatchHandler {
	return &BatchHandler{BaseHandler: base, service: service}
}

// List handles GET /batches
func (h *BatchHandler) List(c *gin.Context) {
	var q dto.BatchListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	batches, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromBatches(batches)))
}

// Get handles GET /batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	batch, err := h.service.Get(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBatch(batch))
}

// Create handles POST /batches
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.service.Create(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromBatch(batch))
}

// Update handles PUT /batches/:id
func (h *BatchHandler) Update(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.service.Update(c.Request.Context(), batchID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBatch(batch))
}

// Delete handles DELETE /batches/:id
func (h *BatchHandler) Delete(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), batchID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"id": batchID.String(), "deleted": true})
}

// Decrease handles PUT /batches/:id/decrease
func (h *BatchHandler) Decrease(c *gin.Context) {
	h.adjust(c, h.service.Decrease)
}

// Increase handles PUT /batches/:id/increase
func (h *BatchHandler) Increase(c *gin.Context) {
	h.adjust(c, h.service.Increase)
}

type adjustFunc func(ctx context.Context, batchID id.ID, amount types.Quantity) (*stock.Batch, error)

func (h *BatchHandler) adjust(c *gin.Context, op adjustFunc) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := op(c.Request.Context(), batchID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBatch(batch))
}

// Valuation handles GET /batches/valuation
func (h *BatchHandler) Valuation(c *gin.Context) {
	v, err := h.service.Valuation(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}
