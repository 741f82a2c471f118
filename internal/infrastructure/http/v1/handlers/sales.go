package handlers

import (
	"github.com/gin-gonic/gin"

	"shopstock/internal/core/apperror"
	"shopstock/internal/core/types"
	"shopstock/internal/domain/allocation"
	"shopstock/internal/domain/sales"
	"shopstock/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles HTTP requests for sales. Reads go to the ledger,
// writes go through the allocation engine.
type SaleHandler struct {
	*BaseHandler
	ledger *sales.Service
	engine *allocation.Engine
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, ledger *sales.Service, engine *allocation.Engine) *SaleHandler {
	return &SaleHandler{BaseHandler: base, ledger: ledger, engine: engine}
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	list, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromSales(list)))
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sale, err := h.ledger.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(sale))
}

// Allocations handles GET /sales/:id/allocations
func (h *SaleHandler) Allocations(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	records, err := h.ledger.Allocations(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(records))
}

// Availability handles GET /sales/availability
func (h *SaleHandler) Availability(c *gin.Context) {
	var q dto.AvailabilityQuery
	if !h.BindQuery(c, &q) {
		return
	}
	qty, err := types.ParseQuantity(q.Quantity)
	if err != nil {
		h.Error(c, apperror.NewInvalidQuantity("quantity must be a whole number").WithDetail("quantity", q.Quantity))
		return
	}

	avail, err := h.engine.CheckAvailability(c.Request.Context(), q.Brand, q.Model, qty)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, avail)
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.SaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	allocReq, err := req.ToAllocate()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.Allocate(c.Request.Context(), allocReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromAllocation(result))
}

// Update handles PUT /sales/:id
func (h *SaleHandler) Update(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.SaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reallocReq, err := req.ToReallocate(saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.Reallocate(c.Request.Context(), reallocReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAllocation(result))
}

// Delete handles DELETE /sales/:id
// A partial restoration is reported in the body, not as an error.
func (h *SaleHandler) Delete(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	result, err := h.engine.Reverse(c.Request.Context(), allocation.ReverseRequest{SaleID: saleID})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReversal(result))
}
