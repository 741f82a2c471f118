package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopstock/internal/domain/reports"
	"shopstock/internal/infrastructure/export"
	"shopstock/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// DailySales handles GET /reports/daily-sales
func (h *ReportsHandler) DailySales(c *gin.Context) {
	report, ok := h.daily(c)
	if !ok {
		return
	}
	h.OK(c, report)
}

// BrandSales handles GET /reports/brand-sales
func (h *ReportsHandler) BrandSales(c *gin.Context) {
	var q dto.ReportQuery
	if !h.BindQuery(c, &q) {
		return
	}
	r, err := q.Range()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.Brands(c.Request.Context(), r, reports.CostPolicy(q.Policy))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// ExportDailySales handles GET /reports/daily-sales/export
func (h *ReportsHandler) ExportDailySales(c *gin.Context) {
	report, ok := h.daily(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDailyXLSX(&buf, report); err != nil {
		h.Error(c, fmt.Errorf("export daily sales: %w", err))
		return
	}

	filename := fmt.Sprintf("daily-sales-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (h *ReportsHandler) daily(c *gin.Context) (*reports.DailyReport, bool) {
	var q dto.ReportQuery
	if !h.BindQuery(c, &q) {
		return nil, false
	}
	r, err := q.Range()
	if err != nil {
		h.Error(c, err)
		return nil, false
	}

	report, err := h.service.Daily(c.Request.Context(), r, reports.CostPolicy(q.Policy))
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return report, true
}
