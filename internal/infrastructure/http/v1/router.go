// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	appctx "shopstock/internal/core/context"
	"shopstock/internal/domain/allocation"
	"shopstock/internal/domain/reports"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
	"shopstock/internal/infrastructure/http/v1/dto"
	"shopstock/internal/infrastructure/http/v1/handlers"
	"shopstock/internal/infrastructure/http/v1/middleware"
	"shopstock/internal/infrastructure/metrics"
	"shopstock/pkg/logger"
)

// LocalSession is attached to every request when auth is disabled.
var LocalSession = appctx.Session{UserID: "local", Role: appctx.RoleAdmin}

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Mode is the gin mode (debug, release, test)
	Mode string

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation; nil disables authentication
	JWTValidator middleware.JWTValidator

	// Idempotency stores X-Idempotency-Key state; nil disables the middleware
	Idempotency middleware.IdempotencyStore

	// Metrics is optional; when set /metrics is served
	Metrics *metrics.Metrics

	// HealthChecks are run by /health/ready
	HealthChecks map[string]handlers.Pinger

	Batches *stock.Service
	Sales   *sales.Service
	Engine  *allocation.Engine
	Reports *reports.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	dto.UseJSONFieldNames()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		if cfg.JWTValidator != nil {
			protected.Use(middleware.Auth(cfg.JWTValidator))
		} else {
			protected.Use(middleware.StaticSession(LocalSession))
		}

		// Runs after auth so keys are scoped to the caller.
		if cfg.Idempotency != nil {
			protected.Use(middleware.Idempotency(cfg.Idempotency))
		}

		baseHandler := handlers.NewBaseHandler()
		registerBatchRoutes(protected, baseHandler, cfg)
		registerSaleRoutes(protected, baseHandler, cfg)
		registerReportRoutes(protected, baseHandler, cfg)
	}

	return router
}

// registerBatchRoutes registers stock batch endpoints.
func registerBatchRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewBatchHandler(base, cfg.Batches)
	group := rg.Group("/batches")
	RegisterCRUDRoutes(group, handler, appctx.PageStock)
	group.GET("/valuation", handler.Valuation)
	group.PUT("/:id/decrease", handler.Decrease)
	group.PUT("/:id/increase", handler.Increase)
}

// registerSaleRoutes registers sale endpoints; writes run through the engine.
func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewSaleHandler(base, cfg.Sales, cfg.Engine)
	group := rg.Group("/sales")
	RegisterCRUDRoutes(group, handler, appctx.PageSales)
	group.GET("/availability", handler.Availability)
	group.GET("/:id/allocations", handler.Allocations)
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewReportsHandler(base, cfg.Reports)
	group := rg.Group("/reports", middleware.RequirePage(appctx.PageDashboard))
	group.GET("/daily-sales", handler.DailySales)
	group.GET("/daily-sales/export", handler.ExportDailySales)
	group.GET("/brand-sales", handler.BrandSales)
}
