package v1

import (
	"github.com/gin-gonic/gin"

	"shopstock/internal/infrastructure/http/v1/middleware"
)

// CRUDRouteHandler defines the interface for resource handlers.
// Batch and sale handlers implement these methods.
type CRUDRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterCRUDRoutes registers standard CRUD routes for a resource, all
// gated by page.
//
// Usage:
//
//	handler := handlers.NewBatchHandler(baseHandler, cfg.Batches)
//	RegisterCRUDRoutes(rg.Group("/batches"), handler, appctx.PageStock)
func RegisterCRUDRoutes(group *gin.RouterGroup, handler CRUDRouteHandler, page string) {
	group.Use(middleware.RequirePage(page))
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)
}
