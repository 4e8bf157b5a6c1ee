// Package v1 wires the HTTP surface: middleware chain, route groups, and
// handler construction.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/dispatch"
	"lotix/internal/domain/documents/creditnote"
	"lotix/internal/domain/documents/purchase"
	"lotix/internal/domain/documents/sale"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/promo"
	"lotix/internal/domain/reports"
	"lotix/internal/infrastructure/http/v1/handlers"
	"lotix/internal/infrastructure/http/v1/middleware"
	"lotix/pkg/logger"
)

// RouterConfig carries the constructed services the router exposes.
type RouterConfig struct {
	Logger *logger.Logger

	Products    *product.Service
	Purchases   *purchase.Service
	Sales       *sale.Service
	CreditNotes *creditnote.Service
	Promos      *promo.Service
	Reports     *reports.Service
	Dispatch    *dispatch.Service

	BatchStore batch.Store
	Allocator  *allocation.Engine

	// Pinger backs the readiness probe; nil for the in-memory store.
	Pinger handlers.Pinger
}

// NewRouter builds the Gin engine with the full middleware chain and all
// API v1 routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.Recovery(),
		middleware.Trace(),
		middleware.Logger(cfg.Logger),
		middleware.Metrics(),
		middleware.ErrorHandler(),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	base := handlers.NewBaseHandler()

	health := handlers.NewHealthHandler(cfg.Pinger)
	health.RegisterRoutes(r.Group("/health"))

	api := r.Group("/api/v1")

	handlers.NewProductHandler(base, cfg.Products).
		RegisterRoutes(api.Group("/catalog/products"))
	handlers.NewPromoHandler(base, cfg.Promos).
		RegisterRoutes(api.Group("/catalog/promo-rules"))

	handlers.NewPurchaseHandler(base, cfg.Purchases).
		RegisterRoutes(api.Group("/document/purchases"))
	handlers.NewSaleHandler(base, cfg.Sales).
		RegisterRoutes(api.Group("/document/sales"))
	handlers.NewCreditNoteHandler(base, cfg.CreditNotes).
		RegisterRoutes(api.Group("/document/credit-notes"))

	handlers.NewStockHandler(base, cfg.Products, cfg.BatchStore, cfg.Allocator).
		RegisterRoutes(api.Group("/stock"))
	handlers.NewReportsHandler(base, cfg.Reports).
		RegisterRoutes(api.Group("/reports"))
	handlers.NewDispatchHandler(base, cfg.Dispatch).
		RegisterRoutes(api.Group("/dispatch"))

	return r
}
