package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"lotix/internal/core/apperror"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
)

// StockHandler exposes read-only stock views: availability, batch
// breakdown, and allocation previews.
type StockHandler struct {
	*BaseHandler
	products  *product.Service
	store     batch.Store
	allocator *allocation.Engine
}

// NewStockHandler creates a stock handler.
func NewStockHandler(base *BaseHandler, products *product.Service, store batch.Store, allocator *allocation.Engine) *StockHandler {
	return &StockHandler{BaseHandler: base, products: products, store: store, allocator: allocator}
}

// Availability handles GET /stock/:id.
func (h *StockHandler) Availability(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.products.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	total, err := h.store.TotalStock(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"productId":   p.ID,
		"productCode": p.Code,
		"productName": p.Name,
		"totalBase":   total,
		"split":       p.Split(total),
		"belowMin":    total <= p.MinStock,
	})
}

// Batches handles GET /stock/:id/batches. Batches are returned in
// allocation priority order, exhausted ones last.
func (h *StockHandler) Batches(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.products.GetByID(ctx, productID); err != nil {
		h.Error(c, err)
		return
	}
	batches, err := h.store.BatchesFor(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	batch.OrderByExpirationAsc(batches)

	live := make([]*batch.Batch, 0, len(batches))
	exhausted := make([]*batch.Batch, 0)
	for _, b := range batches {
		if b.HasStock() {
			live = append(live, b)
		} else {
			exhausted = append(exhausted, b)
		}
	}

	h.OK(c, gin.H{"items": append(live, exhausted...)})
}

// Plan handles GET /stock/:id/plan?qty=N. It previews which batches an
// allocation of qty base units would draw from, without debiting anything.
func (h *StockHandler) Plan(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	qty, err := strconv.ParseInt(c.Query("qty"), 10, 64)
	if err != nil {
		h.Error(c, apperror.NewValidation("qty must be an integer").WithDetail("param", "qty"))
		return
	}

	plan, err := h.allocator.Plan(c.Request.Context(), productID, types.Quantity(qty))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{
		"productId": productID,
		"required":  qty,
		"draws":     plan,
	})
}

// RegisterRoutes registers stock routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Availability)
	rg.GET("/:id/batches", h.Batches)
	rg.GET("/:id/plan", h.Plan)
}
