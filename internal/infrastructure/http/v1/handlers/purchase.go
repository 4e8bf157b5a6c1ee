package handlers

import (
	"github.com/gin-gonic/gin"

	"lotix/internal/core/entity"
	"lotix/internal/domain/documents/purchase"
	"lotix/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler handles purchase document requests.
type PurchaseHandler struct {
	*BaseHandler
	service *purchase.Service
}

// NewPurchaseHandler creates a purchase handler.
func NewPurchaseHandler(base *BaseHandler, service *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, service: service}
}

// Create handles POST /document/purchases.
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.service.CreateDraft(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// Get handles GET /document/purchases/:id.
func (h *PurchaseHandler) Get(c *gin.Context) {
	purchaseID, ok := h.ParseID(c)
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Update handles PUT /document/purchases/:id. Drafts are updated in
// place; committed purchases go through the edit flow, which reverses
// and re-applies the receipt.
func (h *PurchaseHandler) Update(c *gin.Context) {
	purchaseID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.UpdatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	p, err := h.service.GetByID(ctx, purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(p)

	if p.Status == entity.StatusDraft {
		if err := h.service.UpdateDraft(ctx, p); err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, p)
		return
	}

	edited, err := h.service.Edit(ctx, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, edited)
}

// Commit handles POST /document/purchases/:id/commit.
func (h *PurchaseHandler) Commit(c *gin.Context) {
	purchaseID, ok := h.ParseID(c)
	if !ok {
		return
	}

	p, err := h.service.Commit(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Void handles POST /document/purchases/:id/void.
func (h *PurchaseHandler) Void(c *gin.Context) {
	purchaseID, ok := h.ParseID(c)
	if !ok {
		return
	}

	p, err := h.service.Void(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Pay handles POST /document/purchases/:id/pay.
func (h *PurchaseHandler) Pay(c *gin.Context) {
	purchaseID, ok := h.ParseID(c)
	if !ok {
		return
	}

	p, err := h.service.MarkPaid(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// List handles GET /document/purchases.
func (h *PurchaseHandler) List(c *gin.Context) {
	filter := purchase.ListFilter{
		Supplier: c.Query("supplier"),
		Limit:    h.ParseIntQuery(c, "limit", 50),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}
	if status := c.Query("status"); status != "" {
		s := entity.Status(status)
		filter.Status = &s
	}
	var ok bool
	if filter.FromDate, ok = h.ParseDateQuery(c, "dateFrom"); !ok {
		return
	}
	if filter.ToDate, ok = h.ParseDateQuery(c, "dateTo"); !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": items})
}

// RegisterRoutes registers purchase routes.
func (h *PurchaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/commit", h.Commit)
	rg.POST("/:id/void", h.Void)
	rg.POST("/:id/pay", h.Pay)
}
