package handlers

import (
	"github.com/gin-gonic/gin"

	"lotix/internal/core/entity"
	"lotix/internal/domain/documents/sale"
	"lotix/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles sale document requests.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Create handles POST /document/sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s := req.ToEntity()
	if err := h.service.CreateDraft(c.Request.Context(), s); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s)
}

// Get handles GET /document/sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseID(c)
	if !ok {
		return
	}

	s, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Update handles PUT /document/sales/:id. Committed sales go through
// the edit flow: credit back the old allocation, allocate the new lines.
func (h *SaleHandler) Update(c *gin.Context) {
	saleID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.UpdateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	s, err := h.service.GetByID(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(s)

	if s.Status == entity.StatusDraft {
		if err := h.service.UpdateDraft(ctx, s); err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, s)
		return
	}

	edited, err := h.service.Edit(ctx, s)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, edited)
}

// Commit handles POST /document/sales/:id/commit.
func (h *SaleHandler) Commit(c *gin.Context) {
	saleID, ok := h.ParseID(c)
	if !ok {
		return
	}

	s, err := h.service.Commit(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Void handles POST /document/sales/:id/void.
func (h *SaleHandler) Void(c *gin.Context) {
	saleID, ok := h.ParseID(c)
	if !ok {
		return
	}

	s, err := h.service.Void(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// List handles GET /document/sales.
func (h *SaleHandler) List(c *gin.Context) {
	filter := sale.ListFilter{
		Customer: c.Query("customer"),
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

// RegisterRoutes registers sale routes.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/commit", h.Commit)
	rg.POST("/:id/void", h.Void)
}
