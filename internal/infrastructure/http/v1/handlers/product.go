package handlers

import (
	"github.com/gin-gonic/gin"

	"lotix/internal/domain/catalogs/product"
	"lotix/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles product catalog requests.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// Create handles POST /catalog/products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// Get handles GET /catalog/products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Update handles PUT /catalog/products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(p)

	if err := h.service.Update(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// List handles GET /catalog/products.
func (h *ProductHandler) List(c *gin.Context) {
	filter := product.ListFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": items})
}

// RegisterRoutes registers product routes.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
}
