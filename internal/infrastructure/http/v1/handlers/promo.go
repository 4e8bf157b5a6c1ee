package handlers

import (
	"github.com/gin-gonic/gin"

	"lotix/internal/domain/promo"
	"lotix/internal/infrastructure/http/v1/dto"
)

// PromoHandler handles promo rule requests.
type PromoHandler struct {
	*BaseHandler
	service *promo.Service
}

// NewPromoHandler creates a promo rule handler.
func NewPromoHandler(base *BaseHandler, service *promo.Service) *PromoHandler {
	return &PromoHandler{BaseHandler: base, service: service}
}

// Create handles POST /catalog/promo-rules.
func (h *PromoHandler) Create(c *gin.Context) {
	var req dto.CreatePromoRuleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rule := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), rule); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, rule)
}

// Get handles GET /catalog/promo-rules/:id.
func (h *PromoHandler) Get(c *gin.Context) {
	ruleID, ok := h.ParseID(c)
	if !ok {
		return
	}

	rule, err := h.service.GetByID(c.Request.Context(), ruleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rule)
}

// Update handles PUT /catalog/promo-rules/:id.
func (h *PromoHandler) Update(c *gin.Context) {
	ruleID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.UpdatePromoRuleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rule, err := h.service.GetByID(c.Request.Context(), ruleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(rule)

	if err := h.service.Update(c.Request.Context(), rule); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rule)
}

// List handles GET /catalog/promo-rules. Only active rules are listed.
func (h *PromoHandler) List(c *gin.Context) {
	rules, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": rules})
}

// RegisterRoutes registers promo rule routes.
func (h *PromoHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
}
