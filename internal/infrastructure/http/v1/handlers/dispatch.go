package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"lotix/internal/domain/dispatch"
)

// DispatchHandler handles picking list requests.
type DispatchHandler struct {
	*BaseHandler
	service *dispatch.Service
}

// NewDispatchHandler creates a dispatch handler.
func NewDispatchHandler(base *BaseHandler, service *dispatch.Service) *DispatchHandler {
	return &DispatchHandler{BaseHandler: base, service: service}
}

// List handles GET /dispatch?date=YYYY-MM-DD. Defaults to today.
func (h *DispatchHandler) List(c *gin.Context) {
	datePtr, ok := h.ParseDateQuery(c, "date")
	if !ok {
		return
	}
	date := time.Now().UTC()
	if datePtr != nil {
		date = *datePtr
	}

	list, err := h.service.BuildList(c.Request.Context(), date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, list)
}

// RegisterRoutes registers dispatch routes.
func (h *DispatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}
