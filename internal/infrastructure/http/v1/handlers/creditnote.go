package handlers

import (
	"github.com/gin-gonic/gin"

	"lotix/internal/core/entity"
	"lotix/internal/domain/documents/creditnote"
	"lotix/internal/infrastructure/http/v1/dto"
)

// CreditNoteHandler handles credit note requests.
type CreditNoteHandler struct {
	*BaseHandler
	service *creditnote.Service
}

// NewCreditNoteHandler creates a credit note handler.
func NewCreditNoteHandler(base *BaseHandler, service *creditnote.Service) *CreditNoteHandler {
	return &CreditNoteHandler{BaseHandler: base, service: service}
}

// Create handles POST /document/credit-notes.
func (h *CreditNoteHandler) Create(c *gin.Context) {
	var req dto.CreateCreditNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cn := req.ToEntity()
	if err := h.service.CreateDraft(c.Request.Context(), cn); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, cn)
}

// Get handles GET /document/credit-notes/:id.
func (h *CreditNoteHandler) Get(c *gin.Context) {
	creditNoteID, ok := h.ParseID(c)
	if !ok {
		return
	}

	cn, err := h.service.GetByID(c.Request.Context(), creditNoteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cn)
}

// Commit handles POST /document/credit-notes/:id/commit.
func (h *CreditNoteHandler) Commit(c *gin.Context) {
	creditNoteID, ok := h.ParseID(c)
	if !ok {
		return
	}

	cn, err := h.service.Commit(c.Request.Context(), creditNoteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cn)
}

// List handles GET /document/credit-notes.
func (h *CreditNoteHandler) List(c *gin.Context) {
	filter := creditnote.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if status := c.Query("status"); status != "" {
		s := entity.Status(status)
		filter.Status = &s
	}
	if c.Query("saleId") != "" {
		parsed, ok := h.ParseIDQuery(c, "saleId")
		if !ok {
			return
		}
		filter.SaleID = &parsed
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

// RegisterRoutes registers credit note routes.
func (h *CreditNoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/commit", h.Commit)
}
