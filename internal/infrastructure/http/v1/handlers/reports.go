package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lotix/internal/domain/reports"
)

// ReportsHandler handles report generation and exports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// Kardex handles GET /reports/kardex/:id?dateFrom=&dateTo=.
func (h *ReportsHandler) Kardex(c *gin.Context) {
	report, ok := h.buildKardex(c)
	if !ok {
		return
	}
	h.OK(c, report)
}

// KardexExport handles GET /reports/kardex/:id/export. The report rows
// are streamed as zstd-compressed NDJSON.
func (h *ReportsHandler) KardexExport(c *gin.Context) {
	report, ok := h.buildKardex(c)
	if !ok {
		return
	}

	filename := fmt.Sprintf("kardex-%s-%s.ndjson.zst",
		report.ProductCode, report.To.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/zstd")
	c.Status(http.StatusOK)

	if err := reports.ExportKardexNDJSON(c.Writer, report); err != nil {
		// Headers are already out; all we can do is log via the error chain.
		_ = c.Error(err)
	}
}

// Valuation handles GET /reports/valuation.
func (h *ReportsHandler) Valuation(c *gin.Context) {
	report, err := h.service.Valuation(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// ValuationExport handles GET /reports/valuation/export, returning the
// valuation as an Excel workbook.
func (h *ReportsHandler) ValuationExport(c *gin.Context) {
	report, err := h.service.Valuation(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	buf, err := reports.ExportValuationXLSX(report)
	if err != nil {
		h.Error(c, err)
		return
	}

	filename := fmt.Sprintf("valuation-%s.xlsx", report.GeneratedAt.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

func (h *ReportsHandler) buildKardex(c *gin.Context) (*reports.KardexReport, bool) {
	productID, ok := h.ParseID(c)
	if !ok {
		return nil, false
	}

	fromPtr, ok := h.ParseDateQuery(c, "dateFrom")
	if !ok {
		return nil, false
	}
	toPtr, ok := h.ParseDateQuery(c, "dateTo")
	if !ok {
		return nil, false
	}

	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now
	if fromPtr != nil {
		from = *fromPtr
	}
	if toPtr != nil {
		// Make the bound inclusive of the whole day.
		to = toPtr.Add(24*time.Hour - time.Nanosecond)
	}

	report, err := h.service.Kardex(c.Request.Context(), productID, from, to)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return report, true
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/kardex/:id", h.Kardex)
	rg.GET("/kardex/:id/export", h.KardexExport)
	rg.GET("/valuation", h.Valuation)
	rg.GET("/valuation/export", h.ValuationExport)
}
