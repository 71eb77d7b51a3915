package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/internal/services"
)

type InvoiceHandler struct {
	invoiceService *services.InvoiceService
	receiptService *services.ReceiptService
	exportService  *services.ExportService
}

func NewInvoiceHandler(
	invoiceService *services.InvoiceService,
	receiptService *services.ReceiptService,
	exportService *services.ExportService,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		receiptService: receiptService,
		exportService:  exportService,
	}
}

// @Summary List Invoices
// @Description Get a paginated list of invoices
// @Tags Invoices
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param lease_id query string false "Filter by lease"
// @Param period_label query string false "Filter by billing period (YYYY-MM)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if query.PerPage > 100 {
		query.PerPage = 100
	}
	query.Filters["status"] = c.Query("status")
	query.Filters["lease_id"] = c.Query("lease_id")
	query.Filters["period_label"] = c.Query("period_label")
	query.Search = c.Query("search")

	invoices, total, err := h.invoiceService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for i := range invoices {
		responses = append(responses, invoices[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Show Invoice
// @Description Get a single invoice with its lease, tenant and property
// @Tags Invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} models.InvoiceResponse
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Show(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	invoice, err := h.invoiceService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice.ToResponse())
}

// @Summary Invoice Document
// @Description Download the invoice as a PDF document
// @Tags Invoices
// @Produce application/pdf
// @Param id path int true "Invoice ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /invoices/{id}/document [get]
func (h *InvoiceHandler) Document(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	invoice, err := h.invoiceService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, err := h.receiptService.GenerateInvoiceDocument(c.Request.Context(), invoice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", invoice.Reference))
	c.Data(http.StatusOK, "application/pdf", pdf.Bytes())
}

// @Summary Export Invoices
// @Description Download the invoice register as CSV or XLSX
// @Tags Invoices
// @Produce text/csv
// @Param format query string false "Export format: csv or xlsx" default(csv)
// @Param status query string false "Filter by status"
// @Param period_label query string false "Filter by billing period"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /invoices/export [get]
func (h *InvoiceHandler) Export(c *gin.Context) {
	filters := map[string]string{
		"status":       c.Query("status"),
		"lease_id":     c.Query("lease_id"),
		"period_label": c.Query("period_label"),
	}

	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		data, filename, err = h.exportService.InvoicesXLSX(c.Request.Context(), filters)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "csv":
		data, filename, err = h.exportService.InvoicesCSV(c.Request.Context(), filters)
		contentType = "text/csv"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}
