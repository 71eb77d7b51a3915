package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nyumba/nyumba-api/internal/middleware"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	receiptService *services.ReceiptService
	exportService  *services.ExportService
}

func NewPaymentHandler(
	paymentService *services.PaymentService,
	receiptService *services.ReceiptService,
	exportService *services.ExportService,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		receiptService: receiptService,
		exportService:  exportService,
	}
}

// @Summary List Payments
// @Description Get a paginated list of payments
// @Tags Payments
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param lease_id query string false "Filter by lease"
// @Param method query string false "Filter by payment method"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if query.PerPage > 100 {
		query.PerPage = 100
	}
	query.Filters["status"] = c.Query("status")
	query.Filters["lease_id"] = c.Query("lease_id")
	query.Filters["method"] = c.Query("method")
	query.Search = c.Query("search")

	payments, total, err := h.paymentService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Show Payment
// @Description Get a single payment with its lease and tenant
// @Tags Payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} models.PaymentResponse
// @Security BearerAuth
// @Router /payments/{id} [get]
func (h *PaymentHandler) Show(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	payment, err := h.paymentService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment.ToResponse())
}

type initiatePaymentRequest struct {
	InvoiceID  uint   `json:"invoice_id" binding:"required"`
	Amount     int64  `json:"amount"`
	PayerPhone string `json:"payer_phone" binding:"required"`
}

// @Summary Initiate Payment
// @Description Start a mobile money collection for an invoice
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment body initiatePaymentRequest true "Payment request"
// @Success 202 {object} models.PaymentResponse
// @Security BearerAuth
// @Router /payments/momo/initiate [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.paymentService.Initiate(c.Request.Context(), services.InitiatePaymentCommand{
		InvoiceID:  req.InvoiceID,
		Amount:     req.Amount,
		PayerPhone: req.PayerPhone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, payment.ToResponse())
}

type recordPaymentRequest struct {
	InvoiceID uint    `json:"invoice_id" binding:"required"`
	Amount    int64   `json:"amount" binding:"required"`
	Method    string  `json:"method" binding:"required"`
	DatePaid  string  `json:"date_paid"`
	Notes     *string `json:"notes"`
}

// @Summary Record Payment
// @Description Record a cash or bank payment against an invoice
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment body recordPaymentRequest true "Payment details"
// @Success 201 {object} models.PaymentResponse
// @Security BearerAuth
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req recordPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var datePaid time.Time
	if req.DatePaid != "" {
		var err error
		datePaid, err = time.Parse("2006-01-02", req.DatePaid)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date_paid must have format YYYY-MM-DD"})
			return
		}
	}

	recordedBy := middleware.GetUserID(c)

	payment, err := h.paymentService.RecordManual(c.Request.Context(), services.RecordPaymentCommand{
		InvoiceID:  req.InvoiceID,
		Amount:     req.Amount,
		Method:     req.Method,
		DatePaid:   datePaid,
		Notes:      req.Notes,
		RecordedBy: recordedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment.ToResponse())
}

type refundRequest struct {
	Amount int64 `json:"amount"`
}

// @Summary Refund Payment
// @Description Request a refund of a successful mobile money payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Param refund body refundRequest false "Refund amount, defaults to the full payment"
// @Success 202 {object} models.PaymentResponse
// @Security BearerAuth
// @Router /payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req refundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	payment, err := h.paymentService.RequestRefund(c.Request.Context(), uint(id), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, payment.ToResponse())
}

// @Summary Payment Status
// @Description Poll the settlement state of a payment
// @Tags Payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} map[string]interface{}
// @Router /payments/{id}/status [get]
func (h *PaymentHandler) Status(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	payment, err := h.paymentService.StatusByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":    payment.ID,
		"status":        payment.Status,
		"refund_status": payment.RefundStatus,
		"amount":        payment.Amount,
		"currency":      payment.Currency,
	})
}

// @Summary Download Receipt
// @Description Download the PDF receipt of a settled payment
// @Tags Payments
// @Produce application/pdf
// @Param id path int true "Payment ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /payments/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	payment, err := h.paymentService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	if payment.ReceiptPath == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not generated yet"})
		return
	}

	fullPath, err := h.receiptService.ReceiptPath(*payment.ReceiptPath)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt_%s.pdf", payment.ReceiptNumber))
	c.File(fullPath)
}

// @Summary Export Payments
// @Description Download the payment register as CSV
// @Tags Payments
// @Produce text/csv
// @Param status query string false "Filter by status"
// @Param lease_id query string false "Filter by lease"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /payments/export [get]
func (h *PaymentHandler) Export(c *gin.Context) {
	filters := map[string]string{
		"status":   c.Query("status"),
		"lease_id": c.Query("lease_id"),
		"method":   c.Query("method"),
	}

	data, filename, err := h.exportService.PaymentsCSV(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
