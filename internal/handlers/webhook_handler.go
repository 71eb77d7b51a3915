package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nyumba/nyumba-api/internal/metrics"
	"github.com/nyumba/nyumba-api/internal/services"
)

// WebhookHandler receives settlement callbacks from the mobile money
// gateway. Deliveries are at-least-once, so every endpoint tolerates
// replays and acknowledges unknown references without erroring; a 4xx
// would only make the gateway retry forever.
type WebhookHandler struct {
	paymentService *services.PaymentService
}

func NewWebhookHandler(paymentService *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{paymentService: paymentService}
}

type paymentWebhookRequest struct {
	ExternalID             string  `json:"externalId" binding:"required"`
	Status                 string  `json:"status" binding:"required"`
	FinancialTransactionID *string `json:"financialTransactionId"`
}

type refundWebhookRequest struct {
	ReferenceID string `json:"referenceId" binding:"required"`
	Status      string `json:"status" binding:"required"`
}

// @Summary Payment Webhook
// @Description Receives payment settlement callbacks from the mobile money gateway
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /payments/momo/webhook [post]
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	result, err := h.paymentService.HandleGatewayWebhook(c.Request.Context(), req.ExternalID, req.Status, req.FinancialTransactionID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			metrics.ObserveWebhook("payment", "not_found")
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Payment not found"})
			return
		}
		if errors.Is(err, services.ErrUnhandledStatus) {
			metrics.ObserveWebhook("payment", "error")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		metrics.ObserveWebhook("payment", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.AlreadyProcessed {
		metrics.ObserveWebhook("payment", "replay")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Already processed"})
		return
	}

	metrics.ObserveWebhook("payment", "settled")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment": result.Payment.ToResponse(),
	})
}

// @Summary Refund Webhook
// @Description Receives refund settlement callbacks from the mobile money gateway
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /payments/momo/refund-webhook [post]
func (h *WebhookHandler) RefundWebhook(c *gin.Context) {
	var req refundWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	result, err := h.paymentService.HandleRefundWebhook(c.Request.Context(), req.ReferenceID, req.Status)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			metrics.ObserveWebhook("refund", "not_found")
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Refund not found"})
			return
		}
		if errors.Is(err, services.ErrUnhandledStatus) {
			metrics.ObserveWebhook("refund", "error")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		metrics.ObserveWebhook("refund", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.AlreadyProcessed {
		metrics.ObserveWebhook("refund", "replay")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Already processed"})
		return
	}

	metrics.ObserveWebhook("refund", "settled")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment": result.Payment.ToResponse(),
	})
}
