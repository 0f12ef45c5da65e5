package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/application/service"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/dto/request"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/dto/response"
)

// WebhookHandler receives payment gateway callbacks
type WebhookHandler struct {
	paymentService *service.PaymentService
	signingSecret  string
}

// NewWebhookHandler creates a new webhook handler. signingSecret, when set,
// turns on HMAC verification of the X-Webhook-Signature header.
func NewWebhookHandler(paymentService *service.PaymentService, signingSecret string) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
		signingSecret:  signingSecret,
	}
}

// PaymentConfirmed handles POST /webhooks/payment. Gateways retry
// aggressively; the pipeline behind this endpoint is idempotent on the
// transaction ID, so replays return the same receipt.
func (h *WebhookHandler) PaymentConfirmed(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "Unable to read request body")
		return
	}

	if h.signingSecret != "" && !h.verifySignature(body, c.GetHeader("X-Webhook-Signature")) {
		response.Unauthorized(c, "Invalid webhook signature")
		return
	}

	var req request.PaymentWebhookRequest
	if err := bindJSON(body, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "Invalid user_id")
		return
	}

	input := &service.ConfirmPaymentInput{
		TransactionID:    req.TransactionID,
		GatewayPaymentID: req.GatewayPaymentID,
		UserID:           userID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Method:           req.Method,
		PaidAt:           req.PaidAt,
	}
	if req.SubscriptionID != "" {
		if id, err := uuid.Parse(req.SubscriptionID); err == nil {
			input.SubscriptionID = &id
		}
	}
	if req.InvoiceID != "" {
		if id, err := uuid.Parse(req.InvoiceID); err == nil {
			input.InvoiceID = &id
		}
	}

	receipt, err := h.paymentService.ConfirmPayment(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment processed", gin.H{
		"receipt_id":     receipt.ID,
		"receipt_number": receipt.FormattedNumber(),
		"status":         receipt.Status,
	})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
