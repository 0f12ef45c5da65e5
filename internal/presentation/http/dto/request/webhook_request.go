package request

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentWebhookRequest represents a verified gateway payment confirmation
type PaymentWebhookRequest struct {
	TransactionID    string          `json:"transaction_id" binding:"required,max=100"`
	GatewayPaymentID string          `json:"gateway_payment_id" binding:"omitempty,max=100"`
	UserID           string          `json:"user_id" binding:"required,uuid"`
	SubscriptionID   string          `json:"subscription_id" binding:"omitempty,uuid"`
	InvoiceID        string          `json:"invoice_id" binding:"omitempty,uuid"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Currency         string          `json:"currency" binding:"omitempty,len=3"`
	Method           string          `json:"method" binding:"omitempty,max=50"`
	PaidAt           *time.Time      `json:"paid_at"`
}
