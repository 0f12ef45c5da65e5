package request

import "github.com/shopspring/decimal"

// ReceiptItemRequest represents one line item in a receipt request
type ReceiptItemRequest struct {
	Name               string          `json:"name" binding:"required,max=255"`
	Description        string          `json:"description" binding:"omitempty"`
	HSNCode            string          `json:"hsn_code" binding:"omitempty,max=20"`
	Unit               string          `json:"unit" binding:"omitempty,max=20"`
	Quantity           decimal.Decimal `json:"quantity" binding:"required"`
	Rate               decimal.Decimal `json:"rate" binding:"required"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	SortOrder          int             `json:"sort_order"`
}

// CreateReceiptRequest represents a manual receipt creation request
type CreateReceiptRequest struct {
	Title         string               `json:"title" binding:"omitempty,max=255"`
	Description   string               `json:"description" binding:"omitempty"`
	ReceiptType   string               `json:"receipt_type" binding:"omitempty,oneof=SubscriptionPayment InvoicePayment Refund Adjustment"`
	InterState    bool                 `json:"inter_state"`
	Currency      string               `json:"currency" binding:"omitempty,len=3"`
	PaymentMethod string               `json:"payment_method" binding:"omitempty,max=50"`
	TransactionID string               `json:"transaction_id" binding:"omitempty,max=100"`
	Items         []ReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateReceiptRequest represents a draft receipt update request
type UpdateReceiptRequest struct {
	Title       string               `json:"title" binding:"omitempty,max=255"`
	Description string               `json:"description" binding:"omitempty"`
	InterState  bool                 `json:"inter_state"`
	Items       []ReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SendReceiptRequest represents a request to email a receipt
type SendReceiptRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

// ReviewReceiptRequest represents an admin review annotation
type ReviewReceiptRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes" binding:"omitempty,max=2000"`
}
