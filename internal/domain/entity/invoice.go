package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a source record a receipt can be issued against. The receipt
// pipeline reads client details and line items from it but never writes back.
type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	InvoiceNumber string    `gorm:"size:50;unique;not null" json:"invoice_number"`

	Currency       string `gorm:"size:3;default:INR" json:"currency"`
	CurrencySymbol string `gorm:"size:5;default:₹" json:"currency_symbol"`

	// Inter-state supply books IGST; intra-state splits into CGST+SGST
	InterState bool `gorm:"default:false" json:"inter_state"`

	ClientName    string `gorm:"size:255;not null" json:"client_name"`
	ClientEmail   string `gorm:"size:255" json:"client_email,omitempty"`
	ClientPhone   string `gorm:"size:20" json:"client_phone,omitempty"`
	ClientAddress string `gorm:"type:text" json:"client_address,omitempty"`
	ClientGSTIN   string `gorm:"size:20" json:"client_gstin,omitempty"`

	SubTotal   decimal.Decimal `gorm:"type:numeric(15,2)" json:"sub_total"`
	TaxAmount  decimal.Decimal `gorm:"type:numeric(15,2)" json:"tax_amount"`
	GrandTotal decimal.Decimal `gorm:"type:numeric(15,2)" json:"grand_total"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// BeforeCreate generates a UUID before creating a new invoice
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceItem is a line item on a source invoice
type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`

	Name    string `gorm:"size:255;not null" json:"name"`
	HSNCode string `gorm:"size:20" json:"hsn_code,omitempty"`
	Unit    string `gorm:"size:20;default:Nos" json:"unit"`

	Quantity           decimal.Decimal `gorm:"type:numeric(10,3);not null" json:"quantity"`
	Rate               decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"rate"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2)" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:numeric(15,2)" json:"discount_amount"`
	TaxRate            decimal.Decimal `gorm:"type:numeric(5,2)" json:"tax_rate"`

	SortOrder int `gorm:"default:0" json:"sort_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new invoice item
func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the InvoiceItem model
func (InvoiceItem) TableName() string {
	return "invoice_items"
}
