package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finveo/invoiceflow-api/internal/domain/enum"
)

// Receipt represents a payment receipt issued from a confirmed payment.
// Customer and company fields are value snapshots copied at creation time;
// later edits to the source records never retroactively alter an issued
// receipt. Past Draft the record is immutable except through lifecycle
// transitions and is never physically deleted.
type Receipt struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptNumber string             `gorm:"size:50;unique;not null;index" json:"receipt_number"`
	ReceiptType   enum.ReceiptType   `gorm:"not null" json:"receipt_type"`
	Status        enum.ReceiptStatus `gorm:"default:0;index" json:"status"`

	// Serializes lifecycle transitions for a single receipt. Compare-and-swap
	// on update; a mismatch means a concurrent writer won.
	Version int `gorm:"default:1" json:"-"`

	// Informational references back to the originating records
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PaymentID      *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"payment_id,omitempty"`
	SubscriptionID *uuid.UUID `gorm:"type:uuid;index" json:"subscription_id,omitempty"`
	InvoiceID      *uuid.UUID `gorm:"type:uuid;index" json:"invoice_id,omitempty"`

	ReceiptDate time.Time  `gorm:"not null" json:"receipt_date"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`

	// Computed totals, 2dp half-up at storage. Invariants:
	// taxable_amount == sub_total - total_discount
	// grand_total == taxable_amount + total_tax
	SubTotal      decimal.Decimal `gorm:"type:numeric(15,2)" json:"sub_total"`
	TotalDiscount decimal.Decimal `gorm:"type:numeric(15,2)" json:"total_discount"`
	TaxableAmount decimal.Decimal `gorm:"type:numeric(15,2)" json:"taxable_amount"`
	CGSTAmount    decimal.Decimal `gorm:"type:numeric(15,2)" json:"cgst_amount"`
	SGSTAmount    decimal.Decimal `gorm:"type:numeric(15,2)" json:"sgst_amount"`
	IGSTAmount    decimal.Decimal `gorm:"type:numeric(15,2)" json:"igst_amount"`
	TotalTax      decimal.Decimal `gorm:"type:numeric(15,2)" json:"total_tax"`
	GrandTotal    decimal.Decimal `gorm:"type:numeric(15,2)" json:"grand_total"`

	Currency       string `gorm:"size:3;default:INR" json:"currency"`
	CurrencySymbol string `gorm:"size:5;default:₹" json:"currency_symbol"`

	PaymentMethod string `gorm:"size:50" json:"payment_method,omitempty"`
	TransactionID string `gorm:"size:100" json:"transaction_id,omitempty"`

	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// Customer snapshot
	CustomerName    string `gorm:"size:255;not null" json:"customer_name"`
	CustomerEmail   string `gorm:"size:255;not null" json:"customer_email"`
	CustomerPhone   string `gorm:"size:20" json:"customer_phone,omitempty"`
	CustomerAddress string `gorm:"type:text" json:"customer_address,omitempty"`
	CustomerGSTIN   string `gorm:"size:20" json:"customer_gstin,omitempty"`

	// Issuing-company snapshot
	CompanyName    string `gorm:"size:255" json:"company_name,omitempty"`
	CompanyAddress string `gorm:"type:text" json:"company_address,omitempty"`
	CompanyGSTIN   string `gorm:"size:20" json:"company_gstin,omitempty"`
	CompanyPAN     string `gorm:"size:20" json:"company_pan,omitempty"`

	// PDF artifact
	PDFGenerated   bool       `gorm:"default:false" json:"pdf_generated"`
	PDFFilePath    string     `gorm:"size:500" json:"-"`
	PDFGeneratedAt *time.Time `json:"pdf_generated_at,omitempty"`

	// Email tracking (delivery confirmation lives in EmailLog)
	EmailSent   bool       `gorm:"default:false" json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	EmailSentTo string     `gorm:"size:255" json:"email_sent_to,omitempty"`

	// Admin review: an orthogonal annotation, not part of the state machine
	AdminReviewed   bool       `gorm:"default:false" json:"admin_reviewed"`
	AdminReviewedBy *uuid.UUID `gorm:"type:uuid" json:"admin_reviewed_by,omitempty"`
	AdminReviewedAt *time.Time `json:"admin_reviewed_at,omitempty"`
	AdminApproved   bool       `gorm:"default:false" json:"admin_approved"`
	AdminNotes      string     `gorm:"type:text" json:"admin_notes,omitempty"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updated_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relationships
	Items []ReceiptItem `gorm:"foreignKey:ReceiptID" json:"items,omitempty"`
}

// BeforeCreate generates a UUID before creating a new receipt
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}

// FormattedNumber returns the display form of the receipt number
func (r *Receipt) FormattedNumber() string {
	return "RCP-" + r.ReceiptNumber
}

// IsPDFAvailable checks if a generated artifact exists for this receipt
func (r *Receipt) IsPDFAvailable() bool {
	return r.PDFGenerated && r.PDFFilePath != ""
}

// TotalsReconcile verifies the stored totals invariants to 2 decimal places.
// A false result is an integrity violation, never silently corrected.
func (r *Receipt) TotalsReconcile() bool {
	taxable := r.SubTotal.Sub(r.TotalDiscount).Round(2)
	grand := r.TaxableAmount.Add(r.TotalTax).Round(2)
	return taxable.Equal(r.TaxableAmount) && grand.Equal(r.GrandTotal)
}

// ReceiptItem is a line item owned exclusively by its receipt.
// Immutable once the receipt leaves Draft.
type ReceiptItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index" json:"receipt_id"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	HSNCode     string `gorm:"size:20" json:"hsn_code,omitempty"`
	Unit        string `gorm:"size:20;default:Nos" json:"unit"`

	Quantity decimal.Decimal `gorm:"type:numeric(10,3);not null" json:"quantity"`
	Rate     decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"rate"`

	// Discount is either a percentage or a fixed amount; percentage wins ties
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2)" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:numeric(15,2)" json:"discount_amount"`

	TaxRate decimal.Decimal `gorm:"type:numeric(5,2)" json:"tax_rate"`

	// Derived amounts, 2dp half-up at storage
	LineTotal     decimal.Decimal `gorm:"type:numeric(15,2)" json:"line_total"`
	TaxableAmount decimal.Decimal `gorm:"type:numeric(15,2)" json:"taxable_amount"`
	CGSTAmount    decimal.Decimal `gorm:"type:numeric(15,2)" json:"cgst_amount"`
	SGSTAmount    decimal.Decimal `gorm:"type:numeric(15,2)" json:"sgst_amount"`
	IGSTAmount    decimal.Decimal `gorm:"type:numeric(15,2)" json:"igst_amount"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(15,2)" json:"tax_amount"`
	GrandTotal    decimal.Decimal `gorm:"type:numeric(15,2)" json:"grand_total"`

	SortOrder int `gorm:"default:0" json:"sort_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new receipt item
func (i *ReceiptItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ReceiptItem model
func (ReceiptItem) TableName() string {
	return "receipt_items"
}
