package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finveo/invoiceflow-api/internal/domain/enum"
)

// EmailLog tracks a single outbound email job and its delivery attempts.
// Delivery confirmation never gates the receipt state machine; the receipt
// moves to Sent on dispatch acceptance and this record tracks the rest.
type EmailLog struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	ReceiptID *uuid.UUID `gorm:"type:uuid;index" json:"receipt_id,omitempty"`

	ToEmail string `gorm:"size:255;not null" json:"to_email"`
	Subject string `gorm:"size:255;not null" json:"subject"`
	Body    string `gorm:"type:text" json:"-"`

	// Path of the PDF attachment, if any
	AttachmentPath string `gorm:"size:500" json:"-"`

	Status    enum.EmailStatus `gorm:"default:0;index" json:"status"`
	Attempts  int              `gorm:"default:0" json:"attempts"`
	LastError string           `gorm:"type:text" json:"last_error,omitempty"`

	// Permanent failures (e.g. invalid address) are terminal and are
	// surfaced to the owner as a failed-notification record
	Permanent bool `gorm:"default:false" json:"permanent"`

	SentAt   *time.Time `json:"sent_at,omitempty"`
	FailedAt *time.Time `json:"failed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new email log
func (e *EmailLog) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the EmailLog model
func (EmailLog) TableName() string {
	return "email_logs"
}
