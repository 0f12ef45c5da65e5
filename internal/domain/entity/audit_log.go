package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finveo/invoiceflow-api/internal/domain/enum"
)

// AuditAction is the kind of state-changing operation being recorded
type AuditAction string

const (
	AuditReceiptCreated      AuditAction = "receipt_created"
	AuditReceiptUpdated      AuditAction = "receipt_updated"
	AuditReceiptDeleted      AuditAction = "receipt_deleted"
	AuditReceiptPDFGenerated AuditAction = "receipt_pdf_generated"
	AuditReceiptSent         AuditAction = "receipt_sent"
	AuditReceiptViewed       AuditAction = "receipt_viewed"
	AuditReceiptReviewed     AuditAction = "receipt_reviewed"

	AuditTokenIssued   AuditAction = "token_issued"
	AuditTokenRedeemed AuditAction = "token_redeemed"
	AuditTokenDenied   AuditAction = "token_denied"
	AuditTokenRevoked  AuditAction = "token_revoked"

	AuditPaymentConfirmed AuditAction = "payment_confirmed"
	AuditEmailDispatched  AuditAction = "email_dispatched"
	AuditEmailFailed      AuditAction = "email_failed"

	AuditRetentionSweep AuditAction = "audit_retention_sweep"
)

// AuditLog is an append-only record of a state-changing operation.
// Entries are never updated; the retention sweep is the only deletion path.
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	ActorID   *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	ActorType enum.ActorType `gorm:"default:2" json:"actor_type"`

	Action      AuditAction `gorm:"size:50;not null;index" json:"action"`
	Description string      `gorm:"size:500" json:"description,omitempty"`

	ResourceType string     `gorm:"size:50;index" json:"resource_type,omitempty"`
	ResourceID   *uuid.UUID `gorm:"type:uuid;index" json:"resource_id,omitempty"`

	Outcome      enum.AuditOutcome `gorm:"default:0" json:"outcome"`
	ErrorMessage string            `gorm:"type:text" json:"error_message,omitempty"`

	// JSON blob of before/after summary or extra context
	Metadata string `gorm:"type:text" json:"metadata,omitempty"`

	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent string `gorm:"size:500" json:"user_agent,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new audit entry
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
