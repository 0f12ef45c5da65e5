package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SecureDownloadToken grants time- and count-bounded access to a generated
// receipt PDF. Only the SHA-256 digest of the raw token is ever persisted;
// the raw value is returned exactly once at issuance.
type SecureDownloadToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ReceiptID uuid.UUID `gorm:"type:uuid;not null;index" json:"receipt_id"`

	TokenHash string `gorm:"size:64;not null;uniqueIndex" json:"-"`

	IssuedAt      time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt     time.Time `gorm:"not null;index" json:"expires_at"`
	MaxDownloads  int       `gorm:"default:5" json:"max_downloads"`
	DownloadCount int       `gorm:"default:0" json:"download_count"`

	// Revocation force-expires a token early; it is never resurrected
	Revoked   bool       `gorm:"default:false" json:"revoked"`
	RevokedBy *uuid.UUID `gorm:"type:uuid" json:"revoked_by,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`

	FirstAccessedAt *time.Time `json:"first_accessed_at,omitempty"`
	LastAccessedAt  *time.Time `json:"last_accessed_at,omitempty"`
	LastAccessIP    string     `gorm:"size:45" json:"last_access_ip,omitempty"`
	LastAccessAgent string     `gorm:"size:500" json:"last_access_agent,omitempty"`

	SentToEmail string     `gorm:"size:255" json:"sent_to_email,omitempty"`
	EmailLogID  *uuid.UUID `gorm:"type:uuid" json:"email_log_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new token
func (t *SecureDownloadToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SecureDownloadToken model
func (SecureDownloadToken) TableName() string {
	return "secure_download_tokens"
}

// IsExpired checks whether the token is past its expiry or revoked
func (t *SecureDownloadToken) IsExpired(now time.Time) bool {
	return t.Revoked || !now.Before(t.ExpiresAt)
}

// IsExhausted checks whether the download budget is spent
func (t *SecureDownloadToken) IsExhausted() bool {
	return t.DownloadCount >= t.MaxDownloads
}
