package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType is the kind of in-app notification
type NotificationType string

const (
	NotificationReceiptGenerated NotificationType = "receipt_generated"
	NotificationReceiptSent      NotificationType = "receipt_sent"
	NotificationReceiptViewed    NotificationType = "receipt_viewed"
	NotificationEmailFailed      NotificationType = "email_failed"
)

// Notification is an in-app message created from a lifecycle transition
type Notification struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Type    NotificationType `gorm:"size:50;not null" json:"type"`
	Title   string           `gorm:"size:255;not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`

	ResourceType string     `gorm:"size:50" json:"resource_type,omitempty"`
	ResourceID   *uuid.UUID `gorm:"type:uuid" json:"resource_id,omitempty"`

	Read   bool       `gorm:"default:false;index" json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	// Linked outbound email attempt, when one was enqueued
	EmailLogID *uuid.UUID `gorm:"type:uuid" json:"email_log_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new notification
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
