package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the owner of receipts and tokens. Authentication flows live
// outside this service; the record exists for actor identity, customer
// snapshots and ownership checks.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FullName     string    `gorm:"size:255;not null" json:"full_name"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`

	Role   string `gorm:"size:50;default:user" json:"role"`
	Active bool   `gorm:"default:true" json:"active"`

	Phone   string `gorm:"size:20" json:"phone,omitempty"`
	Address string `gorm:"type:text" json:"address,omitempty"`
	GSTIN   string `gorm:"size:20" json:"gstin,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsAdmin checks if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
