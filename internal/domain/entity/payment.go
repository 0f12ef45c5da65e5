package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finveo/invoiceflow-api/internal/domain/enum"
)

// Payment is the record of a gateway payment event. The receipt pipeline
// only ever consumes payments whose status is Success.
type Payment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SubscriptionID *uuid.UUID `gorm:"type:uuid;index" json:"subscription_id,omitempty"`

	Amount   decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Currency string          `gorm:"size:3;default:INR" json:"currency"`

	Status enum.PaymentStatus `gorm:"default:0;index" json:"status"`
	Method string             `gorm:"size:50" json:"method,omitempty"`

	// Gateway identifiers
	TransactionID    string `gorm:"size:100;index" json:"transaction_id,omitempty"`
	GatewayPaymentID string `gorm:"size:100" json:"gateway_payment_id,omitempty"`

	PaymentDate *time.Time `json:"payment_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

// BeforeCreate generates a UUID before creating a new payment
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// Subscription links a user to a plan; receipts for subscription payments
// snapshot the plan name and amount at creation time.
type Subscription struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID uuid.UUID `gorm:"type:uuid;not null" json:"plan_id"`

	Active    bool       `gorm:"default:true" json:"active"`
	StartedAt time.Time  `json:"started_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Plan Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// BeforeCreate generates a UUID before creating a new subscription
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Subscription model
func (Subscription) TableName() string {
	return "subscriptions"
}

// Plan is a billable subscription plan
type Plan struct {
	ID     uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name   string          `gorm:"size:100;not null" json:"name"`
	Amount decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	// GST percentage applied on top of the plan amount
	TaxRate  decimal.Decimal `gorm:"type:numeric(5,2);default:18" json:"tax_rate"`
	Interval string          `gorm:"size:20;default:monthly" json:"interval"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new plan
func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Plan model
func (Plan) TableName() string {
	return "plans"
}
