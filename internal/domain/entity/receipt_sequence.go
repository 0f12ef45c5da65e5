package entity

import "time"

// ReceiptSequence holds the last allocated receipt number for one period
// bucket (calendar month by default). It is only ever advanced through the
// repository's atomic increment; no instance caches it in memory.
type ReceiptSequence struct {
	PeriodKey string `gorm:"size:10;primary_key" json:"period_key"`
	LastValue int64  `gorm:"not null;default:0" json:"last_value"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the ReceiptSequence model
func (ReceiptSequence) TableName() string {
	return "receipt_sequences"
}
