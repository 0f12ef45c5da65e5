package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	domainRepo "github.com/finveo/invoiceflow-api/internal/domain/repository"
)

type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *gorm.DB) domainRepo.SequenceRepository {
	return &sequenceRepository{db: db}
}

// NextValue advances and returns the period sequence in one statement.
// The upsert RETURNING pattern makes the increment atomic inside Postgres:
// concurrent callers serialize on the row and each sees a distinct value,
// regardless of how many application instances are running.
func (r *sequenceRepository) NextValue(ctx context.Context, periodKey string) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO receipt_sequences (period_key, last_value, created_at, updated_at)
		VALUES (?, 1, NOW(), NOW())
		ON CONFLICT (period_key)
		DO UPDATE SET last_value = receipt_sequences.last_value + 1, updated_at = NOW()
		RETURNING last_value`, periodKey).
		Scan(&next).Error
	return next, err
}

func (r *sequenceRepository) Current(ctx context.Context, periodKey string) (int64, error) {
	var seq entity.ReceiptSequence
	err := r.db.WithContext(ctx).First(&seq, "period_key = ?", periodKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return seq.LastValue, err
}
