package repository

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	domainRepo "github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
)

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) domainRepo.ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	err := r.db.WithContext(ctx).Create(receipt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// The allocator hands out each number exactly once; a collision here
		// means the numbering integrity is broken and the write must abort.
		log.Printf("CRITICAL: duplicate receipt number %s on insert", receipt.ReceiptNumber)
		return apperror.ErrDuplicateNumber
	}
	return err
}

func (r *receiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).First(&receipt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &receipt, err
}

func (r *receiptRepository) GetByNumber(ctx context.Context, receiptNumber string) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).First(&receipt, "receipt_number = ?", receiptNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &receipt, err
}

func (r *receiptRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).First(&receipt, "payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &receipt, err
}

func (r *receiptRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&receipt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &receipt, err
}

// UpdateVersioned writes the receipt guarded by its version column. The
// WHERE clause carries the version the caller loaded; zero rows affected
// means a concurrent writer got there first.
func (r *receiptRepository) UpdateVersioned(ctx context.Context, receipt *entity.Receipt) error {
	loadedVersion := receipt.Version
	receipt.Version = loadedVersion + 1

	res := r.db.WithContext(ctx).
		Model(&entity.Receipt{}).
		Where("id = ? AND version = ?", receipt.ID, loadedVersion).
		Select("*").
		Omit("id", "created_at", "Items").
		Updates(receipt)
	if res.Error != nil {
		receipt.Version = loadedVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		receipt.Version = loadedVersion
		return domainRepo.ErrVersionConflict
	}
	return nil
}

func (r *receiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.ReceiptItem{}, "receipt_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Receipt{}, "id = ?", id).Error
	})
}

func (r *receiptRepository) ReplaceItems(ctx context.Context, receiptID uuid.UUID, items []entity.ReceiptItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.ReceiptItem{}, "receipt_id = ?", receiptID).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].ID = uuid.Nil
			items[i].ReceiptID = receiptID
		}
		return tx.Create(&items).Error
	})
}

func (r *receiptRepository) List(ctx context.Context, params *domainRepo.ReceiptFilterParams) ([]entity.Receipt, int64, error) {
	var receipts []entity.Receipt
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Receipt{})

	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Type != nil {
		query = query.Where("receipt_type = ?", *params.Type)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.DateFrom != nil {
		query = query.Where("receipt_date >= ?", *params.DateFrom)
	}
	if params.DateTo != nil {
		query = query.Where("receipt_date <= ?", *params.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order("created_at DESC").
		Find(&receipts).Error

	return receipts, total, err
}

func (r *receiptRepository) Stats(ctx context.Context) (*domainRepo.ReceiptStats, error) {
	stats := &domainRepo.ReceiptStats{
		ByStatus:    make(map[string]int64),
		ByType:      make(map[string]int64),
		GrandTotals: make(map[string]decimal.Decimal),
	}

	if err := r.db.WithContext(ctx).Model(&entity.Receipt{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type statusRow struct {
		Status enum.ReceiptStatus
		Count  int64
	}
	var statusRows []statusRow
	if err := r.db.WithContext(ctx).Model(&entity.Receipt{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, err
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Status.String()] = row.Count
	}

	type typeRow struct {
		ReceiptType enum.ReceiptType
		Count       int64
	}
	var typeRows []typeRow
	if err := r.db.WithContext(ctx).Model(&entity.Receipt{}).
		Select("receipt_type, COUNT(*) AS count").
		Group("receipt_type").
		Scan(&typeRows).Error; err != nil {
		return nil, err
	}
	for _, row := range typeRows {
		stats.ByType[row.ReceiptType.String()] = row.Count
	}

	type totalRow struct {
		Currency string
		Total    decimal.Decimal
	}
	var totalRows []totalRow
	if err := r.db.WithContext(ctx).Model(&entity.Receipt{}).
		Select("currency, COALESCE(SUM(grand_total), 0) AS total").
		Group("currency").
		Scan(&totalRows).Error; err != nil {
		return nil, err
	}
	for _, row := range totalRows {
		stats.GrandTotals[row.Currency] = row.Total
	}

	return stats, nil
}
