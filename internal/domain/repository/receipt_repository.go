package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
)

// ErrVersionConflict is returned when an optimistic-lock update loses to a
// concurrent writer. Services retry a bounded number of times before
// surfacing ConflictExceeded.
var ErrVersionConflict = errors.New("receipt version conflict")

// ReceiptRepository defines the interface for receipt data operations
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	GetByNumber(ctx context.Context, receiptNumber string) (*entity.Receipt, error)
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.Receipt, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)

	// UpdateVersioned persists the receipt only if its stored version still
	// matches receipt.Version, then bumps the version. Returns
	// ErrVersionConflict otherwise.
	UpdateVersioned(ctx context.Context, receipt *entity.Receipt) error

	// Delete removes a receipt and its items. Callers enforce the
	// Draft-only rule; the repository does not.
	Delete(ctx context.Context, id uuid.UUID) error

	ReplaceItems(ctx context.Context, receiptID uuid.UUID, items []entity.ReceiptItem) error

	List(ctx context.Context, params *ReceiptFilterParams) ([]entity.Receipt, int64, error)
	Stats(ctx context.Context) (*ReceiptStats, error)
}

// ReceiptFilterParams contains filtering parameters for receipt queries
type ReceiptFilterParams struct {
	Pagination *pagination.PaginationParams
	UserID     *uuid.UUID
	Type       *enum.ReceiptType
	Status     *enum.ReceiptStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

// ReceiptStats holds simple aggregate counts for the admin dashboard
type ReceiptStats struct {
	Total       int64                  `json:"total"`
	ByStatus    map[string]int64       `json:"by_status"`
	ByType      map[string]int64       `json:"by_type"`
	GrandTotals map[string]decimal.Decimal `json:"grand_totals_by_currency"`
}
