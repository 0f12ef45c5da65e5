package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
)

// AuditRepository defines the interface for the append-only audit store.
// There is deliberately no Update method; DeleteOlderThan is the only
// deletion path and is reserved for the retention sweep.
type AuditRepository interface {
	Create(ctx context.Context, entry *entity.AuditLog) error
	List(ctx context.Context, params *AuditFilterParams) ([]entity.AuditLog, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditFilterParams contains filtering parameters for audit queries
type AuditFilterParams struct {
	Pagination   *pagination.PaginationParams
	ActorID      *uuid.UUID
	Action       *entity.AuditAction
	ResourceType string
	ResourceID   *uuid.UUID
	From         *time.Time
	To           *time.Time
}
