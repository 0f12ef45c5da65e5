package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
)

// NotificationRepository defines the interface for in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params *pagination.PaginationParams) ([]entity.Notification, int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// EmailLogRepository defines the interface for outbound email tracking
type EmailLogRepository interface {
	Create(ctx context.Context, log *entity.EmailLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.EmailLog, error)
	Update(ctx context.Context, log *entity.EmailLog) error
}
