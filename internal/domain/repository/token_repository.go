package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
)

// TokenRepository defines the interface for secure download token operations
type TokenRepository interface {
	Create(ctx context.Context, token *entity.SecureDownloadToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.SecureDownloadToken, error)
	GetByHash(ctx context.Context, tokenHash string) (*entity.SecureDownloadToken, error)

	// ConsumeDownload atomically increments the download counter if and only
	// if the token is unrevoked, unexpired at now, and under its download
	// budget. The guard and the increment are one operation so two
	// concurrent redemptions can never both pass the limit check.
	// Returns the updated token on success and false when the guard failed.
	ConsumeDownload(ctx context.Context, id uuid.UUID, now time.Time, ip, agent string) (*entity.SecureDownloadToken, bool, error)

	// Revoke force-expires a token early. Idempotent; a revoked token is
	// never resurrected.
	Revoke(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, now time.Time) error
}
