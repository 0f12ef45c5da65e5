package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	domainRepo "github.com/finveo/invoiceflow-api/internal/domain/repository"
)

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new secure download token repository
func NewTokenRepository(db *gorm.DB) domainRepo.TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *entity.SecureDownloadToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.SecureDownloadToken, error) {
	var token entity.SecureDownloadToken
	err := r.db.WithContext(ctx).First(&token, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &token, err
}

func (r *tokenRepository) GetByHash(ctx context.Context, tokenHash string) (*entity.SecureDownloadToken, error) {
	var token entity.SecureDownloadToken
	err := r.db.WithContext(ctx).First(&token, "token_hash = ?", tokenHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &token, err
}

// ConsumeDownload performs the guard and the increment as one conditional
// UPDATE. Postgres row locking makes the check-and-increment atomic: when
// two redemptions race on the last remaining download, exactly one UPDATE
// matches and the other sees zero rows affected.
func (r *tokenRepository) ConsumeDownload(ctx context.Context, id uuid.UUID, now time.Time, ip, agent string) (*entity.SecureDownloadToken, bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE secure_download_tokens
		SET download_count = download_count + 1,
		    first_accessed_at = COALESCE(first_accessed_at, ?),
		    last_accessed_at = ?,
		    last_access_ip = ?,
		    last_access_agent = ?,
		    updated_at = ?
		WHERE id = ?
		  AND revoked = false
		  AND expires_at > ?
		  AND download_count < max_downloads`,
		now, now, ip, agent, now, id, now)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}

	token, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return token, true, nil
}

func (r *tokenRepository) Revoke(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.SecureDownloadToken{}).
		Where("id = ? AND revoked = false", id).
		Updates(map[string]interface{}{
			"revoked":    true,
			"revoked_by": revokedBy,
			"revoked_at": now,
		}).Error
}
