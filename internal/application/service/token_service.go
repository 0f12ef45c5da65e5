package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
	"github.com/finveo/invoiceflow-api/pkg/utils"
)

// tokenEntropyBytes is the raw entropy of a download token before encoding
const tokenEntropyBytes = 32

// ViewRecorder marks a receipt as viewed on its first secure download
type ViewRecorder interface {
	RecordView(ctx context.Context, receiptID uuid.UUID) error
}

// TokenService issues and redeems secure, self-expiring download tokens for
// receipt PDFs. Only the SHA-256 digest of a token is ever stored; the raw
// value is returned exactly once at issuance and cannot be recovered later.
// Every denial is audited with its reason.
type TokenService struct {
	tokenRepo   repository.TokenRepository
	receiptRepo repository.ReceiptRepository
	viewer      ViewRecorder
	auditSvc    *AuditService

	ttl          time.Duration
	maxDownloads int
}

// NewTokenService creates a new token service
func NewTokenService(
	tokenRepo repository.TokenRepository,
	receiptRepo repository.ReceiptRepository,
	viewer ViewRecorder,
	auditSvc *AuditService,
	ttl time.Duration,
	maxDownloads int,
) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxDownloads < 1 {
		maxDownloads = 5
	}
	return &TokenService{
		tokenRepo:    tokenRepo,
		receiptRepo:  receiptRepo,
		viewer:       viewer,
		auditSvc:     auditSvc,
		ttl:          ttl,
		maxDownloads: maxDownloads,
	}
}

// Issue creates a download token for a receipt's PDF and returns the raw
// token alongside its stored record. The receipt must already have a
// generated artifact, and only the owner (or an admin) may issue.
func (s *TokenService) Issue(ctx context.Context, receiptID, requesterID uuid.UUID, isAdmin bool) (string, *entity.SecureDownloadToken, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return "", nil, err
	}
	if receipt == nil {
		return "", nil, apperror.NewNotFoundError("Receipt")
	}
	if !isAdmin && receipt.UserID != requesterID {
		return "", nil, apperror.ErrForbidden
	}
	if !receipt.IsPDFAvailable() {
		return "", nil, apperror.ErrInvalidState
	}

	raw, err := utils.GenerateSecureToken(tokenEntropyBytes)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	token := &entity.SecureDownloadToken{
		UserID:       receipt.UserID,
		ReceiptID:    receipt.ID,
		TokenHash:    utils.HashToken(raw),
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
		MaxDownloads: s.maxDownloads,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", nil, fmt.Errorf("persist download token: %w", err)
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorID:      &requesterID,
		ActorType:    enum.ActorTypeUser,
		Action:       entity.AuditTokenIssued,
		Description:  fmt.Sprintf("Download token issued for receipt %s", receipt.FormattedNumber()),
		ResourceType: "download_token",
		ResourceID:   &token.ID,
		Outcome:      enum.AuditOutcomeSuccess,
	})

	return raw, token, nil
}

// Redeem exchanges a raw token for the receipt whose PDF may be served.
// The download-budget check and its increment are one atomic repository
// operation, so concurrent redemptions can never jointly overshoot the
// limit. The first successful redemption marks the receipt Viewed.
// Denials are written through to the audit trail before returning.
func (s *TokenService) Redeem(ctx context.Context, rawToken, ip, agent string) (*entity.Receipt, *entity.SecureDownloadToken, error) {
	now := time.Now()
	hash := utils.HashToken(rawToken)

	token, err := s.tokenRepo.GetByHash(ctx, hash)
	if err != nil {
		return nil, nil, err
	}
	if token == nil {
		s.auditDenied(ctx, nil, "unknown token", ip, agent)
		return nil, nil, apperror.ErrTokenNotFound
	}

	updated, ok, err := s.tokenRepo.ConsumeDownload(ctx, token.ID, now, ip, agent)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Re-read state to classify the denial; the guard itself only says no
		denied, derr := s.tokenRepo.GetByID(ctx, token.ID)
		if derr != nil || denied == nil {
			denied = token
		}
		if denied.IsExpired(now) {
			s.auditDenied(ctx, &token.ID, "token expired or revoked", ip, agent)
			return nil, nil, apperror.ErrTokenExpired
		}
		s.auditDenied(ctx, &token.ID, "download limit exceeded", ip, agent)
		return nil, nil, apperror.ErrDownloadLimitExceeded
	}

	receipt, err := s.receiptRepo.GetByID(ctx, updated.ReceiptID)
	if err != nil {
		return nil, nil, err
	}
	if receipt == nil || !receipt.IsPDFAvailable() {
		s.auditDenied(ctx, &token.ID, "receipt artifact missing", ip, agent)
		return nil, nil, apperror.ErrTokenNotFound
	}

	if updated.DownloadCount == 1 {
		if err := s.viewer.RecordView(ctx, receipt.ID); err != nil {
			// View tracking must not block the download itself
			_ = err
		}
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorType:    enum.ActorTypeSystem,
		Action:       entity.AuditTokenRedeemed,
		Description:  fmt.Sprintf("Token redeemed for receipt %s (download %d/%d)", receipt.FormattedNumber(), updated.DownloadCount, updated.MaxDownloads),
		ResourceType: "download_token",
		ResourceID:   &updated.ID,
		Outcome:      enum.AuditOutcomeSuccess,
		IPAddress:    ip,
		UserAgent:    agent,
	})

	return receipt, updated, nil
}

// Revoke force-expires a token. Idempotent; revoked tokens never come back.
func (s *TokenService) Revoke(ctx context.Context, tokenID, adminID uuid.UUID) error {
	token, err := s.tokenRepo.GetByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if token == nil {
		return apperror.ErrTokenNotFound
	}
	if token.Revoked {
		return nil
	}

	if err := s.tokenRepo.Revoke(ctx, tokenID, adminID, time.Now()); err != nil {
		return err
	}

	return s.auditSvc.Record(ctx, &AuditEntry{
		ActorID:      &adminID,
		ActorType:    enum.ActorTypeAdmin,
		Action:       entity.AuditTokenRevoked,
		Description:  "Download token revoked",
		ResourceType: "download_token",
		ResourceID:   &tokenID,
		Outcome:      enum.AuditOutcomeSuccess,
	})
}

// auditDenied writes the denial through synchronously: denied access is a
// security signal and must not be lost to a saturated queue.
func (s *TokenService) auditDenied(ctx context.Context, tokenID *uuid.UUID, reason, ip, agent string) {
	_ = s.auditSvc.Record(ctx, &AuditEntry{
		ActorType:    enum.ActorTypeSystem,
		Action:       entity.AuditTokenDenied,
		Description:  "Download denied: " + reason,
		ResourceType: "download_token",
		ResourceID:   tokenID,
		Outcome:      enum.AuditOutcomeFailure,
		ErrorMessage: reason,
		IPAddress:    ip,
		UserAgent:    agent,
	})
}
