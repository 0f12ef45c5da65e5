package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
)

// PaymentService ingests gateway payment confirmations and feeds successful
// ones into the receipt pipeline
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	receiptSvc  *ReceiptService
	auditSvc    *AuditService
}

// NewPaymentService creates a new payment service
func NewPaymentService(paymentRepo repository.PaymentRepository, receiptSvc *ReceiptService, auditSvc *AuditService) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		receiptSvc:  receiptSvc,
		auditSvc:    auditSvc,
	}
}

// ConfirmPaymentInput is a gateway webhook payload after verification
type ConfirmPaymentInput struct {
	TransactionID    string
	GatewayPaymentID string
	UserID           uuid.UUID
	SubscriptionID   *uuid.UUID
	InvoiceID        *uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	Method           string
	PaidAt           *time.Time
}

// ConfirmPayment records a successful gateway payment and issues its
// receipt. Idempotent on the gateway transaction ID: a replayed webhook
// re-enters the pipeline against the existing payment, and every pipeline
// step is itself idempotent, so replays converge instead of duplicating.
func (s *PaymentService) ConfirmPayment(ctx context.Context, input *ConfirmPaymentInput) (*entity.Receipt, error) {
	if input.TransactionID == "" {
		return nil, apperror.NewBadRequestError("transaction_id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, apperror.NewBadRequestError("amount must be positive")
	}

	payment, err := s.paymentRepo.GetByTransactionID(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}

	if payment == nil {
		paidAt := input.PaidAt
		if paidAt == nil {
			now := time.Now()
			paidAt = &now
		}
		currency := input.Currency
		if currency == "" {
			currency = "INR"
		}
		payment = &entity.Payment{
			UserID:           input.UserID,
			SubscriptionID:   input.SubscriptionID,
			Amount:           input.Amount,
			Currency:         currency,
			Status:           enum.PaymentStatusSuccess,
			Method:           input.Method,
			TransactionID:    input.TransactionID,
			GatewayPaymentID: input.GatewayPaymentID,
			PaymentDate:      paidAt,
		}
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return nil, err
		}

		s.auditSvc.RecordBestEffort(&AuditEntry{
			ActorType:    enum.ActorTypeSystem,
			Action:       entity.AuditPaymentConfirmed,
			Description:  fmt.Sprintf("Payment %s confirmed for %s %s", input.TransactionID, currency, input.Amount.StringFixed(2)),
			ResourceType: "payment",
			ResourceID:   &payment.ID,
			Outcome:      enum.AuditOutcomeSuccess,
		})
	}

	return s.receiptSvc.IssueForPayment(ctx, payment.ID, input.InvoiceID)
}
