package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finveo/invoiceflow-api/internal/config"
	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
	"github.com/finveo/invoiceflow-api/pkg/pdfgen"
)

// maxTransitionRetries bounds optimistic-lock retries on lifecycle updates
const maxTransitionRetries = 3

// errNoChange signals that a mutation decided the update is a no-op
var errNoChange = errors.New("no change")

// ReceiptService drives the receipt lifecycle: creation from payment or
// invoice sources, draft editing, PDF generation, email dispatch, view
// tracking and admin review. All lifecycle updates go through optimistic
// version checks with bounded retries.
type ReceiptService struct {
	receiptRepo repository.ReceiptRepository
	paymentRepo repository.PaymentRepository
	invoiceRepo repository.InvoiceRepository
	userRepo    repository.UserRepository

	allocator *NumberAllocator
	calc      *TaxCalculator
	renderer  pdfgen.Renderer
	notifSvc  *NotificationService
	auditSvc  *AuditService

	company        config.CompanyConfig
	storagePath    string
	renderTimeout  time.Duration
	defaultTaxRate decimal.Decimal
}

// NewReceiptService creates a new receipt service
func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	paymentRepo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	allocator *NumberAllocator,
	calc *TaxCalculator,
	renderer pdfgen.Renderer,
	notifSvc *NotificationService,
	auditSvc *AuditService,
	company config.CompanyConfig,
	storagePath string,
	renderTimeout time.Duration,
	defaultTaxRate float64,
) *ReceiptService {
	if renderTimeout <= 0 {
		renderTimeout = 30 * time.Second
	}
	return &ReceiptService{
		receiptRepo:    receiptRepo,
		paymentRepo:    paymentRepo,
		invoiceRepo:    invoiceRepo,
		userRepo:       userRepo,
		allocator:      allocator,
		calc:           calc,
		renderer:       renderer,
		notifSvc:       notifSvc,
		auditSvc:       auditSvc,
		company:        company,
		storagePath:    storagePath,
		renderTimeout:  renderTimeout,
		defaultTaxRate: decimal.NewFromFloat(defaultTaxRate),
	}
}

// CreateReceiptInput represents a manual draft creation
type CreateReceiptInput struct {
	UserID      uuid.UUID
	ActorID     *uuid.UUID
	ReceiptType enum.ReceiptType
	Title       string
	Description string
	InterState  bool

	PaymentID      *uuid.UUID
	SubscriptionID *uuid.UUID
	InvoiceID      *uuid.UUID
	PaymentDate    *time.Time
	PaymentMethod  string
	TransactionID  string
	Currency       string

	Lines []LineInput
}

// CreateDraft creates a Draft receipt with an allocated number, computed
// totals and snapshotted customer/company details. The number is allocated
// before the insert; a crash between the two leaks the number, which is
// acceptable, a duplicate is not.
func (s *ReceiptService) CreateDraft(ctx context.Context, input *CreateReceiptInput) (*entity.Receipt, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}

	items, totals, err := s.calc.CalculateItems(input.Lines, input.InterState)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	number, err := s.allocator.Allocate(ctx, now)
	if err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = "INR"
	}
	title := input.Title
	if title == "" {
		title = "Payment Receipt"
	}

	receipt := &entity.Receipt{
		ReceiptNumber:  number,
		ReceiptType:    input.ReceiptType,
		Status:         enum.ReceiptStatusDraft,
		Version:        1,
		UserID:         input.UserID,
		PaymentID:      input.PaymentID,
		SubscriptionID: input.SubscriptionID,
		InvoiceID:      input.InvoiceID,
		ReceiptDate:    now,
		PaymentDate:    input.PaymentDate,
		SubTotal:       totals.SubTotal,
		TotalDiscount:  totals.TotalDiscount,
		TaxableAmount:  totals.TaxableAmount,
		CGSTAmount:     totals.CGST,
		SGSTAmount:     totals.SGST,
		IGSTAmount:     totals.IGST,
		TotalTax:       totals.TotalTax,
		GrandTotal:     totals.GrandTotal,
		Currency:       currency,
		PaymentMethod:  input.PaymentMethod,
		TransactionID:  input.TransactionID,
		Title:          title,
		Description:    input.Description,

		CustomerName:    user.FullName,
		CustomerEmail:   user.Email,
		CustomerPhone:   user.Phone,
		CustomerAddress: user.Address,
		CustomerGSTIN:   user.GSTIN,

		CompanyName:    s.company.Name,
		CompanyAddress: s.company.Address,
		CompanyGSTIN:   s.company.GSTIN,
		CompanyPAN:     s.company.PAN,

		CreatedBy: input.ActorID,
		Items:     items,
	}

	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		return nil, err
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorID:      input.ActorID,
		ActorType:    actorTypeFor(input.ActorID),
		Action:       entity.AuditReceiptCreated,
		Description:  fmt.Sprintf("Receipt %s created", receipt.FormattedNumber()),
		ResourceType: "receipt",
		ResourceID:   &receipt.ID,
		Outcome:      enum.AuditOutcomeSuccess,
	})

	return receipt, nil
}

// CreateFromPayment creates a receipt documenting a successful subscription
// payment. Idempotent on payment: a second call for the same payment returns
// the existing receipt unchanged.
func (s *ReceiptService) CreateFromPayment(ctx context.Context, paymentID uuid.UUID) (*entity.Receipt, error) {
	existing, err := s.receiptRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	payment, err := s.paymentRepo.GetWithSubscription(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperror.NewNotFoundError("Payment")
	}
	if payment.Status != enum.PaymentStatusSuccess {
		return nil, apperror.NewConflictError("Receipt requires a successful payment")
	}

	line := LineInput{
		Name:     "Subscription payment",
		Quantity: decimal.NewFromInt(1),
		Rate:     payment.Amount,
		TaxRate:  s.defaultTaxRate,
	}
	if payment.Subscription != nil {
		plan := payment.Subscription.Plan
		if plan.Name != "" {
			line.Name = fmt.Sprintf("%s subscription (%s)", plan.Name, plan.Interval)
			line.Rate = plan.Amount
			line.TaxRate = plan.TaxRate
		}
	}

	input := &CreateReceiptInput{
		UserID:         payment.UserID,
		ReceiptType:    enum.ReceiptTypeSubscriptionPayment,
		Title:          "Subscription Payment Receipt",
		PaymentID:      &payment.ID,
		SubscriptionID: payment.SubscriptionID,
		PaymentDate:    payment.PaymentDate,
		PaymentMethod:  payment.Method,
		TransactionID:  payment.TransactionID,
		Currency:       payment.Currency,
		Lines:          []LineInput{line},
	}

	return s.CreateDraft(ctx, input)
}

// CreateFromInvoicePayment creates a receipt for a payment settling an
// invoice, copying the invoice's client snapshot and line items. The invoice
// itself is never written back.
func (s *ReceiptService) CreateFromInvoicePayment(ctx context.Context, paymentID, invoiceID uuid.UUID) (*entity.Receipt, error) {
	existing, err := s.receiptRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperror.NewNotFoundError("Payment")
	}
	if payment.Status != enum.PaymentStatusSuccess {
		return nil, apperror.NewConflictError("Receipt requires a successful payment")
	}

	invoice, err := s.invoiceRepo.GetWithItems(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}

	lines := make([]LineInput, 0, len(invoice.Items))
	for _, it := range invoice.Items {
		lines = append(lines, LineInput{
			Name:               it.Name,
			HSNCode:            it.HSNCode,
			Unit:               it.Unit,
			SortOrder:          it.SortOrder,
			Quantity:           it.Quantity,
			Rate:               it.Rate,
			DiscountPercentage: it.DiscountPercentage,
			DiscountAmount:     it.DiscountAmount,
			TaxRate:            it.TaxRate,
		})
	}

	items, totals, err := s.calc.CalculateItems(lines, invoice.InterState)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	number, err := s.allocator.Allocate(ctx, now)
	if err != nil {
		return nil, err
	}

	receipt := &entity.Receipt{
		ReceiptNumber: number,
		ReceiptType:   enum.ReceiptTypeInvoicePayment,
		Status:        enum.ReceiptStatusDraft,
		Version:       1,
		UserID:        invoice.UserID,
		PaymentID:     &payment.ID,
		InvoiceID:     &invoice.ID,
		ReceiptDate:   now,
		PaymentDate:   payment.PaymentDate,
		SubTotal:      totals.SubTotal,
		TotalDiscount: totals.TotalDiscount,
		TaxableAmount: totals.TaxableAmount,
		CGSTAmount:    totals.CGST,
		SGSTAmount:    totals.SGST,
		IGSTAmount:    totals.IGST,
		TotalTax:      totals.TotalTax,
		GrandTotal:    totals.GrandTotal,
		Currency:      invoice.Currency,
		PaymentMethod: payment.Method,
		TransactionID: payment.TransactionID,
		Title:         fmt.Sprintf("Payment Receipt for Invoice %s", invoice.InvoiceNumber),

		CustomerName:    invoice.ClientName,
		CustomerEmail:   invoice.ClientEmail,
		CustomerPhone:   invoice.ClientPhone,
		CustomerAddress: invoice.ClientAddress,
		CustomerGSTIN:   invoice.ClientGSTIN,

		CompanyName:    s.company.Name,
		CompanyAddress: s.company.Address,
		CompanyGSTIN:   s.company.GSTIN,
		CompanyPAN:     s.company.PAN,

		Items: items,
	}

	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		return nil, err
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorType:    enum.ActorTypeSystem,
		Action:       entity.AuditReceiptCreated,
		Description:  fmt.Sprintf("Receipt %s created for invoice %s", receipt.FormattedNumber(), invoice.InvoiceNumber),
		ResourceType: "receipt",
		ResourceID:   &receipt.ID,
		Outcome:      enum.AuditOutcomeSuccess,
	})

	return receipt, nil
}

// IssueForPayment runs the full automated pipeline for a confirmed payment:
// create the receipt, generate its PDF and dispatch the email. Used by the
// payment webhook path. Partial progress is preserved: each step is
// individually idempotent, so a retried webhook resumes where it stopped.
func (s *ReceiptService) IssueForPayment(ctx context.Context, paymentID uuid.UUID, invoiceID *uuid.UUID) (*entity.Receipt, error) {
	var receipt *entity.Receipt
	var err error
	if invoiceID != nil {
		receipt, err = s.CreateFromInvoicePayment(ctx, paymentID, *invoiceID)
	} else {
		receipt, err = s.CreateFromPayment(ctx, paymentID)
	}
	if err != nil {
		return nil, err
	}

	receipt, err = s.GeneratePDF(ctx, receipt.ID, nil)
	if err != nil {
		return receipt, err
	}

	return s.SendEmail(ctx, receipt.ID, nil, "")
}

// UpdateDraftInput represents an edit to a Draft receipt
type UpdateDraftInput struct {
	Title       string
	Description string
	InterState  bool
	Lines       []LineInput
}

// UpdateDraft replaces a Draft receipt's editable fields and line items.
// Anything past Draft is immutable.
func (s *ReceiptService) UpdateDraft(ctx context.Context, id uuid.UUID, actorID uuid.UUID, input *UpdateDraftInput) (*entity.Receipt, error) {
	items, totals, err := s.calc.CalculateItems(input.Lines, input.InterState)
	if err != nil {
		return nil, err
	}

	receipt, err := s.updateWithRetry(ctx, id, func(r *entity.Receipt) error {
		if !r.Status.IsMutable() {
			return apperror.ErrImmutableReceipt
		}
		if input.Title != "" {
			r.Title = input.Title
		}
		r.Description = input.Description
		r.SubTotal = totals.SubTotal
		r.TotalDiscount = totals.TotalDiscount
		r.TaxableAmount = totals.TaxableAmount
		r.CGSTAmount = totals.CGST
		r.SGSTAmount = totals.SGST
		r.IGSTAmount = totals.IGST
		r.TotalTax = totals.TotalTax
		r.GrandTotal = totals.GrandTotal
		r.UpdatedBy = &actorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.receiptRepo.ReplaceItems(ctx, id, items); err != nil {
		return nil, err
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorID:      &actorID,
		ActorType:    enum.ActorTypeUser,
		Action:       entity.AuditReceiptUpdated,
		Description:  fmt.Sprintf("Receipt %s updated", receipt.FormattedNumber()),
		ResourceType: "receipt",
		ResourceID:   &receipt.ID,
		Outcome:      enum.AuditOutcomeSuccess,
	})

	return s.receiptRepo.GetWithItems(ctx, id)
}

// DeleteDraft removes a Draft receipt. Past Draft, receipts are permanent
// records and are never physically deleted.
func (s *ReceiptService) DeleteDraft(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if receipt == nil {
		return apperror.NewNotFoundError("Receipt")
	}
	if !receipt.Status.IsMutable() {
		return apperror.ErrImmutableReceipt
	}

	if err := s.receiptRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorID:      &actorID,
		ActorType:    enum.ActorTypeUser,
		Action:       entity.AuditReceiptDeleted,
		Description:  fmt.Sprintf("Draft receipt %s deleted", receipt.FormattedNumber()),
		ResourceType: "receipt",
		ResourceID:   &id,
		Outcome:      enum.AuditOutcomeSuccess,
	})
	return nil
}

// GeneratePDF renders the receipt PDF, stores the artifact and moves the
// receipt from Draft to Generated. Idempotent: when the artifact already
// exists the stored receipt is returned without re-rendering. Totals are
// verified before rendering; a mismatch aborts and is never corrected.
func (s *ReceiptService) GeneratePDF(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}

	if receipt.IsPDFAvailable() && receipt.Status != enum.ReceiptStatusDraft {
		return receipt, nil
	}
	if receipt.Status != enum.ReceiptStatusDraft {
		return nil, apperror.ErrInvalidState
	}

	if !receipt.TotalsReconcile() {
		s.auditSvc.RecordBestEffort(&AuditEntry{
			ActorID:      actorID,
			ActorType:    actorTypeFor(actorID),
			Action:       entity.AuditReceiptPDFGenerated,
			Description:  fmt.Sprintf("Receipt %s totals failed verification", receipt.FormattedNumber()),
			ResourceType: "receipt",
			ResourceID:   &receipt.ID,
			Outcome:      enum.AuditOutcomeFailure,
			ErrorMessage: apperror.ErrTotalsMismatch.Message,
		})
		return nil, apperror.ErrTotalsMismatch
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	pdfBytes, err := s.renderer.Render(renderCtx, s.renderData(receipt))
	if err != nil {
		outErr := apperror.ErrRenderFailed
		if errors.Is(err, context.DeadlineExceeded) {
			outErr = apperror.ErrRenderTimeout
		}
		s.auditSvc.RecordBestEffort(&AuditEntry{
			ActorID:      actorID,
			ActorType:    actorTypeFor(actorID),
			Action:       entity.AuditReceiptPDFGenerated,
			Description:  fmt.Sprintf("Receipt %s PDF rendering failed", receipt.FormattedNumber()),
			ResourceType: "receipt",
			ResourceID:   &receipt.ID,
			Outcome:      enum.AuditOutcomeFailure,
			ErrorMessage: err.Error(),
		})
		return nil, outErr
	}

	dir := filepath.Join(s.storagePath, "receipts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf directory: %w", err)
	}
	path := filepath.Join(dir, receipt.FormattedNumber()+".pdf")
	if err := os.WriteFile(path, pdfBytes, 0o644); err != nil {
		return nil, fmt.Errorf("write pdf artifact: %w", err)
	}

	now := time.Now()
	receipt, err = s.updateWithRetry(ctx, id, func(r *entity.Receipt) error {
		if r.Status != enum.ReceiptStatusDraft {
			// A concurrent caller generated first; keep their result
			return errNoChange
		}
		r.Status = enum.ReceiptStatusGenerated
		r.PDFGenerated = true
		r.PDFFilePath = path
		r.PDFGeneratedAt = &now
		r.UpdatedBy = actorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorID:      actorID,
		ActorType:    actorTypeFor(actorID),
		Action:       entity.AuditReceiptPDFGenerated,
		Description:  fmt.Sprintf("Receipt %s PDF generated", receipt.FormattedNumber()),
		ResourceType: "receipt",
		ResourceID:   &receipt.ID,
		Outcome:      enum.AuditOutcomeSuccess,
	})

	if err := s.notifSvc.NotifyOwner(ctx, receipt.UserID, entity.NotificationReceiptGenerated,
		"Receipt ready",
		fmt.Sprintf("Your receipt %s has been generated.", receipt.FormattedNumber()),
		&receipt.ID,
	); err != nil {
		return receipt, nil
	}

	return receipt, nil
}

// SendEmail queues the receipt email and moves the receipt to Sent. The
// transition happens on queue acceptance, not delivery confirmation;
// delivery failures surface through the email log and a failed-delivery
// notification. Re-sending an already Sent receipt queues another email
// without a state change.
func (s *ReceiptService) SendEmail(ctx context.Context, id uuid.UUID, actorID *uuid.UUID, overrideEmail string) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}
	if !receipt.IsPDFAvailable() || receipt.Status == enum.ReceiptStatusDraft {
		return nil, apperror.ErrInvalidState
	}

	to := overrideEmail
	if to == "" {
		to = receipt.CustomerEmail
	}

	if _, err := s.notifSvc.EnqueueReceiptEmail(ctx, receipt, to, receipt.PDFFilePath); err != nil {
		return nil, err
	}

	now := time.Now()
	receipt, err = s.updateWithRetry(ctx, id, func(r *entity.Receipt) error {
		if r.Status.CanTransitionTo(enum.ReceiptStatusSent) {
			r.Status = enum.ReceiptStatusSent
		}
		r.EmailSent = true
		r.EmailSentAt = &now
		r.EmailSentTo = to
		r.UpdatedBy = actorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorID:      actorID,
		ActorType:    actorTypeFor(actorID),
		Action:       entity.AuditReceiptSent,
		Description:  fmt.Sprintf("Receipt %s emailed to %s", receipt.FormattedNumber(), to),
		ResourceType: "receipt",
		ResourceID:   &receipt.ID,
		Outcome:      enum.AuditOutcomeSuccess,
	})

	_ = s.notifSvc.NotifyOwner(ctx, receipt.UserID, entity.NotificationReceiptSent,
		"Receipt sent",
		fmt.Sprintf("Your receipt %s was emailed to %s.", receipt.FormattedNumber(), to),
		&receipt.ID,
	)

	return receipt, nil
}

// RecordView marks a Sent receipt as Viewed. Called on the first secure
// download of the PDF. Idempotent on already Viewed receipts; a receipt
// that has not reached Sent cannot be viewed and the call fails.
func (s *ReceiptService) RecordView(ctx context.Context, id uuid.UUID) error {
	transitioned := false
	receipt, err := s.updateWithRetry(ctx, id, func(r *entity.Receipt) error {
		if r.Status == enum.ReceiptStatusViewed {
			return errNoChange
		}
		if !r.Status.CanTransitionTo(enum.ReceiptStatusViewed) {
			return apperror.ErrInvalidState
		}
		r.Status = enum.ReceiptStatusViewed
		transitioned = true
		return nil
	})
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorType:    enum.ActorTypeSystem,
		Action:       entity.AuditReceiptViewed,
		Description:  fmt.Sprintf("Receipt %s viewed", receipt.FormattedNumber()),
		ResourceType: "receipt",
		ResourceID:   &receipt.ID,
		Outcome:      enum.AuditOutcomeSuccess,
	})

	_ = s.notifSvc.NotifyOwner(ctx, receipt.UserID, entity.NotificationReceiptViewed,
		"Receipt viewed",
		fmt.Sprintf("Your receipt %s was viewed.", receipt.FormattedNumber()),
		&receipt.ID,
	)
	return nil
}

// AdminReview records an approval annotation on a receipt. Review never
// advances or blocks the lifecycle; it is an orthogonal admin judgment on
// an issued document, so drafts are not reviewable. Re-review overwrites
// the previous verdict.
func (s *ReceiptService) AdminReview(ctx context.Context, id uuid.UUID, adminID uuid.UUID, approved bool, notes string) (*entity.Receipt, error) {
	now := time.Now()
	receipt, err := s.updateWithRetry(ctx, id, func(r *entity.Receipt) error {
		if r.Status == enum.ReceiptStatusDraft {
			return apperror.ErrInvalidState
		}
		r.AdminReviewed = true
		r.AdminReviewedBy = &adminID
		r.AdminReviewedAt = &now
		r.AdminApproved = approved
		r.AdminNotes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}

	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorID:      &adminID,
		ActorType:    enum.ActorTypeAdmin,
		Action:       entity.AuditReceiptReviewed,
		Description:  fmt.Sprintf("Receipt %s %s by admin", receipt.FormattedNumber(), verdict),
		ResourceType: "receipt",
		ResourceID:   &receipt.ID,
		Outcome:      enum.AuditOutcomeSuccess,
	})

	return receipt, nil
}

// GetReceipt fetches a receipt with its items, enforcing ownership unless
// the caller is an admin
func (s *ReceiptService) GetReceipt(ctx context.Context, id uuid.UUID, requesterID uuid.UUID, isAdmin bool) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}
	if !isAdmin && receipt.UserID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return receipt, nil
}

// List lists receipts with filtering and pagination
func (s *ReceiptService) List(ctx context.Context, params *repository.ReceiptFilterParams) (*pagination.PaginatedResult[entity.Receipt], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	receipts, total, err := s.receiptRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(receipts, pag), nil
}

// AdminStats returns aggregate receipt counts and totals
func (s *ReceiptService) AdminStats(ctx context.Context) (*repository.ReceiptStats, error) {
	return s.receiptRepo.Stats(ctx)
}

func (s *ReceiptService) updateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*entity.Receipt) error) (*entity.Receipt, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		receipt, err := s.receiptRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if receipt == nil {
			return nil, apperror.NewNotFoundError("Receipt")
		}

		if err := mutate(receipt); err != nil {
			if errors.Is(err, errNoChange) {
				return receipt, nil
			}
			return nil, err
		}

		err = s.receiptRepo.UpdateVersioned(ctx, receipt)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, apperror.ErrConflictExceeded
}

func (s *ReceiptService) renderData(receipt *entity.Receipt) *pdfgen.ReceiptData {
	items := make([]pdfgen.ItemData, 0, len(receipt.Items))
	for _, it := range receipt.Items {
		items = append(items, pdfgen.ItemData{
			Name:       it.Name,
			HSNCode:    it.HSNCode,
			Quantity:   it.Quantity,
			Rate:       it.Rate,
			Discount:   it.DiscountAmount,
			TaxRate:    it.TaxRate,
			GrandTotal: it.GrandTotal,
		})
	}
	return &pdfgen.ReceiptData{
		ReceiptNumber:   receipt.ReceiptNumber,
		Title:           receipt.Title,
		ReceiptDate:     receipt.ReceiptDate,
		PaymentMethod:   receipt.PaymentMethod,
		TransactionID:   receipt.TransactionID,
		CustomerName:    receipt.CustomerName,
		CustomerEmail:   receipt.CustomerEmail,
		CustomerAddress: receipt.CustomerAddress,
		CustomerGSTIN:   receipt.CustomerGSTIN,
		CompanyName:     receipt.CompanyName,
		CompanyAddress:  receipt.CompanyAddress,
		CompanyGSTIN:    receipt.CompanyGSTIN,
		CompanyPAN:      receipt.CompanyPAN,
		Currency:        receipt.Currency,
		Items:           items,
		SubTotal:        receipt.SubTotal,
		TotalDiscount:   receipt.TotalDiscount,
		TaxableAmount:   receipt.TaxableAmount,
		CGSTAmount:      receipt.CGSTAmount,
		SGSTAmount:      receipt.SGSTAmount,
		IGSTAmount:      receipt.IGSTAmount,
		TotalTax:        receipt.TotalTax,
		GrandTotal:      receipt.GrandTotal,
	}
}

func actorTypeFor(actorID *uuid.UUID) enum.ActorType {
	if actorID == nil {
		return enum.ActorTypeSystem
	}
	return enum.ActorTypeUser
}
