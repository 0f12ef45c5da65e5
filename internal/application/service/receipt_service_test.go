package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finveo/invoiceflow-api/internal/config"
	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
)

type receiptFixture struct {
	svc         *ReceiptService
	receiptRepo *fakeReceiptRepo
	paymentRepo *fakePaymentRepo
	invoiceRepo *fakeInvoiceRepo
	userRepo    *fakeUserRepo
	auditRepo   *fakeAuditRepo
	notifRepo   *fakeNotificationRepo
	mailer      *fakeMailer
	renderer    *fakeRenderer
	storage     string
	user        *entity.User
}

func newReceiptFixture(t *testing.T) *receiptFixture {
	t.Helper()

	receiptRepo := newFakeReceiptRepo()
	paymentRepo := newFakePaymentRepo()
	invoiceRepo := newFakeInvoiceRepo()
	userRepo := newFakeUserRepo()
	auditRepo := newFakeAuditRepo()
	notifRepo := newFakeNotificationRepo()
	emailLogRepo := newFakeEmailLogRepo()
	mailer := &fakeMailer{}
	renderer := &fakeRenderer{}
	storage := t.TempDir()

	auditSvc := NewAuditService(auditRepo, 365, 256)
	notifSvc := NewNotificationService(notifRepo, emailLogRepo, mailer, auditSvc, 3, 64)

	user := &entity.User{
		FullName: "Asha Nair",
		Email:    "asha@example.com",
		Phone:    "+911234567890",
		Address:  "12 MG Road, Bengaluru",
		GSTIN:    "29ABCDE1234F1Z5",
	}
	require.NoError(t, userRepo.Create(context.Background(), user))

	company := config.CompanyConfig{
		Name:    "InvoiceFlow Technologies Pvt Ltd",
		Address: "1 Tech Park, Bengaluru",
		GSTIN:   "29AAAAA0000A1Z5",
		PAN:     "AAAAA0000A",
	}

	svc := NewReceiptService(
		receiptRepo, paymentRepo, invoiceRepo, userRepo,
		NewNumberAllocator(newFakeSequenceRepo(), 3),
		NewTaxCalculator(),
		renderer,
		notifSvc,
		auditSvc,
		company,
		storage,
		5*time.Second,
		18,
	)

	return &receiptFixture{
		svc:         svc,
		receiptRepo: receiptRepo,
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		notifRepo:   notifRepo,
		mailer:      mailer,
		renderer:    renderer,
		storage:     storage,
		user:        user,
	}
}

func (fx *receiptFixture) createDraft(t *testing.T) *entity.Receipt {
	t.Helper()
	receipt, err := fx.svc.CreateDraft(context.Background(), &CreateReceiptInput{
		UserID:      fx.user.ID,
		ActorID:     &fx.user.ID,
		ReceiptType: enum.ReceiptTypeSubscriptionPayment,
		Lines: []LineInput{
			{Name: "Pro plan (monthly)", Quantity: dec("1"), Rate: dec("99"), TaxRate: dec("18")},
		},
	})
	require.NoError(t, err)
	return receipt
}

func TestCreateDraft_SnapshotsAndTotals(t *testing.T) {
	fx := newReceiptFixture(t)

	receipt := fx.createDraft(t)

	assert.Equal(t, enum.ReceiptStatusDraft, receipt.Status)
	assert.Equal(t, 1, receipt.Version)
	assert.Equal(t, "RCP-"+receipt.ReceiptNumber, receipt.FormattedNumber())
	assert.True(t, receipt.GrandTotal.Equal(dec("116.82")))
	assert.True(t, receipt.TotalsReconcile())

	// Customer details are copied, not referenced
	assert.Equal(t, "Asha Nair", receipt.CustomerName)
	assert.Equal(t, "asha@example.com", receipt.CustomerEmail)
	assert.Equal(t, "29ABCDE1234F1Z5", receipt.CustomerGSTIN)
	assert.Equal(t, "InvoiceFlow Technologies Pvt Ltd", receipt.CompanyName)

	// Later profile edits never rewrite the issued snapshot
	fx.user.FullName = "Renamed"
	require.NoError(t, fx.userRepo.Create(context.Background(), fx.user))
	stored, err := fx.receiptRepo.GetByID(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Nair", stored.CustomerName)
}

func TestCreateDraft_SequentialNumbers(t *testing.T) {
	fx := newReceiptFixture(t)

	first := fx.createDraft(t)
	second := fx.createDraft(t)

	assert.NotEqual(t, first.ReceiptNumber, second.ReceiptNumber)
	assert.Equal(t, first.ReceiptNumber[:6], second.ReceiptNumber[:6])
}

func TestUpdateDraft_RejectedPastDraft(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	_, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)

	_, err = fx.svc.UpdateDraft(context.Background(), receipt.ID, fx.user.ID, &UpdateDraftInput{
		Lines: []LineInput{{Name: "edited", Quantity: dec("1"), Rate: dec("10"), TaxRate: dec("18")}},
	})
	assert.Equal(t, apperror.ErrImmutableReceipt, err)
}

func TestUpdateDraft_RecomputesTotals(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	updated, err := fx.svc.UpdateDraft(context.Background(), receipt.ID, fx.user.ID, &UpdateDraftInput{
		Title: "Amended receipt",
		Lines: []LineInput{
			{Name: "Pro plan (annual)", Quantity: dec("1"), Rate: dec("999"), TaxRate: dec("18")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Amended receipt", updated.Title)
	assert.True(t, updated.GrandTotal.Equal(dec("1178.82")), "grand %s", updated.GrandTotal)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Pro plan (annual)", updated.Items[0].Name)
	assert.True(t, updated.TotalsReconcile())
}

func TestDeleteDraft_OnlyDrafts(t *testing.T) {
	fx := newReceiptFixture(t)

	draft := fx.createDraft(t)
	require.NoError(t, fx.svc.DeleteDraft(context.Background(), draft.ID, fx.user.ID))
	gone, err := fx.receiptRepo.GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	generated := fx.createDraft(t)
	_, err = fx.svc.GeneratePDF(context.Background(), generated.ID, &fx.user.ID)
	require.NoError(t, err)
	err = fx.svc.DeleteDraft(context.Background(), generated.ID, fx.user.ID)
	assert.Equal(t, apperror.ErrImmutableReceipt, err)
}

func TestGeneratePDF_TransitionsAndWritesArtifact(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	generated, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)

	assert.Equal(t, enum.ReceiptStatusGenerated, generated.Status)
	assert.True(t, generated.PDFGenerated)
	require.NotNil(t, generated.PDFGeneratedAt)

	expectedPath := filepath.Join(fx.storage, "receipts", generated.FormattedNumber()+".pdf")
	assert.Equal(t, expectedPath, generated.PDFFilePath)
	data, err := os.ReadFile(expectedPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// Owner gets an in-app notification
	assert.Len(t, fx.notifRepo.byType(entity.NotificationReceiptGenerated), 1)
}

func TestGeneratePDF_Idempotent(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	first, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)

	// Second call returns the stored artifact without re-rendering
	fx.renderer.err = errors.New("renderer must not run again")
	second, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.PDFFilePath, second.PDFFilePath)
	assert.Equal(t, first.Status, second.Status)
}

func TestGeneratePDF_TotalsMismatchAborts(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	// Corrupt the stored grand total behind the service's back
	fx.receiptRepo.mu.Lock()
	fx.receiptRepo.receipts[receipt.ID].GrandTotal = dec("999999")
	fx.receiptRepo.mu.Unlock()

	_, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	assert.Equal(t, apperror.ErrTotalsMismatch, err)

	// Never silently corrected
	stored, err2 := fx.receiptRepo.GetByID(context.Background(), receipt.ID)
	require.NoError(t, err2)
	assert.Equal(t, enum.ReceiptStatusDraft, stored.Status)
	assert.True(t, stored.GrandTotal.Equal(dec("999999")))
}

func TestGeneratePDF_RenderFailureClassified(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	fx.renderer.err = errors.New("font table corrupted")
	_, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	assert.Equal(t, apperror.ErrRenderFailed, err)

	// Receipt stays Draft and can retry after the renderer recovers
	fx.renderer.err = nil
	generated, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.ReceiptStatusGenerated, generated.Status)
}

func TestGeneratePDF_TimeoutSurfacesGatewayTimeout(t *testing.T) {
	fx := newReceiptFixture(t)
	fx.svc.renderTimeout = 20 * time.Millisecond
	fx.renderer.delay = 500 * time.Millisecond

	receipt := fx.createDraft(t)
	_, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	assert.Equal(t, apperror.ErrRenderTimeout, err)
}

func TestSendEmail_TransitionsOnQueueAcceptance(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	_, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)

	sent, err := fx.svc.SendEmail(context.Background(), receipt.ID, &fx.user.ID, "")
	require.NoError(t, err)

	// Sent means accepted for dispatch, not delivered: no worker is running
	assert.Equal(t, enum.ReceiptStatusSent, sent.Status)
	assert.True(t, sent.EmailSent)
	assert.Equal(t, "asha@example.com", sent.EmailSentTo)
	assert.Zero(t, fx.mailer.sentCount())
}

func TestSendEmail_RequiresArtifact(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	_, err := fx.svc.SendEmail(context.Background(), receipt.ID, &fx.user.ID, "")
	assert.Equal(t, apperror.ErrInvalidState, err)
}

func TestSendEmail_ResendKeepsState(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	_, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)
	_, err = fx.svc.SendEmail(context.Background(), receipt.ID, &fx.user.ID, "")
	require.NoError(t, err)
	require.NoError(t, fx.svc.RecordView(context.Background(), receipt.ID))

	// Re-send to an accountant address: state stays Viewed, recipient updates
	resent, err := fx.svc.SendEmail(context.Background(), receipt.ID, &fx.user.ID, "books@example.com")
	require.NoError(t, err)
	assert.Equal(t, enum.ReceiptStatusViewed, resent.Status)
	assert.Equal(t, "books@example.com", resent.EmailSentTo)
}

func TestRecordView_OnlyFromSent(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	// A draft has never left the building; viewing it is an error
	err := fx.svc.RecordView(context.Background(), receipt.ID)
	assert.Equal(t, apperror.ErrInvalidState, err)

	_, err = fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)

	// Generated receipts are not Viewed by a download either
	err = fx.svc.RecordView(context.Background(), receipt.ID)
	assert.Equal(t, apperror.ErrInvalidState, err)
	stored, _ := fx.receiptRepo.GetByID(context.Background(), receipt.ID)
	assert.Equal(t, enum.ReceiptStatusGenerated, stored.Status)

	_, err = fx.svc.SendEmail(context.Background(), receipt.ID, &fx.user.ID, "")
	require.NoError(t, err)

	require.NoError(t, fx.svc.RecordView(context.Background(), receipt.ID))
	stored, _ = fx.receiptRepo.GetByID(context.Background(), receipt.ID)
	assert.Equal(t, enum.ReceiptStatusViewed, stored.Status)

	// Idempotent: repeat views change nothing and emit no extra notification
	require.NoError(t, fx.svc.RecordView(context.Background(), receipt.ID))
	assert.Len(t, fx.notifRepo.byType(entity.NotificationReceiptViewed), 1)
}

func TestUpdateWithRetry_ConflictExhaustion(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	_, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)

	fx.receiptRepo.alwaysConflict = true
	_, err = fx.svc.AdminReview(context.Background(), receipt.ID, uuid.New(), true, "")
	assert.Equal(t, apperror.ErrConflictExceeded, err)
}

func TestAdminReview_AnnotatesWithoutStateChange(t *testing.T) {
	fx := newReceiptFixture(t)
	admin := uuid.New()
	receipt := fx.createDraft(t)

	_, err := fx.svc.GeneratePDF(context.Background(), receipt.ID, &fx.user.ID)
	require.NoError(t, err)

	reviewed, err := fx.svc.AdminReview(context.Background(), receipt.ID, admin, false, "GSTIN mismatch")
	require.NoError(t, err)

	assert.Equal(t, enum.ReceiptStatusGenerated, reviewed.Status)
	assert.True(t, reviewed.AdminReviewed)
	assert.False(t, reviewed.AdminApproved)
	assert.Equal(t, "GSTIN mismatch", reviewed.AdminNotes)
	require.NotNil(t, reviewed.AdminReviewedBy)
	assert.Equal(t, admin, *reviewed.AdminReviewedBy)

	// Re-review flips the verdict; lifecycle still untouched
	reviewed, err = fx.svc.AdminReview(context.Background(), receipt.ID, admin, true, "corrected")
	require.NoError(t, err)
	assert.True(t, reviewed.AdminApproved)
	assert.Equal(t, enum.ReceiptStatusGenerated, reviewed.Status)
}

func TestAdminReview_RejectsDrafts(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	_, err := fx.svc.AdminReview(context.Background(), receipt.ID, uuid.New(), true, "too early")
	assert.Equal(t, apperror.ErrInvalidState, err)

	stored, _ := fx.receiptRepo.GetByID(context.Background(), receipt.ID)
	assert.False(t, stored.AdminReviewed)
	assert.Equal(t, enum.ReceiptStatusDraft, stored.Status)
}

func TestCreateDraft_DuplicateNumberSurfaces(t *testing.T) {
	fx := newReceiptFixture(t)
	fx.receiptRepo.createErr = apperror.ErrDuplicateNumber

	_, err := fx.svc.CreateDraft(context.Background(), &CreateReceiptInput{
		UserID:      fx.user.ID,
		ActorID:     &fx.user.ID,
		ReceiptType: enum.ReceiptTypeSubscriptionPayment,
		Lines: []LineInput{
			{Name: "Pro plan (monthly)", Quantity: dec("1"), Rate: dec("99"), TaxRate: dec("18")},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.ErrDuplicateNumber, err)
}

func TestCreateFromPayment_Idempotent(t *testing.T) {
	fx := newReceiptFixture(t)

	paidAt := time.Now()
	payment := &entity.Payment{
		UserID:        fx.user.ID,
		Amount:        dec("499"),
		Currency:      "INR",
		Status:        enum.PaymentStatusSuccess,
		Method:        "upi",
		TransactionID: "txn_123",
		PaymentDate:   &paidAt,
	}
	require.NoError(t, fx.paymentRepo.Create(context.Background(), payment))

	first, err := fx.svc.CreateFromPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.ReceiptTypeSubscriptionPayment, first.ReceiptType)
	require.NotNil(t, first.PaymentID)
	assert.Equal(t, payment.ID, *first.PaymentID)

	second, err := fx.svc.CreateFromPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ReceiptNumber, second.ReceiptNumber)
}

func TestCreateFromPayment_RequiresSuccess(t *testing.T) {
	fx := newReceiptFixture(t)

	payment := &entity.Payment{
		UserID: fx.user.ID,
		Amount: dec("499"),
		Status: enum.PaymentStatusPending,
	}
	require.NoError(t, fx.paymentRepo.Create(context.Background(), payment))

	_, err := fx.svc.CreateFromPayment(context.Background(), payment.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsAppError(err))
}

func TestCreateFromInvoicePayment_CopiesInvoiceSnapshot(t *testing.T) {
	fx := newReceiptFixture(t)

	paidAt := time.Now()
	payment := &entity.Payment{
		UserID:      fx.user.ID,
		Amount:      dec("1180"),
		Status:      enum.PaymentStatusSuccess,
		PaymentDate: &paidAt,
	}
	require.NoError(t, fx.paymentRepo.Create(context.Background(), payment))

	invoice := &entity.Invoice{
		UserID:        fx.user.ID,
		InvoiceNumber: "INV-0042",
		Currency:      "INR",
		InterState:    true,
		ClientName:    "Acme Traders",
		ClientEmail:   "accounts@acme.example",
		ClientGSTIN:   "27ZZZZZ9999Z1Z9",
		Items: []entity.InvoiceItem{
			{Name: "Implementation services", Quantity: dec("1"), Rate: dec("1000"), TaxRate: dec("18")},
		},
	}
	fx.invoiceRepo.add(invoice)

	receipt, err := fx.svc.CreateFromInvoicePayment(context.Background(), payment.ID, invoice.ID)
	require.NoError(t, err)

	assert.Equal(t, enum.ReceiptTypeInvoicePayment, receipt.ReceiptType)
	assert.Equal(t, "Acme Traders", receipt.CustomerName)
	assert.Equal(t, "27ZZZZZ9999Z1Z9", receipt.CustomerGSTIN)
	// Inter-state invoice -> IGST, no split
	assert.True(t, receipt.IGSTAmount.Equal(dec("180")))
	assert.True(t, receipt.CGSTAmount.IsZero())
}

func TestIssueForPayment_FullPipeline(t *testing.T) {
	fx := newReceiptFixture(t)

	payment := &entity.Payment{
		UserID:        fx.user.ID,
		Amount:        dec("499"),
		Status:        enum.PaymentStatusSuccess,
		TransactionID: "txn_pipeline",
	}
	require.NoError(t, fx.paymentRepo.Create(context.Background(), payment))

	receipt, err := fx.svc.IssueForPayment(context.Background(), payment.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, enum.ReceiptStatusSent, receipt.Status)
	assert.True(t, receipt.PDFGenerated)
	assert.True(t, receipt.EmailSent)

	// A replayed webhook resumes idempotently with the same receipt
	again, err := fx.svc.IssueForPayment(context.Background(), payment.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, again.ID)
	assert.Equal(t, enum.ReceiptStatusSent, again.Status)
}

func TestGetReceipt_OwnershipEnforced(t *testing.T) {
	fx := newReceiptFixture(t)
	receipt := fx.createDraft(t)

	_, err := fx.svc.GetReceipt(context.Background(), receipt.ID, uuid.New(), false)
	assert.Equal(t, apperror.ErrForbidden, err)

	got, err := fx.svc.GetReceipt(context.Background(), receipt.ID, uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, got.ID)

	got, err = fx.svc.GetReceipt(context.Background(), receipt.ID, fx.user.ID, false)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
}

func TestList_FiltersByUserAndStatus(t *testing.T) {
	fx := newReceiptFixture(t)

	draft := fx.createDraft(t)
	generated := fx.createDraft(t)
	_, err := fx.svc.GeneratePDF(context.Background(), generated.ID, &fx.user.ID)
	require.NoError(t, err)

	status := enum.ReceiptStatusDraft
	result, err := fx.svc.List(context.Background(), &repository.ReceiptFilterParams{
		UserID: &fx.user.ID,
		Status: &status,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, draft.ID, result.Items[0].ID)
}
