package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/apperror"
	"github.com/finveo/invoiceflow-api/pkg/email"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
)

// EmailJob is one queued delivery referencing its persisted log record
type EmailJob struct {
	EmailLogID uuid.UUID
}

// NotificationService owns outbound email dispatch and in-app notifications.
//
// Enqueue persists an EmailLog in Queued state and pushes the job onto a
// bounded channel; acceptance onto the queue is what callers treat as
// "dispatched". A background worker delivers with bounded retries and
// exponential backoff. Permanent failures (invalid address) skip retries.
// Exhausted or permanent failures flip the log to Failed and surface a
// failed-delivery notification to the receipt owner; delivery state never
// feeds back into the receipt lifecycle.
type NotificationService struct {
	notifRepo    repository.NotificationRepository
	emailLogRepo repository.EmailLogRepository
	mailer       email.Mailer
	auditSvc     *AuditService

	maxAttempts int
	queue       chan EmailJob
	stop        chan struct{}
	wg          sync.WaitGroup
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	notifRepo repository.NotificationRepository,
	emailLogRepo repository.EmailLogRepository,
	mailer email.Mailer,
	auditSvc *AuditService,
	maxAttempts, queueSize int,
) *NotificationService {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if queueSize < 1 {
		queueSize = 256
	}
	return &NotificationService{
		notifRepo:    notifRepo,
		emailLogRepo: emailLogRepo,
		mailer:       mailer,
		auditSvc:     auditSvc,
		maxAttempts:  maxAttempts,
		queue:        make(chan EmailJob, queueSize),
		stop:         make(chan struct{}),
	}
}

// Start launches the delivery worker
func (s *NotificationService) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Stop drains queued jobs and stops the worker
func (s *NotificationService) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// EnqueueReceiptEmail persists the email job and queues it for delivery.
// A nil error means the job was accepted; delivery itself is asynchronous.
func (s *NotificationService) EnqueueReceiptEmail(ctx context.Context, receipt *entity.Receipt, toEmail, attachmentPath string) (*entity.EmailLog, error) {
	subject := fmt.Sprintf("Payment Receipt %s", receipt.FormattedNumber())
	body := s.receiptEmailBody(receipt)

	emailLog := &entity.EmailLog{
		UserID:         receipt.UserID,
		ReceiptID:      &receipt.ID,
		ToEmail:        toEmail,
		Subject:        subject,
		Body:           body,
		AttachmentPath: attachmentPath,
		Status:         enum.EmailStatusQueued,
	}
	if err := s.emailLogRepo.Create(ctx, emailLog); err != nil {
		return nil, fmt.Errorf("persist email job: %w", err)
	}

	select {
	case s.queue <- EmailJob{EmailLogID: emailLog.ID}:
	default:
		return nil, apperror.NewAppError(503, "Email queue is full, try again later")
	}

	return emailLog, nil
}

// NotifyOwner creates an in-app notification for a receipt lifecycle event
func (s *NotificationService) NotifyOwner(ctx context.Context, userID uuid.UUID, nType entity.NotificationType, title, message string, receiptID *uuid.UUID) error {
	n := &entity.Notification{
		UserID:       userID,
		Type:         nType,
		Title:        title,
		Message:      message,
		ResourceType: "receipt",
		ResourceID:   receiptID,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListNotifications lists a user's notifications, optionally unread only
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Notification], error) {
	if params == nil {
		params = pagination.DefaultPagination()
	}
	params.Validate()

	items, total, err := s.notifRepo.ListByUser(ctx, userID, unreadOnly, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(items, pag), nil
}

// MarkRead marks a notification as read; only the owner may do so
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	n, err := s.notifRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return apperror.NewNotFoundError("Notification")
	}
	if n.UserID != userID {
		return apperror.ErrForbidden
	}
	if n.Read {
		return nil
	}
	return s.notifRepo.MarkRead(ctx, notificationID)
}

func (s *NotificationService) receiptEmailBody(receipt *entity.Receipt) string {
	return fmt.Sprintf(
		"Dear %s,\n\nThank you for your payment. Your receipt %s dated %s for %s %s is attached.\n\nRegards,\n%s",
		receipt.CustomerName,
		receipt.FormattedNumber(),
		receipt.ReceiptDate.Format("02 Jan 2006"),
		receipt.Currency,
		receipt.GrandTotal.StringFixed(2),
		receipt.CompanyName,
	)
}

func (s *NotificationService) worker() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.queue:
			s.deliver(job)
		case <-s.stop:
			for {
				select {
				case job := <-s.queue:
					s.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (s *NotificationService) deliver(job EmailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	emailLog, err := s.emailLogRepo.GetByID(ctx, job.EmailLogID)
	if err != nil || emailLog == nil {
		log.Printf("email job %s: load failed: %v", job.EmailLogID, err)
		return
	}
	if emailLog.Status.IsTerminal() {
		return
	}

	msg := &email.Message{
		To:             emailLog.ToEmail,
		Subject:        emailLog.Subject,
		Body:           emailLog.Body,
		AttachmentPath: emailLog.AttachmentPath,
	}

	var sendErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		emailLog.Attempts++
		sendErr = s.mailer.Send(msg)
		if sendErr == nil {
			break
		}
		emailLog.LastError = sendErr.Error()
		if email.IsPermanent(sendErr) {
			emailLog.Permanent = true
			break
		}
		// 1s, 2s, 4s between transient retries
		if attempt < s.maxAttempts {
			time.Sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
	}

	now := time.Now()
	if sendErr == nil {
		emailLog.Status = enum.EmailStatusSent
		emailLog.SentAt = &now
		emailLog.LastError = ""
	} else {
		emailLog.Status = enum.EmailStatusFailed
		emailLog.FailedAt = &now
	}

	if err := s.emailLogRepo.Update(ctx, emailLog); err != nil {
		log.Printf("email job %s: status update failed: %v", emailLog.ID, err)
	}

	if sendErr == nil {
		s.auditSvc.RecordBestEffort(&AuditEntry{
			ActorType:    enum.ActorTypeSystem,
			Action:       entity.AuditEmailDispatched,
			Description:  fmt.Sprintf("Email delivered to %s", emailLog.ToEmail),
			ResourceType: "email_log",
			ResourceID:   &emailLog.ID,
			Outcome:      enum.AuditOutcomeSuccess,
		})
		return
	}

	log.Printf("email job %s: delivery failed after %d attempts: %v", emailLog.ID, emailLog.Attempts, sendErr)
	s.auditSvc.RecordBestEffort(&AuditEntry{
		ActorType:    enum.ActorTypeSystem,
		Action:       entity.AuditEmailFailed,
		Description:  fmt.Sprintf("Email to %s failed", emailLog.ToEmail),
		ResourceType: "email_log",
		ResourceID:   &emailLog.ID,
		Outcome:      enum.AuditOutcomeFailure,
		ErrorMessage: sendErr.Error(),
	})

	if err := s.NotifyOwner(ctx, emailLog.UserID, entity.NotificationEmailFailed,
		"Receipt email delivery failed",
		fmt.Sprintf("We could not deliver your receipt email to %s.", emailLog.ToEmail),
		emailLog.ReceiptID,
	); err != nil {
		log.Printf("email job %s: failure notification: %v", emailLog.ID, err)
	}
}
