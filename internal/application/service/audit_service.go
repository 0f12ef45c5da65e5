package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
)

const auditRetryAttempts = 3

// AuditEntry is the input for recording one audit event
type AuditEntry struct {
	ActorID      *uuid.UUID
	ActorType    enum.ActorType
	Action       entity.AuditAction
	Description  string
	ResourceType string
	ResourceID   *uuid.UUID
	Outcome      enum.AuditOutcome
	ErrorMessage string
	Metadata     map[string]interface{}
	IPAddress    string
	UserAgent    string
}

// AuditService records state-changing operations into the append-only trail.
//
// Two write paths exist. Record writes through synchronously and its error
// aborts the caller's operation; it is for events that must not be lost
// (token denials, admin actions). RecordBestEffort enqueues onto a bounded
// channel drained by a background worker that retries transient failures;
// it never blocks or fails the calling operation.
type AuditService struct {
	auditRepo repository.AuditRepository
	retention time.Duration

	queue chan *entity.AuditLog
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewAuditService creates a new audit service. queueSize bounds the
// best-effort backlog; a full queue drops the entry with a log line rather
// than stalling business operations.
func NewAuditService(auditRepo repository.AuditRepository, retentionDays, queueSize int) *AuditService {
	if queueSize < 1 {
		queueSize = 1024
	}
	return &AuditService{
		auditRepo: auditRepo,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		queue:     make(chan *entity.AuditLog, queueSize),
		stop:      make(chan struct{}),
	}
}

// Start launches the best-effort writer worker
func (s *AuditService) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Stop drains the queue and stops the worker
func (s *AuditService) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// Record writes an audit entry synchronously. The caller's operation should
// abort when this fails.
func (s *AuditService) Record(ctx context.Context, e *AuditEntry) error {
	entry := s.build(e)
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("record audit %s: %w", e.Action, err)
	}
	return nil
}

// RecordBestEffort enqueues an audit entry for asynchronous persistence.
// Never blocks; a saturated queue drops the entry.
func (s *AuditService) RecordBestEffort(e *AuditEntry) {
	entry := s.build(e)
	select {
	case s.queue <- entry:
	default:
		log.Printf("audit queue full, dropping entry action=%s resource=%v", entry.Action, entry.ResourceID)
	}
}

// Query lists audit entries with filtering, newest first
func (s *AuditService) Query(ctx context.Context, params *repository.AuditFilterParams) (*pagination.PaginatedResult[entity.AuditLog], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	entries, total, err := s.auditRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(entries, pag), nil
}

// Sweep deletes entries older than the retention window and records the
// sweep itself as an audit entry, so the trail shows when and how much
// history was purged.
func (s *AuditService) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention sweep: %w", err)
	}

	if err := s.Record(ctx, &AuditEntry{
		ActorType:   enum.ActorTypeSystem,
		Action:      entity.AuditRetentionSweep,
		Description: fmt.Sprintf("Purged %d audit entries older than %s", deleted, cutoff.Format(time.RFC3339)),
		Outcome:     enum.AuditOutcomeSuccess,
	}); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// RunSweeper periodically invokes Sweep until the context is cancelled
func (s *AuditService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Printf("audit retention sweep failed: %v", err)
			}
		}
	}
}

func (s *AuditService) build(e *AuditEntry) *entity.AuditLog {
	entry := &entity.AuditLog{
		ActorID:      e.ActorID,
		ActorType:    e.ActorType,
		Action:       e.Action,
		Description:  e.Description,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Outcome:      e.Outcome,
		ErrorMessage: e.ErrorMessage,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		CreatedAt:    time.Now(),
	}
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			entry.Metadata = string(b)
		}
	}
	return entry
}

func (s *AuditService) worker() {
	defer s.wg.Done()
	for {
		select {
		case entry := <-s.queue:
			s.persistWithRetry(entry)
		case <-s.stop:
			// Drain whatever is still queued before exiting
			for {
				select {
				case entry := <-s.queue:
					s.persistWithRetry(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *AuditService) persistWithRetry(entry *entity.AuditLog) {
	var err error
	for attempt := 1; attempt <= auditRetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = s.auditRepo.Create(ctx, entry)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	log.Printf("audit entry lost after %d attempts action=%s: %v", auditRetryAttempts, entry.Action, err)
}
