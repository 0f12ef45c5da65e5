package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/pkg/email"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
	"github.com/finveo/invoiceflow-api/pkg/pdfgen"
)

var errTransient = errors.New("transient store failure")

// In-memory repository fakes. They reproduce the concurrency contracts the
// real Postgres implementations provide (atomic sequence increment, token
// consume guard, versioned receipt updates) so service-level races can be
// exercised without a database.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeReceiptRepo struct {
	mu       sync.Mutex
	receipts map[uuid.UUID]*entity.Receipt
	items    map[uuid.UUID][]entity.ReceiptItem

	// alwaysConflict makes every versioned update lose, simulating a
	// permanently contended row
	alwaysConflict bool

	// createErr fails every insert, simulating a store-level integrity
	// violation
	createErr error
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{
		receipts: make(map[uuid.UUID]*entity.Receipt),
		items:    make(map[uuid.UUID][]entity.ReceiptItem),
	}
}

func (r *fakeReceiptRepo) Create(_ context.Context, receipt *entity.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	items := make([]entity.ReceiptItem, len(receipt.Items))
	copy(items, receipt.Items)
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].ReceiptID = receipt.ID
	}
	cp := *receipt
	cp.Items = nil
	r.receipts[receipt.ID] = &cp
	r.items[receipt.ID] = items
	return nil
}

func (r *fakeReceiptRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[id]
	if !ok {
		return nil, nil
	}
	cp := *receipt
	return &cp, nil
}

func (r *fakeReceiptRepo) GetByNumber(_ context.Context, number string) (*entity.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, receipt := range r.receipts {
		if receipt.ReceiptNumber == number {
			cp := *receipt
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeReceiptRepo) GetByPaymentID(_ context.Context, paymentID uuid.UUID) (*entity.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, receipt := range r.receipts {
		if receipt.PaymentID != nil && *receipt.PaymentID == paymentID {
			cp := *receipt
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeReceiptRepo) GetWithItems(_ context.Context, id uuid.UUID) (*entity.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[id]
	if !ok {
		return nil, nil
	}
	cp := *receipt
	cp.Items = make([]entity.ReceiptItem, len(r.items[id]))
	copy(cp.Items, r.items[id])
	return &cp, nil
}

func (r *fakeReceiptRepo) UpdateVersioned(_ context.Context, receipt *entity.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.alwaysConflict {
		return repository.ErrVersionConflict
	}
	stored, ok := r.receipts[receipt.ID]
	if !ok || stored.Version != receipt.Version {
		return repository.ErrVersionConflict
	}
	receipt.Version++
	cp := *receipt
	cp.Items = nil
	r.receipts[receipt.ID] = &cp
	return nil
}

func (r *fakeReceiptRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.receipts, id)
	delete(r.items, id)
	return nil
}

func (r *fakeReceiptRepo) ReplaceItems(_ context.Context, receiptID uuid.UUID, items []entity.ReceiptItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := make([]entity.ReceiptItem, len(items))
	copy(replaced, items)
	for i := range replaced {
		if replaced[i].ID == uuid.Nil {
			replaced[i].ID = uuid.New()
		}
		replaced[i].ReceiptID = receiptID
	}
	r.items[receiptID] = replaced
	return nil
}

func (r *fakeReceiptRepo) List(_ context.Context, params *repository.ReceiptFilterParams) ([]entity.Receipt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Receipt
	for _, receipt := range r.receipts {
		if params.UserID != nil && receipt.UserID != *params.UserID {
			continue
		}
		if params.Status != nil && receipt.Status != *params.Status {
			continue
		}
		if params.Type != nil && receipt.ReceiptType != *params.Type {
			continue
		}
		out = append(out, *receipt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceiptNumber < out[j].ReceiptNumber })
	return out, int64(len(out)), nil
}

func (r *fakeReceiptRepo) Stats(_ context.Context) (*repository.ReceiptStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &repository.ReceiptStats{
		Total:    int64(len(r.receipts)),
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]int64),
	}
	for _, receipt := range r.receipts {
		stats.ByStatus[receipt.Status.String()]++
		stats.ByType[receipt.ReceiptType.String()]++
	}
	return stats, nil
}

type fakeSequenceRepo struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{values: make(map[string]int64)}
}

func (r *fakeSequenceRepo) NextValue(_ context.Context, periodKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[periodKey]++
	return r.values[periodKey], nil
}

func (r *fakeSequenceRepo) Current(_ context.Context, periodKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[periodKey], nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*entity.SecureDownloadToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[uuid.UUID]*entity.SecureDownloadToken)}
}

func (r *fakeTokenRepo) Create(_ context.Context, token *entity.SecureDownloadToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	cp := *token
	r.tokens[token.ID] = &cp
	return nil
}

func (r *fakeTokenRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.SecureDownloadToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, nil
	}
	cp := *token
	return &cp, nil
}

func (r *fakeTokenRepo) GetByHash(_ context.Context, hash string) (*entity.SecureDownloadToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.TokenHash == hash {
			cp := *token
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTokenRepo) ConsumeDownload(_ context.Context, id uuid.UUID, now time.Time, ip, agent string) (*entity.SecureDownloadToken, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, false, nil
	}
	if token.Revoked || !now.Before(token.ExpiresAt) || token.DownloadCount >= token.MaxDownloads {
		return nil, false, nil
	}
	token.DownloadCount++
	if token.FirstAccessedAt == nil {
		first := now
		token.FirstAccessedAt = &first
	}
	last := now
	token.LastAccessedAt = &last
	token.LastAccessIP = ip
	token.LastAccessAgent = agent
	cp := *token
	return &cp, true, nil
}

func (r *fakeTokenRepo) Revoke(_ context.Context, id uuid.UUID, revokedBy uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok || token.Revoked {
		return nil
	}
	token.Revoked = true
	token.RevokedBy = &revokedBy
	token.RevokedAt = &now
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*entity.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*entity.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.TransactionID == transactionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) GetWithSubscription(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *fakePaymentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enum.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		p.Status = status
	}
	return nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*entity.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*entity.Invoice)}
}

func (r *fakeInvoiceRepo) add(inv *entity.Invoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	r.invoices[inv.ID] = inv
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	return inv, nil
}

func (r *fakeInvoiceRepo) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []entity.AuditLog
	failN   int
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failN > 0 {
		r.failN--
		return errTransient
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, params *repository.AuditFilterParams) ([]entity.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.AuditLog
	for _, e := range r.entries {
		if params.Action != nil && e.Action != *params.Action {
			continue
		}
		if params.ResourceType != "" && e.ResourceType != params.ResourceType {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []entity.AuditLog
	var deleted int64
	for _, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return deleted, nil
}

func (r *fakeAuditRepo) byAction(action entity.AuditAction) []entity.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.AuditLog
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*entity.Notification
	order         []uuid.UUID
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[uuid.UUID]*entity.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	cp := *n
	r.notifications[n.ID] = &cp
	r.order = append(r.order, n.ID)
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, _ *pagination.PaginationParams) ([]entity.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Notification
	for _, id := range r.order {
		n := r.notifications[id]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.notifications[id]; ok && !n.Read {
		now := time.Now()
		n.Read = true
		n.ReadAt = &now
	}
	return nil
}

func (r *fakeNotificationRepo) byType(nType entity.NotificationType) []entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Notification
	for _, id := range r.order {
		if n := r.notifications[id]; n.Type == nType {
			out = append(out, *n)
		}
	}
	return out
}

type fakeEmailLogRepo struct {
	mu   sync.Mutex
	logs map[uuid.UUID]*entity.EmailLog
}

func newFakeEmailLogRepo() *fakeEmailLogRepo {
	return &fakeEmailLogRepo{logs: make(map[uuid.UUID]*entity.EmailLog)}
}

func (r *fakeEmailLogRepo) Create(_ context.Context, log *entity.EmailLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

func (r *fakeEmailLogRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.EmailLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok {
		return nil, nil
	}
	cp := *log
	return &cp, nil
}

func (r *fakeEmailLogRepo) Update(_ context.Context, log *entity.EmailLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *log
	r.logs[log.ID] = &cp
	return nil
}

// fakeMailer records sends and fails according to a preset error sequence
type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	errs []error
}

func (m *fakeMailer) Send(msg *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return err
		}
	}
	m.sent = append(m.sent, *msg)
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeRenderer produces a tiny placeholder artifact
type fakeRenderer struct {
	err   error
	delay time.Duration
}

func (r *fakeRenderer) Render(ctx context.Context, _ *pdfgen.ReceiptData) ([]byte, error) {
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 test artifact"), nil
}

// stubViewer records view callbacks without a full receipt service
type stubViewer struct {
	mu    sync.Mutex
	views []uuid.UUID
}

func (v *stubViewer) RecordView(_ context.Context, receiptID uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.views = append(v.views, receiptID)
	return nil
}

func (v *stubViewer) viewCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.views)
}
