package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/auth/database"
	"github.com/victorgomez09/portal/internal/auth/models"
)

// Audit actions written by the portal manager.
const (
	ActionRequestCreated       = "request_created"
	ActionRequestUpdated       = "request_updated"
	ActionRequestStatusChanged = "request_status_changed"
	ActionPageCreated          = "page_created"
	ActionPageUpdated          = "page_updated"
	ActionPageStatusChanged    = "page_status_changed"
)

// Notification kinds.
const (
	NotificationRequestStatus = "request_status"
)

// Notifier delivers a notification that has already been stored.
type Notifier interface {
	Deliver(ctx context.Context, n *models.Notification, email string)
}

// Manager owns the portal's domain records: service requests, content pages, notifications
// and the audit trail. Callers are expected to have passed the Auth Gate; ownership of
// client records is still checked here.
type Manager struct {
	db       *database.SQLiteDB
	notifier Notifier
	logger   *zap.Logger
}

func NewManager(db *database.SQLiteDB, notifier Notifier, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		db:       db,
		notifier: notifier,
		logger:   logger,
	}
}

func (m *Manager) audit(ctx context.Context, q *database.Queries, actorID int64, action, detail, ip string) error {
	return q.CreateAuditLog(ctx, &models.AuditLog{UserID: &actorID, Action: action, Detail: detail, IP: ip})
}

func (m *Manager) deliver(ctx context.Context, n *models.Notification, email string) {
	if m.notifier == nil || n == nil {
		return
	}
	m.notifier.Deliver(ctx, n, email)
}

// ListAudit pages through the audit log. A zero userID lists every entry.
func (m *Manager) ListAudit(ctx context.Context, userID int64, action string, page, limit int) ([]models.AuditLog, models.Page, error) {
	var uid *int64
	if userID != 0 {
		uid = &userID
	}
	p := models.NewPage(page, limit, 0)
	items, total, err := m.db.ListAuditLogs(ctx, uid, action, p)
	if err != nil {
		return nil, p, err
	}
	return items, models.NewPage(page, limit, total), nil
}
