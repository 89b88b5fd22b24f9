package database

import (
	"context"
	"fmt"
	"time"

	"github.com/victorgomez09/portal/internal/auth/models"
)

// CreateAuditLog inserts a new audit log into the audit_logs table.
func (q *Queries) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	log.CreatedAt = time.Now().UTC()
	res, err := q.q.ExecContext(ctx, `
        INSERT INTO audit_logs (user_id, action, detail, ip, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, log.UserID, log.Action, log.Detail, log.IP, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	log.ID, err = res.LastInsertId()
	return err
}

// ListAuditLogs pages through the log, newest first. A nil userID lists every entry.
func (q *Queries) ListAuditLogs(ctx context.Context, userID *int64, action string, page models.Page) ([]models.AuditLog, int, error) {
	var where conditions
	if userID != nil {
		where.add("user_id = ?", *userID)
	}
	if action != "" {
		where.add("action = ?", action)
	}

	total, err := q.count(ctx, "audit_logs", where)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.q.QueryContext(ctx, `
        SELECT id, user_id, action, detail, ip, created_at
        FROM audit_logs`+where.sql()+`
        ORDER BY created_at DESC, id DESC
        LIMIT ? OFFSET ?
    `, append(where.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	items := make([]models.AuditLog, 0, page.Limit)
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Detail, &l.IP, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}

	return items, total, rows.Err()
}

func (q *Queries) PurgeAuditLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.q.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge audit logs: %w", err)
	}
	return res.RowsAffected()
}
