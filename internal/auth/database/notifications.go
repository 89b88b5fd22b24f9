package database

import (
	"context"
	"fmt"
	"time"

	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/models"
)

func (q *Queries) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now().UTC()
	res, err := q.q.ExecContext(ctx, `
        INSERT INTO notifications (user_id, kind, title, message, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, n.UserID, n.Kind, n.Title, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID, err = res.LastInsertId()
	return err
}

func (q *Queries) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, page models.Page) ([]models.Notification, int, error) {
	var where conditions
	where.add("user_id = ?", userID)
	if unreadOnly {
		where.add("read_at IS NULL")
	}

	total, err := q.count(ctx, "notifications", where)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.q.QueryContext(ctx, `
        SELECT id, user_id, kind, title, message, read_at, created_at
        FROM notifications`+where.sql()+`
        ORDER BY created_at DESC, id DESC
        LIMIT ? OFFSET ?
    `, append(where.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]models.Notification, 0, page.Limit)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}

	return items, total, rows.Err()
}

// MarkNotificationRead marks one of userID's notifications read. Marking twice is not an error.
func (q *Queries) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	res, err := q.q.ExecContext(ctx, `
        UPDATE notifications SET read_at = COALESCE(read_at, ?)
        WHERE id = ? AND user_id = ?
    `, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return expectAffected(res, apierr.ErrNotFound)
}

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID int64) (int, error) {
	var where conditions
	where.add("user_id = ?", userID)
	where.add("read_at IS NULL")
	return q.count(ctx, "notifications", where)
}

// PurgeReadNotifications deletes notifications read before cutoff.
func (q *Queries) PurgeReadNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.q.ExecContext(ctx,
		`DELETE FROM notifications WHERE read_at IS NOT NULL AND read_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return res.RowsAffected()
}
