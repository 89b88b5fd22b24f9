package service

import (
	"context"

	"github.com/victorgomez09/portal/internal/auth/models"
)

func (m *Manager) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, page, limit int) ([]models.Notification, models.Page, error) {
	p := models.NewPage(page, limit, 0)
	items, total, err := m.db.ListNotifications(ctx, userID, unreadOnly, p)
	if err != nil {
		return nil, p, err
	}
	return items, models.NewPage(page, limit, total), nil
}

// MarkRead marks one of userID's notifications read. Another user's notification is not found.
func (m *Manager) MarkRead(ctx context.Context, userID, id int64) error {
	return m.db.MarkNotificationRead(ctx, id, userID)
}

func (m *Manager) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return m.db.CountUnreadNotifications(ctx, userID)
}
