package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/config"
	"github.com/victorgomez09/portal/internal/metrics"
)

// Purger deletes rows older than a cutoff.
type Purger interface {
	PurgeAuditLogs(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeReadNotifications(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention trims the audit log and read notifications. A zero retention keeps rows forever.
type Retention struct {
	store   Purger
	cfg     config.Jobs
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRetention(store Purger, cfg config.Jobs, logger *zap.Logger, m *metrics.Metrics) *Retention {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retention{store: store, cfg: cfg, logger: logger, metrics: m, now: time.Now}
}

// Run purges both tables. Both purges are attempted even if the first fails.
func (r *Retention) Run(ctx context.Context) error {
	now := r.now()
	var errs []error

	if r.cfg.AuditRetention > 0 {
		n, err := r.store.PurgeAuditLogs(ctx, now.Add(-r.cfg.AuditRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("audit logs: %w", err))
		} else {
			r.purged("audit_logs", n)
		}
	}

	if r.cfg.NotificationRetention > 0 {
		n, err := r.store.PurgeReadNotifications(ctx, now.Add(-r.cfg.NotificationRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("notifications: %w", err))
		} else {
			r.purged("notifications", n)
		}
	}

	return errors.Join(errs...)
}

func (r *Retention) purged(table string, n int64) {
	r.metrics.Purged(table, n)
	if n > 0 {
		r.logger.Info("Purged expired rows", zap.String("table", table), zap.Int64("rows", n))
	}
}
