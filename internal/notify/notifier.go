package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/metrics"
)

const (
	EventNotification = "notification"

	mailTimeout = 30 * time.Second
)

// Store persists notifications.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier stores notifications and delivers them over the stream and by mail.
type Notifier struct {
	store   Store
	hub     *Hub
	mailer  Mailer
	log     *zap.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

func NewNotifier(store Store, hub *Hub, mailer Mailer, log *zap.Logger, m *metrics.Metrics) *Notifier {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		store:   store,
		hub:     hub,
		mailer:  mailer,
		log:     log,
		metrics: m,
	}
}

// Notify persists n and then delivers it.
func (n *Notifier) Notify(ctx context.Context, note *models.Notification, email string) error {
	if err := n.store.CreateNotification(ctx, note); err != nil {
		return err
	}
	n.Deliver(ctx, note, email)
	return nil
}

// Deliver pushes an already stored notification to open streams and mails it in the background.
// Delivery failures are logged and never returned.
func (n *Notifier) Deliver(ctx context.Context, note *models.Notification, email string) {
	if n.hub != nil {
		if sent := n.hub.Publish(note.UserID, EventNotification, note); sent > 0 {
			n.metrics.NotificationSent("websocket", nil)
		}
	}

	if email == "" {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()

		err := n.mailer.Send(mctx, email, note.Title, note.Message)
		n.metrics.NotificationSent("mail", err)
		if err != nil {
			n.log.Warn("Failed to send notification mail",
				zap.Int64("user_id", note.UserID),
				zap.String("kind", note.Kind),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until background mail deliveries finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
