package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/config"
	"github.com/victorgomez09/portal/internal/metrics"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	return f.err
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type memStore struct {
	mu    sync.Mutex
	notes []*models.Notification
	err   error
}

func (s *memStore) CreateNotification(_ context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = int64(len(s.notes) + 1)
	n.CreatedAt = time.Now().UTC()
	s.notes = append(s.notes, n)
	return nil
}

func dialStream(t *testing.T, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients(userID) == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_PublishReachesOnlyTheUser(t *testing.T) {
	hub := NewHub(zap.NewNop(), metrics.New(), nil)
	conn := dialStream(t, hub, 42)

	assert.Equal(t, 0, hub.Publish(7, EventNotification, "not for you"))
	assert.Equal(t, 1, hub.Publish(42, EventNotification, map[string]string{"title": "hello"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventNotification, ev.Type)
	assert.Equal(t, "hello", ev.Data["title"])
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	conn := dialStream(t, hub, 5)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients(5) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RunClosesConnectionsOnShutdown(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	conn := dialStream(t, hub, 9)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, []string{"https://portal.example.com"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, 1)
	}))
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestNotifier_NotifyStoresPushesAndMails(t *testing.T) {
	store := &memStore{}
	mailer := &fakeMailer{}
	hub := NewHub(zap.NewNop(), nil, nil)
	n := NewNotifier(store, hub, mailer, zap.NewNop(), metrics.New())

	note := &models.Notification{UserID: 3, Kind: "request_status", Title: "Request updated", Message: "Now in review"}
	require.NoError(t, n.Notify(context.Background(), note, "client@example.com"))
	n.Wait()

	assert.Equal(t, int64(1), note.ID)
	require.Equal(t, 1, mailer.count())
	assert.Equal(t, sentMail{"client@example.com", "Request updated", "Now in review"}, mailer.sent[0])
}

func TestNotifier_MailFailureIsNotReturned(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	n := NewNotifier(&memStore{}, nil, mailer, nil, nil)

	err := n.Notify(context.Background(), &models.Notification{UserID: 1, Title: "t", Message: "m"}, "a@b.io")
	require.NoError(t, err)
	n.Wait()
	assert.Equal(t, 1, mailer.count())
}

func TestNotifier_StoreFailureSkipsDelivery(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewNotifier(&memStore{err: errors.New("locked")}, nil, mailer, nil, nil)

	err := n.Notify(context.Background(), &models.Notification{UserID: 1}, "a@b.io")
	require.Error(t, err)
	n.Wait()
	assert.Zero(t, mailer.count())
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(config.Mail{})
	require.NoError(t, err)
	assert.IsType(t, NoopMailer{}, m)

	m, err = NewMailer(config.Mail{Enabled: true, SMTPHost: "smtp.example.com", SMTPPort: 587, From: "portal@example.com"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)
}
