package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/victorgomez09/portal/internal/auth/database"
	authmw "github.com/victorgomez09/portal/internal/auth/middleware"
	"github.com/victorgomez09/portal/internal/auth/models"
	authservice "github.com/victorgomez09/portal/internal/auth/service"
	"github.com/victorgomez09/portal/internal/auth/token"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/metrics"
	"github.com/victorgomez09/portal/internal/notify"
	"github.com/victorgomez09/portal/internal/service"
)

const password = "Blue7Harbor!"

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  []cerr.FieldError `json:"errors"`
}

type testAPI struct {
	mux    http.Handler
	hub    *notify.Hub
	portal *service.Manager
	admin  models.Identity
	tokens map[string]string
	users  map[string]*models.User
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "portal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := token.New(token.Config{Secret: []byte("client-test-secret-client-test-secret")})
	require.NoError(t, err)

	m := metrics.New()
	hub := notify.NewHub(nil, m, nil)
	notifier := notify.NewNotifier(db, hub, notify.NoopMailer{}, nil, m)
	t.Cleanup(notifier.Wait)

	auth := authservice.NewAuthService(db, tokens, authservice.AuthConfig{BcryptCost: bcrypt.MinCost}, notifier, nil, m)
	portal := service.NewManager(db, notifier, nil)
	writer := cerr.NewWriter(nil, false)

	mux := http.NewServeMux()
	NewClientAPI(auth, portal, hub, writer, nil).Routes(mux, authmw.NewGate(auth, writer, nil))

	api := &testAPI{mux: mux, hub: hub, portal: portal, tokens: map[string]string{}, users: map[string]*models.User{}}

	for _, name := range []string{"cora", "dana"} {
		s, err := auth.Register(ctx, authservice.RegisterInput{
			Email: name + "@example.com", Password: password, FirstName: strings.ToUpper(name[:1]) + name[1:], LastName: "Client",
		}, "")
		require.NoError(t, err)
		api.tokens[name] = s.Token
		api.users[name] = s.User
	}

	admin, err := auth.CreateUser(ctx, nil, authservice.CreateUserInput{
		RegisterInput: authservice.RegisterInput{Email: "root@example.com", Password: password, FirstName: "Root", LastName: "Admin"},
		Role:          models.RoleAdmin,
	}, "")
	require.NoError(t, err)
	api.admin = admin.Identity()
	s, err := auth.Login(ctx, "root@example.com", password, "")
	require.NoError(t, err)
	api.tokens["root"] = s.Token

	return api
}

func (a *testAPI) do(t *testing.T, method, path, who string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[who])
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *testAPI) createRequest(t *testing.T, who string) models.ServiceRequest {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/client/requests", who, service.RequestInput{
		Title: "Cloud migration", Description: "Move our ERP", ServiceType: "consulting",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var req models.ServiceRequest
	require.NoError(t, json.Unmarshal(env.Data, &req))
	return req
}

func TestClientRoutes_AdminsAreAllowed(t *testing.T) {
	api := newTestAPI(t)

	code, _ := api.do(t, http.MethodGet, "/api/client/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := api.do(t, http.MethodGet, "/api/client/profile", "root", nil)
	require.Equal(t, http.StatusOK, code)
	var user models.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestProfile_Update(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(t, http.MethodPut, "/api/client/profile", "cora", authservice.ProfileInput{
		FirstName: "Cora", LastName: "Lee", Company: "Acme",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	var user models.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Acme", user.Company)

	code, env = api.do(t, http.MethodPut, "/api/client/profile", "cora", authservice.ProfileInput{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Len(t, env.Errors, 2)
}

func TestRequests_ScopedToOwner(t *testing.T) {
	api := newTestAPI(t)
	req := api.createRequest(t, "cora")
	path := "/api/client/requests/" + strconv.FormatInt(req.ID, 10)

	code, _ := api.do(t, http.MethodGet, path, "dana", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.do(t, http.MethodGet, path, "root", nil)
	assert.Equal(t, http.StatusNotFound, code, "the client tree never shows other people's requests")

	code, env := api.do(t, http.MethodGet, "/api/client/requests", "dana", nil)
	require.Equal(t, http.StatusOK, code)
	var page models.Paged[models.ServiceRequest]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.Items)

	code, _ = api.do(t, http.MethodGet, path, "cora", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRequests_CancelPendingOnly(t *testing.T) {
	api := newTestAPI(t)
	req := api.createRequest(t, "cora")
	path := "/api/client/requests/" + strconv.FormatInt(req.ID, 10)

	code, _ := api.do(t, http.MethodPatch, path+"/status", "cora", StatusRequest{Status: "completed"})
	assert.Equal(t, http.StatusForbidden, code)

	_, err := api.portal.SetRequestStatus(context.Background(), api.admin, req.ID, models.RequestInReview, "")
	require.NoError(t, err)

	code, _ = api.do(t, http.MethodPut, path, "cora", service.RequestInput{
		Title: "Changed", Description: "Changed", ServiceType: "audit",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = api.do(t, http.MethodPatch, path+"/status", "cora", StatusRequest{Status: "cancelled"})
	assert.Equal(t, http.StatusConflict, code)
}

func TestNotifications_ListReadAndCount(t *testing.T) {
	api := newTestAPI(t)

	// registration leaves a welcome notification
	code, env := api.do(t, http.MethodGet, "/api/client/notifications/unread-count", "cora", nil)
	require.Equal(t, http.StatusOK, code)
	var count UnreadCount
	require.NoError(t, json.Unmarshal(env.Data, &count))
	assert.Equal(t, 1, count.Unread)

	code, env = api.do(t, http.MethodGet, "/api/client/notifications?unread=true", "cora", nil)
	require.Equal(t, http.StatusOK, code)
	var page models.Paged[models.Notification]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)

	path := "/api/client/notifications/" + strconv.FormatInt(page.Items[0].ID, 10) + "/read"
	code, _ = api.do(t, http.MethodPatch, path, "dana", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.do(t, http.MethodPatch, path, "cora", nil)
	require.Equal(t, http.StatusOK, code)

	_, env = api.do(t, http.MethodGet, "/api/client/notifications/unread-count", "cora", nil)
	require.NoError(t, json.Unmarshal(env.Data, &count))
	assert.Zero(t, count.Unread)
}

func TestNotifications_StreamReceivesStatusChange(t *testing.T) {
	api := newTestAPI(t)
	req := api.createRequest(t, "cora")

	srv := httptest.NewServer(api.mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/client/notifications/stream?access_token=" + api.tokens["cora"]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	cora := api.users["cora"].ID
	require.Eventually(t, func() bool { return api.hub.Clients(cora) == 1 }, time.Second, 10*time.Millisecond)

	_, err = api.portal.SetRequestStatus(context.Background(), api.admin, req.ID, models.RequestInProgress, "")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event struct {
		Type string              `json:"type"`
		Data models.Notification `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, notify.EventNotification, event.Type)
	assert.Equal(t, service.NotificationRequestStatus, event.Data.Kind)
}

func TestNotifications_StreamRejectsMissingToken(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.mux)
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/client/notifications/stream", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
