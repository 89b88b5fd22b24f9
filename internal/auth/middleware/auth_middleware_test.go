package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/cerr"
)

type stubAuth struct {
	users map[string]*models.User
	errs  map[string]error
	calls int
}

func (s *stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	s.calls++
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, apierr.ErrTokenMalformed
}

func newStub() *stubAuth {
	return &stubAuth{
		users: map[string]*models.User{
			"client-token": {ID: 1, Email: "c@example.com", Role: models.RoleClient, FirstName: "C", LastName: "Lient"},
			"admin-token":  {ID: 2, Email: "a@example.com", Role: models.RoleAdmin, FirstName: "A", LastName: "Dmin"},
		},
		errs: map[string]error{
			"expired-token":  apierr.ErrTokenExpired,
			"inactive-token": apierr.ErrInactiveUser,
			"db-down":        errors.New("database is locked"),
		},
	}
}

func serve(t *testing.T, h http.Handler, header string) (int, cerr.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/client/profile", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body cerr.Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestAuthenticate_Contract(t *testing.T) {
	var got models.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	g := NewGate(newStub(), cerr.NewWriter(nil, false), nil)
	h := g.Authenticate(next)

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"no header", "", http.StatusUnauthorized, "Access token required"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Access token required"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Access token required"},
		{"malformed", "Bearer garbage", http.StatusForbidden, "Invalid token"},
		{"expired", "Bearer expired-token", http.StatusUnauthorized, "Token expired"},
		{"inactive", "Bearer inactive-token", http.StatusUnauthorized, "Invalid or expired token"},
		{"store failure", "Bearer db-down", http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, h, tt.header)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, cerr.StatusError, body.Status)
			assert.Equal(t, tt.msg, body.Message)
		})
	}

	status, _ := serve(t, h, "bearer client-token")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.Identity{ID: 1, Email: "c@example.com", Role: models.RoleClient, FirstName: "C", LastName: "Lient"}, got)
}

func TestAuthenticate_RechecksEveryRequest(t *testing.T) {
	stub := newStub()
	h := NewGate(stub, cerr.NewWriter(nil, false), nil).Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for i := 0; i < 3; i++ {
		serve(t, h, "Bearer client-token")
	}
	assert.Equal(t, 3, stub.calls)
}

func TestAuthenticate_AttachesUserItRead(t *testing.T) {
	stub := newStub()
	var got *models.User
	h := NewGate(stub, cerr.NewWriter(nil, false), nil).Authenticate(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
	}))

	serve(t, h, "Bearer admin-token")
	assert.Same(t, stub.users["admin-token"], got)
	assert.Equal(t, 1, stub.calls)

	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}

func TestAuthenticate_WebsocketQueryToken(t *testing.T) {
	ok := false
	h := NewGate(newStub(), cerr.NewWriter(nil, false), nil).Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		ok = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/client/notifications/stream?access_token=client-token", nil)
	req.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, ok)

	ok = false
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/client/profile?access_token=client-token", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizeRoles(t *testing.T) {
	g := NewGate(newStub(), cerr.NewWriter(nil, false), nil)
	final := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	adminOnly := g.Authenticate(g.AuthorizeRoles(models.RoleAdmin)(final))
	clientOrAdmin := g.Authenticate(g.AuthorizeRoles(models.RoleClient, models.RoleAdmin)(final))

	status, body := serve(t, adminOnly, "Bearer client-token")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access denied. Required roles: admin. Your role: client", body.Message)

	status, _ = serve(t, adminOnly, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, status)

	status, _ = serve(t, clientOrAdmin, "Bearer client-token")
	assert.Equal(t, http.StatusOK, status)
	status, _ = serve(t, clientOrAdmin, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthorizeRoles_WithoutIdentity(t *testing.T) {
	g := NewGate(newStub(), cerr.NewWriter(nil, false), nil)
	h := g.AuthorizeRoles(models.RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	status, _ := serve(t, h, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
