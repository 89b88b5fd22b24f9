package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/victorgomez09/portal/internal/auth/models"
)

// fakeAPI answers the auth endpoints the way the portal does.
type fakeAPI struct {
	mu           sync.Mutex
	user         models.User
	verifyStatus int
	// verifyHold, when set, blocks verify until it is closed; verifyStarted is signalled first.
	verifyHold    chan struct{}
	verifyStarted chan struct{}
	// loginHold and loginStarted do the same for a correct login.
	loginHold    chan struct{}
	loginStarted chan struct{}
	issued       int

	verifyCalls atomic.Int32
	logoutCalls atomic.Int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		user:         models.User{ID: 7, Email: "cora@example.com", FirstName: "Cora", Role: models.RoleClient, Status: models.StatusActive},
		verifyStatus: http.StatusOK,
	}
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data any) {
	status := "Success"
	if code >= 400 {
		status = "Error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "message": msg, "data": data})
}

func (f *fakeAPI) session() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	return map[string]any{
		"user":         f.user,
		"token":        "access-" + strings.Repeat("x", f.issued),
		"refreshToken": "refresh-" + strings.Repeat("x", f.issued),
	}
}

func (f *fakeAPI) setVerify(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyStatus = code
}

func (f *fakeAPI) setRole(role models.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user.Role = role
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authed := strings.HasPrefix(r.Header.Get("Authorization"), "Bearer access-")

	switch r.URL.Path {
	case pathLogin:
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "right" {
			writeEnvelope(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		f.mu.Lock()
		hold, started := f.loginHold, f.loginStarted
		f.mu.Unlock()
		if started != nil {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		if hold != nil {
			<-hold
		}
		writeEnvelope(w, http.StatusOK, "Login successful", f.session())

	case pathRegister:
		writeEnvelope(w, http.StatusCreated, "Registration successful", f.session())

	case pathVerify:
		f.verifyCalls.Add(1)
		f.mu.Lock()
		hold, started, code, user := f.verifyHold, f.verifyStarted, f.verifyStatus, f.user
		f.mu.Unlock()
		if started != nil {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		if hold != nil {
			<-hold
		}
		if !authed {
			writeEnvelope(w, http.StatusUnauthorized, "Access token required", nil)
			return
		}
		if code != http.StatusOK {
			writeEnvelope(w, code, http.StatusText(code), nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "", map[string]any{"user": user})

	case pathRefresh:
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !strings.HasPrefix(body["refreshToken"], "refresh-") {
			writeEnvelope(w, http.StatusUnauthorized, "Invalid refresh token", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "Token refreshed", f.session())

	case pathLogout:
		f.logoutCalls.Add(1)
		writeEnvelope(w, http.StatusOK, "Logged out successfully", nil)

	case "/api/admin/users":
		if !authed {
			writeEnvelope(w, http.StatusUnauthorized, "Access token required", nil)
			return
		}
		writeEnvelope(w, http.StatusForbidden, "Access denied. Required roles: admin. Your role: client", nil)

	case "/api/client/requests":
		if !authed {
			writeEnvelope(w, http.StatusUnauthorized, "Access token required", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, "", map[string]any{"items": []any{}})

	default:
		writeEnvelope(w, http.StatusNotFound, "Route not found", nil)
	}
}

type fixture struct {
	api     *fakeAPI
	srv     *httptest.Server
	primary *MemoryStore
	backup  *MemoryStore
	cleared chan string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return &fixture{
		api:     api,
		srv:     srv,
		primary: NewMemoryStore(),
		backup:  NewMemoryStore(),
		cleared: make(chan string, 8),
	}
}

func (f *fixture) manager(t *testing.T, tweak ...func(*Options)) *Manager {
	t.Helper()
	opts := Options{
		BaseURL:        f.srv.URL,
		Primary:        f.primary,
		Backup:         f.backup,
		SettleDelay:    time.Millisecond,
		RenewInterval:  time.Hour,
		RenewJitter:    -1,
		RequestTimeout: 2 * time.Second,
		Logger:         zaptest.NewLogger(t),
		OnCleared:      func(reason string) { f.cleared <- reason },
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	m, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func (f *fixture) storesEmpty(t *testing.T) {
	t.Helper()
	p, _ := f.primary.Load()
	b, _ := f.backup.Load()
	assert.True(t, p.Empty(), "primary store should be empty")
	assert.True(t, b.Empty(), "backup store should be empty")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{BaseURL: "not a url", Primary: NewMemoryStore()})
	require.Error(t, err)

	_, err = New(Options{BaseURL: "http://localhost:8080"})
	require.Error(t, err)

	m, err := New(Options{BaseURL: "http://localhost:8080/", Primary: NewMemoryStore()})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", m.opts.BaseURL)
	assert.Equal(t, DefaultRenewInterval, m.opts.RenewInterval)
	assert.Equal(t, DefaultRequestTimeout, m.opts.RequestTimeout)
	assert.Equal(t, Unauthenticated, m.State())
}

func TestLogin_StoresBothSidesAndCachesUser(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	user, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, int64(7), m.User().ID)

	p, _ := f.primary.Load()
	b, _ := f.backup.Load()
	assert.Equal(t, m.Token(), p.AccessToken)
	assert.Equal(t, p, b)
	assert.NotEmpty(t, p.RefreshToken)
}

func TestLogin_WrongPasswordWhileUnauthenticated(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	_, err := m.Login(context.Background(), "cora@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, Unauthenticated, m.State())
	assert.Empty(t, f.cleared)
}

func TestLogin_RejectedWhileAuthenticatedClears(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	_, err = m.Login(context.Background(), "cora@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, Unauthenticated, m.State())
	assert.Equal(t, ReasonAuthEndpoint, <-f.cleared)
	f.storesEmpty(t)
}

func TestRegister_StartsSession(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	user, err := m.Register(context.Background(), RegisterInput{
		Email: "cora@example.com", Password: "right", FirstName: "Cora", LastName: "Lind",
	})
	require.NoError(t, err)
	assert.Equal(t, "cora@example.com", user.Email)
	assert.Equal(t, Authenticated, m.State())
}

func TestBoot_RestoresSessionWithOneVerify(t *testing.T) {
	f := newFixture(t)
	first := f.manager(t)
	_, err := first.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := f.manager(t)
	require.NoError(t, second.Boot(context.Background()))

	assert.Equal(t, Authenticated, second.State())
	assert.Equal(t, first.User(), second.User())
	assert.Equal(t, int32(1), f.api.verifyCalls.Load())
}

func TestBoot_NoStoredToken(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	require.NoError(t, m.Boot(context.Background()))
	assert.Equal(t, Unauthenticated, m.State())
	assert.Zero(t, f.api.verifyCalls.Load())
}

func TestBoot_RejectionClearsStoredSession(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusForbidden} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.primary.Save(Credentials{AccessToken: "access-x", RefreshToken: "refresh-x"}))
			f.api.setVerify(code)

			m := f.manager(t)
			require.NoError(t, m.Boot(context.Background()))

			assert.Equal(t, Unauthenticated, m.State())
			assert.Nil(t, m.User())
			assert.Equal(t, ReasonVerifyRejected, <-f.cleared)
			f.storesEmpty(t)
		})
	}
}

func TestBoot_TransientFailureKeepsToken(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		f := newFixture(t)
		stored := Credentials{AccessToken: "access-x", RefreshToken: "refresh-x"}
		require.NoError(t, f.primary.Save(stored))
		f.api.setVerify(http.StatusInternalServerError)

		m := f.manager(t)
		err := m.Boot(context.Background())
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, StatusCode(err))

		assert.Equal(t, Unauthenticated, m.State())
		p, _ := f.primary.Load()
		assert.Equal(t, stored, p)
		assert.Empty(t, f.cleared)
	})

	t.Run("network error", func(t *testing.T) {
		f := newFixture(t)
		stored := Credentials{AccessToken: "access-x"}
		require.NoError(t, f.primary.Save(stored))
		f.srv.Close()

		m := f.manager(t)
		err := m.Boot(context.Background())
		require.Error(t, err)
		assert.Zero(t, StatusCode(err))

		assert.Equal(t, Unauthenticated, m.State())
		assert.Empty(t, m.Token())
		p, _ := f.primary.Load()
		b, _ := f.backup.Load()
		assert.Equal(t, stored, p)
		assert.Equal(t, stored, b)
	})
}

func TestBoot_RepairsMissingStore(t *testing.T) {
	f := newFixture(t)
	stored := Credentials{AccessToken: "access-x", RefreshToken: "refresh-x"}
	require.NoError(t, f.backup.Save(stored))

	m := f.manager(t)
	require.NoError(t, m.Boot(context.Background()))
	assert.Equal(t, Authenticated, m.State())

	p, _ := f.primary.Load()
	assert.Equal(t, stored, p)
}

func TestBoot_TimesOutInsteadOfHanging(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.primary.Save(Credentials{AccessToken: "access-x"}))
	hold := make(chan struct{})
	defer close(hold)
	f.api.mu.Lock()
	f.api.verifyHold = hold
	f.api.mu.Unlock()

	m := f.manager(t, func(o *Options) { o.RequestTimeout = 50 * time.Millisecond })
	err := m.Boot(context.Background())
	require.Error(t, err)
	assert.Equal(t, Unauthenticated, m.State())

	p, _ := f.primary.Load()
	assert.False(t, p.Empty())
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, Unauthenticated, m.State())
	assert.Nil(t, m.User())
	assert.Empty(t, m.Token())
	f.storesEmpty(t)

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, Unauthenticated, m.State())
	f.storesEmpty(t)

	assert.Equal(t, int32(1), f.api.logoutCalls.Load())
	assert.Empty(t, f.cleared)
}

func TestLogout_SucceedsWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	f.srv.Close()
	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, Unauthenticated, m.State())
	f.storesEmpty(t)
}

func TestLogout_WinsOverInFlightRenewal(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, func(o *Options) { o.RenewInterval = 10 * time.Millisecond })
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	hold := make(chan struct{})
	started := make(chan struct{}, 1)
	f.api.mu.Lock()
	f.api.verifyHold = hold
	f.api.verifyStarted = started
	f.api.mu.Unlock()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("renewal never called verify")
	}
	assert.Equal(t, Renewing, m.State())

	require.NoError(t, m.Logout(context.Background()))
	close(hold)

	// give the renewal result time to arrive and be discarded
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, Unauthenticated, m.State())
	assert.Nil(t, m.User())
	f.storesEmpty(t)
}

// holdRenewal blocks the next renewal verify until the returned channel is closed.
// The held verify answers with code.
func (f *fixture) holdRenewal(t *testing.T, code int) chan struct{} {
	t.Helper()
	hold := make(chan struct{})
	started := make(chan struct{}, 1)
	f.api.mu.Lock()
	f.api.verifyHold = hold
	f.api.verifyStarted = started
	f.api.verifyStatus = code
	f.api.mu.Unlock()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("renewal never called verify")
	}
	// only the held call sees code; later renewals of a new session succeed
	f.api.setVerify(http.StatusOK)
	return hold
}

func TestLogin_WinsOverRenewalRejectionThatLandsFirst(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, func(o *Options) { o.RenewInterval = 10 * time.Millisecond })
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	verifyHold := f.holdRenewal(t, http.StatusUnauthorized)

	loginHold := make(chan struct{})
	loginStarted := make(chan struct{}, 1)
	f.api.mu.Lock()
	f.api.loginHold = loginHold
	f.api.loginStarted = loginStarted
	f.api.mu.Unlock()

	type result struct {
		user *models.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		u, err := m.Login(context.Background(), "cora@example.com", "right")
		done <- result{u, err}
	}()
	select {
	case <-loginStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("login never reached the server")
	}

	// the old session's renewal is rejected while the login is in flight
	close(verifyHold)
	select {
	case reason := <-f.cleared:
		assert.Equal(t, ReasonRenewRejected, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("renewal rejection did not clear the old session")
	}

	close(loginHold)
	res := <-done
	require.NoError(t, res.err)
	require.NotNil(t, res.user)

	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, "access-xx", m.Token())
	p, _ := f.primary.Load()
	b, _ := f.backup.Load()
	assert.Equal(t, "access-xx", p.AccessToken)
	assert.Equal(t, p, b)
}

func TestLogin_StaleRenewalResultIsDropped(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, func(o *Options) { o.RenewInterval = 10 * time.Millisecond })
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	verifyHold := f.holdRenewal(t, http.StatusUnauthorized)

	_, err = m.Register(context.Background(), RegisterInput{
		Email: "cora@example.com", Password: "right", FirstName: "Cora", LastName: "Reyes",
	})
	require.NoError(t, err)
	token := m.Token()

	// the rejection belongs to the previous session
	close(verifyHold)
	time.Sleep(50 * time.Millisecond)

	assert.NotEqual(t, Unauthenticated, m.State())
	assert.Equal(t, token, m.Token())
	assert.NotNil(t, m.User())
	assert.Empty(t, f.cleared)
	p, _ := f.primary.Load()
	assert.Equal(t, token, p.AccessToken)
}

func TestLogout_SupersedesInFlightLogin(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	loginHold := make(chan struct{})
	loginStarted := make(chan struct{}, 1)
	f.api.mu.Lock()
	f.api.loginHold = loginHold
	f.api.loginStarted = loginStarted
	f.api.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(context.Background(), "cora@example.com", "right")
		done <- err
	}()
	<-loginStarted

	require.NoError(t, m.Logout(context.Background()))
	close(loginHold)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, Unauthenticated, m.State())
	f.storesEmpty(t)
}

func TestRenewal_PicksUpRoleChange(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, func(o *Options) { o.RenewInterval = 10 * time.Millisecond })
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	f.api.setRole(models.RoleAdmin)
	require.Eventually(t, func() bool {
		u := m.User()
		return u != nil && u.Role == models.RoleAdmin
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRenewal_TransientErrorKeepsSession(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, func(o *Options) { o.RenewInterval = 10 * time.Millisecond })
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	f.api.setVerify(http.StatusBadGateway)
	require.Eventually(t, func() bool { return f.api.verifyCalls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	assert.NotEqual(t, Unauthenticated, m.State())
	assert.NotNil(t, m.User())
	assert.Empty(t, f.cleared)
}

func TestRenewal_RejectionClears(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, func(o *Options) { o.RenewInterval = 10 * time.Millisecond })
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	f.api.setVerify(http.StatusUnauthorized)
	select {
	case reason := <-f.cleared:
		assert.Equal(t, ReasonRenewRejected, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not cleared")
	}
	assert.Equal(t, Unauthenticated, m.State())
	f.storesEmpty(t)
}

func TestRenewal_StopsWhenStoreEmptied(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, func(o *Options) { o.RenewInterval = 10 * time.Millisecond })
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	// another process logged out
	require.NoError(t, f.primary.Clear())
	require.NoError(t, f.backup.Clear())

	assert.Equal(t, ReasonStoreEmpty, <-f.cleared)
	assert.Equal(t, Unauthenticated, m.State())
}

func TestRefresh_RotatesTokens(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)
	before := m.Token()

	require.NoError(t, m.Refresh(context.Background()))
	assert.NotEqual(t, before, m.Token())
	assert.Equal(t, Authenticated, m.State())

	p, _ := f.primary.Load()
	assert.Equal(t, m.Token(), p.AccessToken)
}

func TestRefresh_RejectedClears(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	m.mu.Lock()
	m.creds.RefreshToken = "revoked"
	m.mu.Unlock()

	err = m.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, ReasonRefreshRejected, <-f.cleared)
	f.storesEmpty(t)
}

func TestRefresh_RequiresSession(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	assert.ErrorIs(t, m.Refresh(context.Background()), ErrNotAuthenticated)
}

func TestClient_AdminRouteForbiddenKeepsSession(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	err = m.Call(context.Background(), http.MethodGet, "/api/admin/users", nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))

	assert.Equal(t, Authenticated, m.State())
	assert.NotEmpty(t, m.Token())
	assert.Empty(t, f.cleared)
}

func TestClient_AttachesToken(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	var page struct {
		Items []any `json:"items"`
	}
	require.NoError(t, m.Call(context.Background(), http.MethodGet, "/api/client/requests", nil, &page))
	assert.NotNil(t, page.Items)
}

func TestClient_AuthEndpointRejectionClears(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	f.api.setVerify(http.StatusUnauthorized)
	resp, err := m.Client().Get(f.srv.URL + pathVerify)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, Unauthenticated, m.State())
	assert.Equal(t, ReasonAuthEndpoint, <-f.cleared)
	f.storesEmpty(t)
}

func TestOnResponse_IgnoresStaleRequest(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)
	_, err := m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	req := m.OnRequest(httptest.NewRequest(http.MethodGet, f.srv.URL+pathVerify, nil))
	assert.Equal(t, "Bearer "+m.Token(), req.Header.Get("Authorization"))

	_, err = m.Login(context.Background(), "cora@example.com", "right")
	require.NoError(t, err)

	m.OnResponse(&http.Response{StatusCode: http.StatusUnauthorized, Request: req})
	assert.Equal(t, Authenticated, m.State())
}

func TestInvalidates(t *testing.T) {
	tests := []struct {
		path string
		code int
		want bool
	}{
		{pathVerify, http.StatusUnauthorized, true},
		{pathVerify, http.StatusTooManyRequests, true},
		{pathVerify, http.StatusForbidden, true},
		{pathVerify, http.StatusInternalServerError, false},
		{pathLogin, http.StatusUnauthorized, true},
		{pathRegister, http.StatusTooManyRequests, true},
		{pathLogin, http.StatusForbidden, false},
		{"/api/admin/users", http.StatusForbidden, false},
		{"/api/admin/users", http.StatusUnauthorized, false},
		{"/api/client/requests", http.StatusTooManyRequests, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, invalidates(tt.path, tt.code), "%s %d", tt.path, tt.code)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "renewing", Renewing.String())
	assert.Equal(t, "state(9)", State(9).String())
}
