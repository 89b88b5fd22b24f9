// Package session keeps a portal login alive on the client side: it persists the
// tokens in two stores, verifies them at boot, renews the cached user on a timer and
// tears everything down on logout or when an auth endpoint rejects the token.
//
// Every verify or refresh result is tagged with the epoch observed when the call started
// and is applied only if the session was not cleared or replaced in between. A login is
// superseded only by Logout or by a newer login, tracked by a separate generation.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/config"
)

const (
	DefaultSettleDelay    = time.Second
	DefaultRenewInterval  = 30 * time.Minute
	DefaultRenewJitter    = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

type Options struct {
	BaseURL string
	Primary TokenStore
	// Backup defaults to a MemoryStore.
	Backup TokenStore

	// Zero selects the default. A negative SettleDelay or RenewJitter disables the wait.
	SettleDelay    time.Duration
	RenewInterval  time.Duration
	RenewJitter    time.Duration
	RequestTimeout time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
	// OnCleared runs after the session was cleared by anything but Logout.
	OnCleared func(reason string)
}

// OptionsFromConfig maps the session section of the portal config onto Options.
func OptionsFromConfig(cfg config.Session, primary, backup TokenStore, log *zap.Logger) Options {
	return Options{
		BaseURL:        cfg.BaseURL,
		Primary:        primary,
		Backup:         backup,
		SettleDelay:    cfg.SettleDelay,
		RenewInterval:  cfg.RenewInterval,
		RenewJitter:    cfg.RenewJitter,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	}
}

type renewal struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type Manager struct {
	opts   Options
	logger *zap.Logger
	raw    *http.Client
	client *http.Client

	mu     sync.Mutex
	state  State
	creds  Credentials
	user   *models.User
	epoch  uint64
	renew  *renewal
	closed bool

	// generation moves on Logout and on every established session only.
	generation uint64
}

func New(opts Options) (*Manager, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("session: invalid base URL %q", opts.BaseURL)
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	if opts.Primary == nil {
		return nil, errors.New("session: primary store is required")
	}
	if opts.Backup == nil {
		opts.Backup = NewMemoryStore()
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.RenewInterval <= 0 {
		opts.RenewInterval = DefaultRenewInterval
	}
	if opts.RenewJitter == 0 {
		opts.RenewJitter = DefaultRenewJitter
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &Manager{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "session")),
		raw:    opts.HTTPClient,
	}

	base := opts.HTTPClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := *opts.HTTPClient
	client.Transport = &hookTransport{manager: m, base: base}
	m.client = &client

	return m, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns a copy of the cached user, or nil when unauthenticated.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Token returns the access token of the current session, or "" when there is none.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.AccessToken
}

// Client returns an http.Client whose requests carry the session token and whose
// responses from auth endpoints can clear the session.
func (m *Manager) Client() *http.Client {
	return m.client
}

// Boot restores a stored session. It waits SettleDelay, then verifies the stored token.
// A 401, 403 or 429 erases the stored token. Any other failure leaves the manager
// Unauthenticated with the token kept for the next boot, and is returned.
func (m *Manager) Boot(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != Unauthenticated {
		m.mu.Unlock()
		return nil
	}
	creds := m.loadLocked()
	if creds.Empty() {
		m.mu.Unlock()
		return nil
	}
	m.epoch++
	epoch := m.epoch
	m.creds = creds
	m.state = Verifying
	m.mu.Unlock()

	if err := sleep(ctx, m.opts.SettleDelay); err != nil {
		m.abandon(epoch)
		return err
	}

	user, err := m.verify(ctx, creds.AccessToken)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return nil
	}
	switch {
	case err == nil:
		m.user = user
		m.state = Authenticated
		m.startRenewalLocked()
		m.mu.Unlock()
		m.logger.Info("Session restored", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
		return nil

	case rejectsSession(StatusCode(err)):
		m.clearLocked()
		m.mu.Unlock()
		m.logger.Info("Stored session rejected", zap.Error(err))
		m.cleared(ReasonVerifyRejected)
		return nil

	default:
		m.creds = Credentials{}
		m.state = Unauthenticated
		m.mu.Unlock()
		m.logger.Warn("Session verification failed, keeping stored token", zap.Error(err))
		return err
	}
}

// abandon resets an interrupted boot without touching the stores.
func (m *Manager) abandon(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch == epoch {
		m.creds = Credentials{}
		m.state = Unauthenticated
	}
}

// Login authenticates with email and password and starts a new session.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	return m.establish(ctx, pathLogin, body)
}

// RegisterInput is the body of a self-service registration.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

// Register creates a client account and starts a session for it.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return m.establish(ctx, pathRegister, in)
}

type sessionPayload struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

func (m *Manager) establish(ctx context.Context, path string, body any) (*models.User, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	gen := m.generation
	m.mu.Unlock()

	var payload sessionPayload
	err := m.call(ctx, http.MethodPost, path, "", body, &payload)
	if err == nil && (payload.User == nil || payload.Token == "") {
		err = fmt.Errorf("session: %s returned no session", path)
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err != nil {
		code := StatusCode(err)
		if (code == http.StatusUnauthorized || code == http.StatusTooManyRequests) && m.hasSessionLocked() {
			m.clearLocked()
			m.mu.Unlock()
			m.cleared(ReasonAuthEndpoint)
			return nil, err
		}
		m.mu.Unlock()
		return nil, err
	}

	m.stopRenewalLocked()
	m.epoch++
	m.generation++
	m.creds = Credentials{AccessToken: payload.Token, RefreshToken: payload.RefreshToken}
	m.saveLocked(m.creds)
	m.user = payload.User
	m.state = Authenticated
	m.startRenewalLocked()
	user := *payload.User
	m.mu.Unlock()

	m.logger.Info("Session started", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return &user, nil
}

// Refresh trades the stored refresh token for a new token pair. A 401 clears the session.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Authenticated && m.state != Renewing {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	epoch := m.epoch
	refresh := m.creds.RefreshToken
	m.mu.Unlock()

	if refresh == "" {
		return ErrNotAuthenticated
	}

	var pair sessionPayload
	err := m.call(ctx, http.MethodPost, pathRefresh, "", map[string]string{"refreshToken": refresh}, &pair)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		if StatusCode(err) == http.StatusUnauthorized {
			m.clearLocked()
			m.mu.Unlock()
			m.cleared(ReasonRefreshRejected)
			return err
		}
		m.mu.Unlock()
		return err
	}
	m.creds = Credentials{AccessToken: pair.Token, RefreshToken: pair.RefreshToken}
	m.saveLocked(m.creds)
	m.mu.Unlock()

	m.logger.Debug("Session tokens rotated")
	return nil
}

// Logout tears the session down locally, then tells the server on a best-effort basis.
// The local teardown never depends on the network. Calling it again is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	token := m.creds.AccessToken
	if token == "" {
		if stored := m.loadLocked(); !stored.Empty() {
			token = stored.AccessToken
		}
	}
	m.generation++
	m.clearLocked()
	m.mu.Unlock()

	if token == "" {
		return nil
	}
	if err := m.call(ctx, http.MethodPost, pathLogout, token, nil, nil); err != nil {
		m.logger.Debug("Server logout failed", zap.Error(err))
	}
	m.logger.Info("Logged out")
	return nil
}

// Close stops the renewal timer and waits for it. The stored session is kept.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	r := m.renew
	m.stopRenewalLocked()
	m.mu.Unlock()

	if r != nil {
		<-r.done
	}
	return nil
}

func (m *Manager) verify(ctx context.Context, token string) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := m.call(ctx, http.MethodGet, pathVerify, token, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, errors.New("session: verify returned no user")
	}
	return out.User, nil
}

func (m *Manager) hasSessionLocked() bool {
	return m.state != Unauthenticated || !m.creds.Empty()
}

// clearLocked is the single teardown path: it starts a new epoch so in-flight results
// are dropped, stops renewal and empties both stores.
func (m *Manager) clearLocked() {
	m.epoch++
	m.stopRenewalLocked()
	m.creds = Credentials{}
	m.user = nil
	m.state = Unauthenticated

	if err := m.opts.Primary.Clear(); err != nil {
		m.logger.Warn("Failed to clear primary token store", zap.Error(err))
	}
	if err := m.opts.Backup.Clear(); err != nil {
		m.logger.Warn("Failed to clear backup token store", zap.Error(err))
	}
}

func (m *Manager) cleared(reason string) {
	m.logger.Info("Session cleared", zap.String("reason", reason))
	if m.opts.OnCleared != nil {
		m.opts.OnCleared(reason)
	}
}

// loadLocked reads both stores. The primary wins; a side that is missing or differs
// is rewritten from the other.
func (m *Manager) loadLocked() Credentials {
	primary, err := m.opts.Primary.Load()
	if err != nil {
		m.logger.Warn("Failed to read primary token store", zap.Error(err))
	}
	backup, err := m.opts.Backup.Load()
	if err != nil {
		m.logger.Warn("Failed to read backup token store", zap.Error(err))
	}

	switch {
	case !primary.Empty():
		if backup != primary {
			if err := m.opts.Backup.Save(primary); err != nil {
				m.logger.Warn("Failed to repair backup token store", zap.Error(err))
			}
		}
		return primary
	case !backup.Empty():
		if err := m.opts.Primary.Save(backup); err != nil {
			m.logger.Warn("Failed to repair primary token store", zap.Error(err))
		}
		return backup
	}
	return Credentials{}
}

func (m *Manager) saveLocked(c Credentials) {
	if err := m.opts.Primary.Save(c); err != nil {
		m.logger.Warn("Failed to write primary token store", zap.Error(err))
	}
	if err := m.opts.Backup.Save(c); err != nil {
		m.logger.Warn("Failed to write backup token store", zap.Error(err))
	}
}

func (m *Manager) startRenewalLocked() {
	m.stopRenewalLocked()
	if m.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &renewal{cancel: cancel, done: make(chan struct{})}
	m.renew = r
	go m.renewLoop(ctx, r.done, m.epoch)
}

// stopRenewalLocked cancels the loop without waiting: the loop itself takes the lock.
func (m *Manager) stopRenewalLocked() {
	if m.renew != nil {
		m.renew.cancel()
		m.renew = nil
	}
}

func (m *Manager) renewLoop(ctx context.Context, done chan<- struct{}, epoch uint64) {
	defer close(done)

	ticker := time.NewTicker(m.opts.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !m.renewOnce(ctx, epoch) {
			return
		}
	}
}

// renewOnce runs one tick and reports whether the loop should continue.
func (m *Manager) renewOnce(ctx context.Context, epoch uint64) bool {
	m.mu.Lock()
	if m.epoch != epoch || m.state != Authenticated {
		m.mu.Unlock()
		return m.epoch == epoch
	}
	stored := m.loadLocked()
	if stored.Empty() {
		// another process logged out
		m.clearLocked()
		m.mu.Unlock()
		m.cleared(ReasonStoreEmpty)
		return false
	}
	m.creds = stored
	m.state = Renewing
	m.mu.Unlock()

	if err := sleep(ctx, m.jitter()); err != nil {
		m.mu.Lock()
		if m.epoch == epoch && m.state == Renewing {
			m.state = Authenticated
		}
		m.mu.Unlock()
		return false
	}

	user, err := m.verify(ctx, stored.AccessToken)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	switch {
	case err == nil:
		m.user = user
		m.state = Authenticated
		m.mu.Unlock()
		m.logger.Debug("Session renewed", zap.String("role", string(user.Role)))
		return true

	case rejectsSession(StatusCode(err)):
		m.clearLocked()
		m.mu.Unlock()
		m.cleared(ReasonRenewRejected)
		return false

	default:
		m.state = Authenticated
		m.mu.Unlock()
		m.logger.Warn("Session renewal failed, retrying on next tick", zap.Error(err))
		return true
	}
}

func (m *Manager) jitter() time.Duration {
	if m.opts.RenewJitter <= 0 {
		return 0
	}
	return rand.N(m.opts.RenewJitter)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
