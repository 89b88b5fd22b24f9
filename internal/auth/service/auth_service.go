package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/database"
	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/auth/token"
	"github.com/victorgomez09/portal/internal/auth/validation"
	"github.com/victorgomez09/portal/internal/metrics"
)

// Audit actions.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionLoginInactive  = "login_inactive"
	ActionLogout         = "logout"
	ActionRefresh        = "refresh"
	ActionUserCreated    = "user_created"
	ActionUserUpdated    = "user_updated"
	ActionStatusChanged  = "user_status_changed"
	ActionPasswordChange = "password_changed"
)

const NotificationWelcome = "welcome"

// AuthConfig holds the tunables of the authentication service.
type AuthConfig struct {
	BcryptCost int                       // bcrypt work factor for new password hashes
	Password   validation.PasswordPolicy // policy applied on register and password change
}

// Notifier delivers a notification that has already been stored.
type Notifier interface {
	Deliver(ctx context.Context, n *models.Notification, email string)
}

// AuthService implements registration, login, token refresh and the user lifecycle
// on top of the credential store and the token service.
type AuthService struct {
	db       *database.SQLiteDB
	tokens   *token.Service
	config   AuthConfig
	notifier Notifier
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// compared against when the email is unknown so both paths pay for one bcrypt run
	dummyHash []byte
}

func NewAuthService(db *database.SQLiteDB, tokens *token.Service, config AuthConfig, notifier Notifier, log *zap.Logger, m *metrics.Metrics) *AuthService {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.Password.MinLength == 0 {
		config.Password = validation.DefaultPasswordPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}

	dummy, _ := bcrypt.GenerateFromPassword([]byte("portal-dummy-password"), config.BcryptCost)

	return &AuthService{
		db:        db,
		tokens:    tokens,
		config:    config,
		notifier:  notifier,
		log:       log,
		metrics:   m,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Session is the payload returned by register and login.
type Session struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// TokenPair is the payload returned by refresh.
type TokenPair struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

func (in RegisterInput) check(c *validation.Checker, pv *validation.PasswordValidator) *validation.Checker {
	return c.Email("email", in.Email).
		MaxLen("email", in.Email, 255).
		Required("firstName", in.FirstName).
		MaxLen("firstName", in.FirstName, 100).
		Required("lastName", in.LastName).
		MaxLen("lastName", in.LastName, 100).
		Phone("phone", in.Phone).
		MaxLen("company", in.Company, 200).
		Required("password", in.Password).
		Password("password", pv, in.Password, in.Email, in.FirstName, in.LastName)
}

func (s *AuthService) validator() *validation.PasswordValidator {
	return validation.NewPasswordValidator(s.config.Password)
}

func (s *AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Register creates a client account. The user row, its audit entry and the welcome
// notification are written in one transaction; nothing is kept if any step fails.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, ip string) (*Session, error) {
	if err := in.check(validation.New(), s.validator()).Err(); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Company:      in.Company,
		Role:         models.RoleClient,
		Status:       models.StatusActive,
	}
	welcome := &models.Notification{
		Kind:    NotificationWelcome,
		Title:   "Welcome to the portal",
		Message: fmt.Sprintf("Hi %s, your account is ready. You can now submit service requests.", in.FirstName),
	}

	var session *Session
	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := q.CreateAuditLog(ctx, &models.AuditLog{UserID: &user.ID, Action: ActionRegister, IP: ip}); err != nil {
			return err
		}
		welcome.UserID = user.ID
		if err := q.CreateNotification(ctx, welcome); err != nil {
			return err
		}

		var err error
		session, err = s.issueSession(user)
		return err
	})
	if err != nil {
		s.metrics.AuthEvent(ActionRegister, outcome(err))
		return nil, fmt.Errorf("register: %w", err)
	}

	s.metrics.AuthEvent(ActionRegister, "success")
	s.log.Info("User registered", zap.Int64("user_id", user.ID), zap.String("ip", ip))

	if s.notifier != nil {
		s.notifier.Deliver(ctx, welcome, user.Email)
	}
	return session, nil
}

// Login checks the credentials. Every failure, including an inactive account, reports
// ErrInvalidCredentials. Failed attempts are counted but never lock the account.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*Session, error) {
	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apierr.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.metrics.AuthEvent(ActionLogin, "failure")
		s.log.Warn("Login with unknown email", zap.String("ip", ip))
		return nil, apierr.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		attempts, incErr := s.db.IncrementFailedLogins(ctx, user.ID)
		if incErr != nil {
			return nil, fmt.Errorf("login: %w", incErr)
		}
		s.audit(ctx, &user.ID, ActionLoginFailed, fmt.Sprintf("attempt %d", attempts), ip)
		s.metrics.AuthEvent(ActionLogin, "failure")
		s.log.Warn("Login failed",
			zap.Int64("user_id", user.ID),
			zap.Int("failed_attempts", attempts),
			zap.String("ip", ip),
		)
		return nil, apierr.ErrInvalidCredentials
	}

	if user.Status != models.StatusActive {
		s.audit(ctx, &user.ID, ActionLoginInactive, string(user.Status), ip)
		s.metrics.AuthEvent(ActionLogin, "inactive")
		return nil, apierr.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.db.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now

	session, err := s.issueSession(user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.audit(ctx, &user.ID, ActionLogin, "", ip)
	s.metrics.AuthEvent(ActionLogin, "success")
	return session, nil
}

// Authenticate verifies an access token and re-reads its owner. The owner must still
// exist and be active; the role comes from the store, never from the token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}
	return s.Verify(ctx, claims.UserID)
}

// Verify returns the user behind id while it is active.
func (s *AuthService) Verify(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.db.GetActiveUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apierr.ErrUserNotFound) {
			return nil, apierr.ErrInactiveUser
		}
		return nil, fmt.Errorf("verify: %w", err)
	}
	return user, nil
}

// Refresh exchanges a refresh token for a new pair. The owner must still be active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.metrics.AuthEvent(ActionRefresh, "failure")
		return nil, apierr.ErrInvalidRefreshToken
	}

	user, err := s.db.GetActiveUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apierr.ErrUserNotFound) {
			s.metrics.AuthEvent(ActionRefresh, "inactive")
			return nil, apierr.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.metrics.AuthEvent(ActionRefresh, "success")
	return &TokenPair{Token: session.Token, RefreshToken: session.RefreshToken, ExpiresAt: session.ExpiresAt}, nil
}

// Logout only records the event; tokens are stateless and expire on their own.
func (s *AuthService) Logout(ctx context.Context, userID int64, ip string) error {
	s.audit(ctx, &userID, ActionLogout, "", ip)
	s.metrics.AuthEvent(ActionLogout, "success")
	return nil
}

func (s *AuthService) issueSession(user *models.User) (*Session, error) {
	access, exp, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// audit writes an audit row. A failed write is logged and does not fail the caller.
func (s *AuthService) audit(ctx context.Context, userID *int64, action, detail, ip string) {
	entry := &models.AuditLog{UserID: userID, Action: action, Detail: detail, IP: ip}
	if err := s.db.CreateAuditLog(ctx, entry); err != nil {
		s.log.Error("Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apierr.ErrEmailTaken):
		return "conflict"
	default:
		return "error"
	}
}
