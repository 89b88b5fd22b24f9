// Package token issues and verifies the signed access and refresh tokens used by the portal.
// Tokens are stateless HS256 JWTs; nothing is persisted server-side.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/models"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultIssuer     = "portal"
)

// Config holds the signing secret and token lifetimes.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// Claims is the payload carried by both token types. Role is empty on refresh tokens.
type Claims struct {
	UserID int64       `json:"uid"`
	Role   models.Role `json:"role,omitempty"`
	Type   string      `json:"type"`
	jwt.RegisteredClaims
}

type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	return &Service{
		secret:     cfg.Secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
	}, nil
}

// IssueAccessToken signs an access token for userID carrying role.
func (s *Service) IssueAccessToken(userID int64, role models.Role) (string, time.Time, error) {
	return s.issue(userID, role, TypeAccess, s.accessTTL)
}

// IssueRefreshToken signs a refresh token for userID. It carries no role.
func (s *Service) IssueRefreshToken(userID int64) (string, time.Time, error) {
	return s.issue(userID, "", TypeRefresh, s.refreshTTL)
}

func (s *Service) issue(userID int64, role models.Role, typ string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID: userID,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}

	return signed, expiresAt, nil
}

// Verify checks signature and expiry of any portal token.
// It returns apierr.ErrTokenExpired only when expiry is the sole failure; every other
// problem (bad signature, wrong algorithm, corrupt payload, missing claims) is apierr.ErrTokenMalformed.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		// the parser reports claim and signature failures as one bitmask, so an expired
		// token signed with another key must not be classified as merely expired
		if errors.As(err, &vErr) && vErr.Errors == jwt.ValidationErrorExpired {
			return nil, apierr.ErrTokenExpired
		}
		return nil, apierr.ErrTokenMalformed
	}

	if !token.Valid || claims.UserID <= 0 || claims.ExpiresAt == nil {
		return nil, apierr.ErrTokenMalformed
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return nil, apierr.ErrTokenMalformed
	}

	return claims, nil
}

// VerifyAccess is Verify restricted to access tokens carrying a known role.
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess || !claims.Role.Valid() {
		return nil, apierr.ErrTokenMalformed
	}
	return claims, nil
}

// VerifyRefresh is Verify restricted to refresh tokens.
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, apierr.ErrTokenMalformed
	}
	return claims, nil
}
