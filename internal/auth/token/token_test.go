package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/models"
)

func newService(t *testing.T, secret string, access, refresh time.Duration) *Service {
	t.Helper()
	s, err := New(Config{Secret: []byte(secret), AccessTTL: access, RefreshTTL: refresh})
	require.NoError(t, err)
	return s
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := newService(t, "secret", 0, 0)
	assert.Equal(t, DefaultAccessTTL, s.accessTTL)
	assert.Equal(t, DefaultRefreshTTL, s.refreshTTL)
	assert.Equal(t, DefaultIssuer, s.issuer)

	_, err := New(Config{})
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newService(t, "secret", time.Hour, 0)
	for _, role := range []models.Role{models.RoleClient, models.RoleAdmin} {
		tok, exp, err := s.IssueAccessToken(42, role)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

		claims, err := s.VerifyAccess(tok)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, role, claims.Role)
		assert.Equal(t, TypeAccess, claims.Type)
		assert.NotEmpty(t, claims.ID)
	}
}

func TestRefreshToken_CarriesTypeAndSevenDayExpiry(t *testing.T) {
	t.Parallel()

	s := newService(t, "secret", 0, 0)
	tok, exp, err := s.IssueRefreshToken(7)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 5*time.Second)

	claims, err := s.VerifyRefresh(tok)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, claims.Type)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Empty(t, claims.Role)
}

func TestVerify_ExpiredIsNeverMalformed(t *testing.T) {
	t.Parallel()

	s := newService(t, "secret", -time.Minute, -time.Minute)

	access, _, err := s.IssueAccessToken(1, models.RoleClient)
	require.NoError(t, err)
	_, err = s.Verify(access)
	assert.ErrorIs(t, err, apierr.ErrTokenExpired)

	refresh, _, err := s.IssueRefreshToken(1)
	require.NoError(t, err)
	_, err = s.VerifyRefresh(refresh)
	assert.ErrorIs(t, err, apierr.ErrTokenExpired)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	s := newService(t, "right-secret", time.Hour, 0)
	other := newService(t, "wrong-secret", time.Hour, 0)
	otherExpired := newService(t, "wrong-secret", -time.Hour, 0)

	foreign, _, err := other.IssueAccessToken(1, models.RoleAdmin)
	require.NoError(t, err)
	foreignExpired, _, err := otherExpired.IssueAccessToken(1, models.RoleAdmin)
	require.NoError(t, err)
	valid, _, err := s.IssueAccessToken(1, models.RoleAdmin)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	corrupted := parts[0] + "." + parts[1] + "x." + parts[2]

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Role: models.RoleAdmin, Type: TypeAccess})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"different secret", foreign},
		{"different secret and expired", foreignExpired},
		{"corrupted payload", corrupted},
		{"garbage", "not-a-jwt"},
		{"empty", ""},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token)
			assert.ErrorIs(t, err, apierr.ErrTokenMalformed)
		})
	}
}

func TestVerify_TypeConfusion(t *testing.T) {
	t.Parallel()

	s := newService(t, "secret", time.Hour, time.Hour)

	refresh, _, err := s.IssueRefreshToken(3)
	require.NoError(t, err)
	_, err = s.VerifyAccess(refresh)
	assert.ErrorIs(t, err, apierr.ErrTokenMalformed, "refresh token must not pass as access token")

	access, _, err := s.IssueAccessToken(3, models.RoleClient)
	require.NoError(t, err)
	_, err = s.VerifyRefresh(access)
	assert.ErrorIs(t, err, apierr.ErrTokenMalformed, "access token must not pass as refresh token")
}
