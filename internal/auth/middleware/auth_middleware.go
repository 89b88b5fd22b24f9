package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/pkg/trace"
)

type contextKey int

const (
	identityKey contextKey = iota
	userKey
)

// Authenticator resolves an access token to its current, active owner.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// Gate rejects requests without a valid access token whose owner is still active.
type Gate struct {
	auth   Authenticator
	writer *cerr.Writer
	logger *zap.Logger
}

func NewGate(auth Authenticator, writer *cerr.Writer, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{auth: auth, writer: writer, logger: logger}
}

// Middleware lets the gate sit in a middleware chain.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return g.Authenticate(next)
}

// Authenticate answers 401 without a bearer token, 403 for a malformed one and 401 for
// an expired token or an owner that is gone or no longer active. Otherwise the owner's
// identity and user record, read from the store, are attached to the request context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			g.writer.Error(w, r, cerr.Unauthenticated("authenticate", "Access token required"))
			return
		}

		user, err := g.auth.Authenticate(r.Context(), token)
		if err != nil {
			g.writer.Error(w, r, err)
			return
		}

		trace.SetUserID(r.Context(), user.ID)
		ctx := WithIdentity(r.Context(), user.Identity())
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, user)))
	})
}

// bearerToken reads the Authorization header. Browsers cannot set headers on a websocket
// handshake, so upgrades may pass the token as the access_token query parameter instead.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// AuthorizeRoles must run after Authenticate. It answers 403 when the caller's role is not
// one of roles, naming both in the message.
func (g *Gate) AuthorizeRoles(roles ...models.Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	required := strings.Join(names, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				g.writer.Error(w, r, cerr.Unauthenticated("authorize", "Access token required"))
				return
			}

			if !slices.Contains(roles, id.Role) {
				g.logger.Warn("Role not allowed",
					zap.Int64("user_id", id.ID),
					zap.String("role", string(id.Role)),
					zap.Strings("required", names),
					zap.String("path", r.URL.Path),
				)
				g.writer.Error(w, r, cerr.Forbidden("authorize",
					fmt.Sprintf("Access denied. Required roles: %s. Your role: %s", required, id.Role)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached by the gate.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// UserFromContext returns the user record the gate read for this request.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}
