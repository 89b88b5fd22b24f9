package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// State is the position of a Manager in its authentication lifecycle.
type State int32

const (
	Unauthenticated State = iota
	Verifying
	Authenticated
	Renewing
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	case Renewing:
		return "renewing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Reasons passed to Options.OnCleared.
const (
	ReasonVerifyRejected  = "verify_rejected"
	ReasonRenewRejected   = "renew_rejected"
	ReasonRefreshRejected = "refresh_rejected"
	ReasonAuthEndpoint    = "auth_endpoint_rejected"
	ReasonStoreEmpty      = "store_empty"
)

var (
	ErrClosed           = errors.New("session: manager closed")
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrSuperseded is returned by Login, Register and Refresh when a logout or a newer
	// login completed while the call was in flight. The result was discarded.
	ErrSuperseded = errors.New("session: superseded by a newer session change")
)

// FieldError is one entry of the envelope's errors array.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

// StatusError is a non-2xx API answer.
type StatusError struct {
	Code    int
	Method  string
	Path    string
	Message string
	Fields  []FieldError
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0 for transport failures.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

const (
	pathLogin    = "/api/auth/login"
	pathRegister = "/api/auth/register"
	pathVerify   = "/api/auth/verify"
	pathRefresh  = "/api/auth/refresh"
	pathLogout   = "/api/auth/logout"
)

// rejectsSession reports whether a verify answer means the stored token is dead.
// Everything else (transport errors, 5xx) is transient.
func rejectsSession(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusTooManyRequests || code == http.StatusForbidden
}

// invalidates reports whether a response seen by the client hooks clears the session.
// Only auth endpoints count: a 401 or 403 from a domain route is an authorization answer.
func invalidates(path string, code int) bool {
	switch {
	case strings.HasSuffix(path, pathVerify):
		return rejectsSession(code)
	case strings.HasSuffix(path, pathLogin), strings.HasSuffix(path, pathRegister):
		return code == http.StatusUnauthorized || code == http.StatusTooManyRequests
	}
	return false
}
