package trace

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"

	HeaderRequestID = "X-Request-ID"
	maxRequestIDLen = 64
)

// requestInfo is shared by every handler of one request. Inner handlers fill in the
// user so outer middleware, such as the access log, can read it after the fact.
type requestInfo struct {
	id     string
	userID atomic.Int64
}

type RequestID struct{}

func WithRequestID() *RequestID {
	return &RequestID{}
}

// Middleware assigns a request ID, keeping a well-formed one sent by the client,
// stores it in the context and echoes it in the response headers.
func (r *RequestID) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = uuid.New().String()
		}

		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, &requestInfo{id: requestID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < '!' || c > '~' {
			return false
		}
	}
	return true
}

func info(ctx context.Context) *requestInfo {
	if ctx == nil {
		return nil
	}
	ri, _ := ctx.Value(RequestIDKey).(*requestInfo)
	return ri
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	if ri := info(ctx); ri != nil {
		return ri.id
	}
	return ""
}

// SetUserID records the authenticated user of the request, if the request is traced.
func SetUserID(ctx context.Context, id int64) {
	if ri := info(ctx); ri != nil {
		ri.userID.Store(id)
	}
}

// UserID returns the user recorded by SetUserID, or 0.
func UserID(ctx context.Context) int64 {
	if ri := info(ctx); ri != nil {
		return ri.userID.Load()
	}
	return 0
}
