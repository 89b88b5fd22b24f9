package admin

import (
	"net/http"

	"go.uber.org/zap"

	authmw "github.com/victorgomez09/portal/internal/auth/middleware"
	"github.com/victorgomez09/portal/internal/middleware"
)

// AccessLogMiddleware records every administrative call together with the acting admin.
// It must run after the Auth Gate.
type AccessLogMiddleware struct {
	logger *zap.Logger
}

func NewAccessLogMiddleware(logger *zap.Logger) middleware.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessLogMiddleware{
		logger: logger,
	}
}

func (m *AccessLogMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusResponseWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		// reads are not worth an entry; mutations always are
		if r.Method == http.MethodGet && sw.status < http.StatusBadRequest {
			return
		}

		id, _ := authmw.IdentityFromContext(r.Context())
		m.logger.Info("Admin API call",
			zap.Int64("admin_id", id.ID),
			zap.String("admin_email", id.Email),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.Status()),
			zap.String("ip", middleware.ClientIP(r)),
		)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
