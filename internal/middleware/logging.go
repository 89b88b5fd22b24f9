package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/pkg/trace"
)

type LoggingMiddleware struct {
	logger         *zap.Logger
	includeHeaders bool
	includeQuery   bool
	excludePaths   []string
}

type LoggingOption func(*LoggingMiddleware)

// enables logging of request headers. Authorization and Cookie are never logged.
func WithHeaders(enabled bool) LoggingOption {
	return func(l *LoggingMiddleware) {
		l.includeHeaders = enabled
	}
}

// enables logging of query parameters.
func WithQueryParams(enabled bool) LoggingOption {
	return func(l *LoggingMiddleware) {
		l.includeQuery = enabled
	}
}

// excludes specified paths from logging.
func WithExcludePaths(paths []string) LoggingOption {
	return func(l *LoggingMiddleware) {
		l.excludePaths = paths
	}
}

func NewLoggingMiddleware(logger *zap.Logger, opts ...LoggingOption) *LoggingMiddleware {
	lm := &LoggingMiddleware{
		logger:       logger,
		excludePaths: []string{},
	}

	for _, opt := range opts {
		opt(lm)
	}

	return lm
}

func (l *LoggingMiddleware) shouldExcludePath(path string) bool {
	for _, excludePath := range l.excludePaths {
		if strings.HasPrefix(path, excludePath) {
			return true
		}
	}
	return false
}

func (l *LoggingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.shouldExcludePath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newStatusWriter(w)
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		fields := make([]zap.Field, 0, 10)
		fields = append(fields,
			zap.String("request_id", trace.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.Status()),
			zap.Duration("duration", duration),
			zap.String("ip", ClientIP(r)),
			zap.String("user_agent", r.UserAgent()),
			zap.Int("response_size", rw.Length()),
		)

		if uid := trace.UserID(r.Context()); uid != 0 {
			fields = append(fields, zap.Int64("user_id", uid))
		}

		if l.includeQuery && len(r.URL.RawQuery) > 0 {
			queryParams := make(map[string]string)
			for key, values := range r.URL.Query() {
				queryParams[key] = strings.Join(values, ",")
			}
			fields = append(fields, zap.Any("query_params", queryParams))
		}

		if l.includeHeaders {
			headers := make(map[string]string)
			for key, values := range r.Header {
				if key == "Authorization" || key == "Cookie" {
					continue
				}
				headers[key] = strings.Join(values, ",")
			}
			fields = append(fields, zap.Any("headers", headers))
		}

		switch {
		case rw.Status() >= 500:
			l.logger.Error("Server error", fields...)
		case rw.Status() >= 400:
			l.logger.Warn("Client error", fields...)
		default:
			l.logger.Info("Request completed", fields...)
		}
	})
}
