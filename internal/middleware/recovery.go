package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/pkg/trace"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack.
type Recovery struct {
	logger *zap.Logger
	writer *cerr.Writer
}

func NewRecovery(logger *zap.Logger, writer *cerr.Writer) *Recovery {
	return &Recovery{logger: logger, writer: writer}
}

func (m *Recovery) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// the server must still abort the connection for this sentinel
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			m.logger.Error("PANIC recovered",
				zap.Any("panic", rec),
				zap.String("request_id", trace.GetRequestID(r.Context())),
				zap.String("stack", string(debug.Stack())),
			)
			m.writer.Error(w, r, cerr.Internal("panic", fmt.Errorf("panic: %v", rec)))
		}()
		next.ServeHTTP(w, r)
	})
}
