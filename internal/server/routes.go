package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/admin"
	"github.com/victorgomez09/portal/internal/auth/handlers"
	authmw "github.com/victorgomez09/portal/internal/auth/middleware"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/client"
	"github.com/victorgomez09/portal/internal/middleware"
	"github.com/victorgomez09/portal/internal/public"
	"github.com/victorgomez09/portal/pkg/trace"
)

// Handler returns the full API behind the global middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	gate := authmw.NewGate(s.authService, s.writer, s.logger)

	handlers.NewAuthHandler(s.authService, s.writer).Routes(mux, gate, s.authLimiter)
	admin.NewAdminAPI(s.authService, s.portal, s.writer, s.logger).Routes(mux, gate, s.adminRestriction())
	client.NewClientAPI(s.authService, s.portal, s.hub, s.writer, s.logger).Routes(mux, gate)
	public.NewAPI(s.portal, s.checker, s.writer).Routes(mux)

	if s.config.Server.MetricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writer.Error(w, r, cerr.NotFound("route", "Route not found"))
	})

	chain := middleware.NewMiddlewareChain()
	chain.Use(
		trace.WithRequestID(),
		middleware.NewRealIP(s.config.Server.TrustedProxies),
		middleware.NewRecovery(s.logger, s.writer),
		middleware.NewLoggingMiddleware(s.accessLogger,
			middleware.WithQueryParams(s.config.Server.Development()),
			middleware.WithExcludePaths([]string{"/api/health", "/metrics"}),
		),
		middleware.NewHTTPMetrics(s.metrics),
		middleware.NewSecurityMiddleware(s.config.Middleware.Security),
		middleware.NewCORSMiddleware(s.config.Middleware.CORS),
		s.limiter,
	)
	if s.config.Middleware.Compression {
		chain.Use(middleware.NewCompressionMiddleware())
	}

	return chain.Then(mux)
}

// adminRestriction returns the admin IP allowlist, or nil when every address is allowed.
func (s *Server) adminRestriction() middleware.Middleware {
	if len(s.config.Server.AdminAllowedIPs) == 0 {
		return nil
	}
	deny := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn("Admin access denied: IP not allowed", zap.String("client_ip", middleware.ClientIP(r)))
		s.writer.Error(w, r, cerr.Forbidden("admin", "Access denied"))
	})
	return middleware.NewIPRestriction(s.config.Server.AdminAllowedIPs, deny)
}
