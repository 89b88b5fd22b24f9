package middleware

import (
	"fmt"
	"net/http"

	"github.com/victorgomez09/portal/internal/config"
)

type ServerSecurity struct {
	HSTS                  bool
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool
	FrameOptions          string
	ContentTypeOptions    bool
	ContentSecurityPolicy string
	ReferrerPolicy        string
}

func NewSecurityMiddleware(cfg config.Security) *ServerSecurity {
	return &ServerSecurity{
		HSTS:                  cfg.HSTS,
		HSTSMaxAge:            cfg.HSTSMaxAge,
		HSTSIncludeSubDomains: cfg.HSTSIncludeSubDomains,
		FrameOptions:          cfg.FrameOptions,
		ContentTypeOptions:    cfg.ContentTypeOptions,
		ContentSecurityPolicy: cfg.ContentSecurityPolicy,
		ReferrerPolicy:        cfg.ReferrerPolicy,
	}
}

// Middleware sets the configured security headers on every response.
func (s *ServerSecurity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.HSTS {
			value := fmt.Sprintf("max-age=%d", s.HSTSMaxAge)
			if s.HSTSIncludeSubDomains {
				value += "; includeSubDomains"
			}
			w.Header().Set("Strict-Transport-Security", value)
		}

		if s.FrameOptions != "" {
			w.Header().Set("X-Frame-Options", s.FrameOptions)
		}

		if s.ContentTypeOptions {
			w.Header().Set("X-Content-Type-Options", "nosniff")
		}

		if s.ContentSecurityPolicy != "" {
			w.Header().Set("Content-Security-Policy", s.ContentSecurityPolicy)
		}

		if s.ReferrerPolicy != "" {
			w.Header().Set("Referrer-Policy", s.ReferrerPolicy)
		}

		next.ServeHTTP(w, r)
	})
}
