package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/victorgomez09/portal/internal/config"
)

type CORS struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// NewCORSMiddleware returns nil when no origin is allowed, which disables CORS.
func NewCORSMiddleware(cfg config.CORS) Middleware {
	if len(cfg.AllowedOrigins) == 0 {
		return nil
	}

	return &CORS{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
}

func (c *CORS) allowOrigin(origin string) string {
	if slices.Contains(c.AllowedOrigins, "*") {
		if c.AllowCredentials {
			// a wildcard cannot be combined with credentials; echo the caller instead
			return origin
		}
		return "*"
	}
	if slices.Contains(c.AllowedOrigins, origin) {
		return origin
	}
	return ""
}

// Middleware sets CORS headers for allowed origins and answers preflight requests.
func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Origin")
		allowed := c.allowOrigin(origin)
		if allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)

			if len(c.ExposedHeaders) > 0 {
				w.Header().Set("Access-Control-Expose-Headers", strings.Join(c.ExposedHeaders, ","))
			}
			if c.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed != "" {
				if len(c.AllowedMethods) > 0 {
					w.Header().Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ","))
				}
				if len(c.AllowedHeaders) > 0 {
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ","))
				}
				if c.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
				}
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
