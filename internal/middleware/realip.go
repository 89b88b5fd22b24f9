package middleware

import (
	"net"
	"net/http"
	"slices"
	"strings"
)

// RealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but only when the
// direct peer is one of the trusted proxies. With no trusted proxies it is a no-op.
type RealIP struct {
	trusted []string
}

func NewRealIP(trustedProxies []string) *RealIP {
	return &RealIP{trusted: trustedProxies}
}

func (m *RealIP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.trusted) > 0 && slices.Contains(m.trusted, ClientIP(r)) {
			if ip := forwardedIP(r); ip != "" {
				r.RemoteAddr = net.JoinHostPort(ip, "0")
			}
		}
		next.ServeHTTP(w, r)
	})
}

func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// the first entry is the original client
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}

// ClientIP returns the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// IPRestriction only lets requests from the listed addresses through. An empty list allows everyone.
type IPRestriction struct {
	allowed []string
	deny    http.Handler
}

// NewIPRestriction builds the allowlist; deny renders the rejection.
func NewIPRestriction(allowed []string, deny http.Handler) *IPRestriction {
	return &IPRestriction{allowed: allowed, deny: deny}
}

func (m *IPRestriction) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.allowed) == 0 || slices.Contains(m.allowed, ClientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}
		m.deny.ServeHTTP(w, r)
	})
}
