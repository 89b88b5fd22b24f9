package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/metrics"
)

const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware applies a token bucket per client IP.
type RateLimiterMiddleware struct {
	name    string
	rate    rate.Limit
	burst   int
	writer  *cerr.Writer
	metrics *metrics.Metrics

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiterMiddleware builds a per-IP limiter. Zero values fall back to 20 rps with a burst of 50.
func NewRateLimiterMiddleware(name string, rps float64, burst int, writer *cerr.Writer, m *metrics.Metrics) *RateLimiterMiddleware {
	if burst == 0 {
		burst = 50
	}
	if rps == 0 {
		rps = 20
	}

	return &RateLimiterMiddleware{
		name:     name,
		rate:     rate.Limit(rps),
		burst:    burst,
		writer:   writer,
		metrics:  m,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether key may proceed now.
func (m *RateLimiterMiddleware) Allow(key string) bool {
	m.mu.Lock()
	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = time.Now()
	m.mu.Unlock()

	return v.limiter.Allow()
}

func (m *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Allow(ClientIP(r)) {
			m.metrics.RateLimited(m.name)
			m.writer.Error(w, r, cerr.TooManyRequests(m.name))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup drops visitors idle for longer than ttl and returns how many were removed.
func (m *RateLimiterMiddleware) Cleanup(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, v := range m.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(m.visitors, key)
			removed++
		}
	}
	return removed
}

// Run evicts idle visitors every minute until ctx is done.
func (m *RateLimiterMiddleware) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup(limiterIdleTTL)
		case <-ctx.Done():
			return nil
		}
	}
}
