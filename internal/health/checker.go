package health

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/victorgomez09/portal/internal/config"
	"github.com/victorgomez09/portal/internal/metrics"
)

// Pinger is anything that can report whether it is reachable, typically the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the outcome of the most recent check.
type Status struct {
	Healthy   bool          `json:"healthy"`
	CheckedAt time.Time     `json:"checkedAt"`
	LatencyMS int64     `json:"latencyMs"`
	Error     string        `json:"error,omitempty"`
}

// Checker periodically pings the database and keeps the latest status for the health endpoint.
type Checker struct {
	interval time.Duration
	timeout  time.Duration
	target   Pinger
	logger   *zap.Logger
	metrics  *metrics.Metrics
	running  atomic.Bool
	status   atomic.Pointer[Status]
	prefix   string
}

func NewChecker(cfg config.HealthCheck, target Pinger, logger *zap.Logger, m *metrics.Metrics) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	c := &Checker{
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		target:   target,
		logger:   logger,
		metrics:  m,
		prefix:   "[HealthChecker]",
	}
	c.status.Store(&Status{})
	return c
}

// Run checks once immediately and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		c.logf(zapcore.InfoLevel, "Health checker already running")
		return nil
	}
	defer c.running.Store(false)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logf(zapcore.InfoLevel, "Health checker started")
	c.Check(ctx)

	for {
		select {
		case <-ticker.C:
			c.Check(ctx)
		case <-ctx.Done():
			c.logf(zapcore.InfoLevel, "Health checker stopping")
			return nil
		}
	}
}

// Check pings the target under the configured timeout and records the result.
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.target.Ping(ctx)
	s := Status{
		Healthy:   err == nil,
		CheckedAt: start.UTC(),
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		s.Error = err.Error()
	}

	prev := c.status.Swap(&s)
	if prev.Healthy != s.Healthy || prev.CheckedAt.IsZero() {
		if s.Healthy {
			c.logf(zapcore.InfoLevel, "Database is healthy", zap.Duration("latency", time.Since(start)))
		} else {
			c.logf(zapcore.ErrorLevel, "Database is unhealthy", zap.String("error", s.Error))
		}
	}

	c.metrics.SetDatabaseUp(s.Healthy)
	return s
}

// Status returns the latest result. Before the first check it reports unhealthy.
func (c *Checker) Status() Status {
	return *c.status.Load()
}

func (c *Checker) logf(level zapcore.Level, msg string, fields ...zap.Field) {
	c.logger.Log(level, c.prefix+" "+msg, fields...)
}
