package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/victorgomez09/portal/internal/auth/database"
	authservice "github.com/victorgomez09/portal/internal/auth/service"
	"github.com/victorgomez09/portal/internal/auth/token"
	"github.com/victorgomez09/portal/internal/auth/validation"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/config"
	"github.com/victorgomez09/portal/internal/health"
	"github.com/victorgomez09/portal/internal/jobs"
	"github.com/victorgomez09/portal/internal/metrics"
	"github.com/victorgomez09/portal/internal/middleware"
	"github.com/victorgomez09/portal/internal/notify"
	"github.com/victorgomez09/portal/internal/service"
	"github.com/victorgomez09/portal/internal/shutdown"
	"github.com/victorgomez09/portal/pkg/logger"
)

const (
	ShutdownGracePeriod = 15 * time.Second
	MaxHeaderBytes      = 1 << 20
)

// Server wires the portal's components together and owns their lifecycle.
type Server struct {
	config          *config.Portal
	db              *database.SQLiteDB
	authService     *authservice.AuthService
	portal          *service.Manager
	metrics         *metrics.Metrics
	hub             *notify.Hub
	notifier        *notify.Notifier
	checker         *health.Checker
	scheduler       *jobs.Scheduler
	limiter         *middleware.RateLimiterMiddleware
	authLimiter     *middleware.RateLimiterMiddleware
	writer          *cerr.Writer
	httpServer      *http.Server
	shutdownManager *shutdown.Manager
	logger          *zap.Logger
	accessLogger    *zap.Logger
}

// NewServer opens the database, applies migrations and builds every component. The
// returned server is not listening yet.
func NewServer(ctx context.Context, cfg *config.Portal, logManager *logger.LoggerManager) (*Server, error) {
	log := logManager.MustGet(logger.App)

	db, err := database.NewSQLiteDB(ctx, cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	tokens, err := token.New(token.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		Issuer:     cfg.Auth.Issuer,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	mailer, err := notify.NewMailer(cfg.Mail)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	m := metrics.New()
	writer := cerr.NewWriter(log, cfg.Server.Development())
	hub := notify.NewHub(log, m, cfg.Middleware.CORS.AllowedOrigins)
	notifier := notify.NewNotifier(db, hub, mailer, log, m)

	s := &Server{
		config:       cfg,
		db:           db,
		metrics:      m,
		hub:          hub,
		notifier:     notifier,
		writer:       writer,
		logger:       log,
		accessLogger: logManager.MustGet(logger.Access),
		authService: authservice.NewAuthService(db, tokens, authservice.AuthConfig{
			BcryptCost: cfg.Auth.BcryptCost,
			Password:   validation.PolicyFromConfig(cfg.Auth.Password),
		}, notifier, logManager.MustGet(logger.Audit), m),
		portal:          service.NewManager(db, notifier, log),
		checker:         health.NewChecker(cfg.HealthCheck, db, log, m),
		scheduler:       jobs.NewScheduler(log),
		limiter:         middleware.NewRateLimiterMiddleware("api", cfg.Middleware.RateLimit.RequestsPerSecond, cfg.Middleware.RateLimit.Burst, writer, m),
		authLimiter:     middleware.NewRateLimiterMiddleware("auth", cfg.Middleware.AuthRateLimit.RequestsPerSecond, cfg.Middleware.AuthRateLimit.Burst, writer, m),
		shutdownManager: shutdown.NewManager(log),
	}

	retention := jobs.NewRetention(db, cfg.Jobs, log, m)
	if err := s.scheduler.Add(ctx, "retention", cfg.Jobs.RetentionSchedule, retention.Run); err != nil {
		db.Close()
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:           net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:        s.Handler(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: MaxHeaderBytes,
		ErrorLog:       zap.NewStdLog(log),
	}

	if cfg.Server.TLS != nil && cfg.Server.TLS.Enabled {
		tlsConfig, err := newTLSConfig(cfg.Server.TLS)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	// handlers run in this order: stop accepting requests, flush mail, close the store
	s.shutdownManager.RegisterShutdown("http", s.httpServer.Shutdown)
	s.shutdownManager.RegisterShutdown("notifier", func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			notifier.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	s.shutdownManager.RegisterShutdown("database", func(context.Context) error {
		return db.Close()
	})

	return s, nil
}

// AuthService exposes the auth service, e.g. for seeding an administrator.
func (s *Server) AuthService() *authservice.AuthService {
	return s.authService
}

// Run listens on the configured address and blocks until ctx is done or a component fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		_ = s.shutdownManager.Shutdown(context.WithoutCancel(ctx))
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln together with the hub, the rate limiter janitors, the
// health checker and the job scheduler. When ctx is cancelled, or any of them fails, the
// rest are stopped and the server shuts down within ShutdownGracePeriod.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.hub.Run(gctx) })
	g.Go(func() error { return s.limiter.Run(gctx) })
	g.Go(func() error { return s.authLimiter.Run(gctx) })
	g.Go(func() error { return s.checker.Run(gctx) })
	g.Go(func() error { return s.scheduler.Run(gctx) })

	g.Go(func() error {
		if s.httpServer.TLSConfig != nil {
			ln = tls.NewListener(ln, s.httpServer.TLSConfig)
		}
		s.logger.Info("Server started",
			zap.String("addr", ln.Addr().String()),
			zap.Bool("tls", s.httpServer.TLSConfig != nil),
			zap.String("env", s.config.Server.Env),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Warn("Shutting down server")

		timeout := s.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = ShutdownGracePeriod
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return s.shutdownManager.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if err == nil {
		s.logger.Info("Server shutdown completed")
	}
	return err
}

// Shutdown stops the server outside of Serve, e.g. when startup fails half way.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.shutdownManager.Shutdown(ctx)
}
