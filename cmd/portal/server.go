package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/config"
	"github.com/victorgomez09/portal/internal/server"
	"github.com/victorgomez09/portal/pkg/logger"
)

// run builds the server and blocks until ctx is cancelled by a signal or a component fails.
func run(ctx context.Context, cfg *config.Portal, logManager *logger.LoggerManager, log *zap.Logger) error {
	if cfg.Server.Development() {
		log.Warn("Running in development mode: error responses include internal details")
	}
	if !cfg.Mail.Enabled {
		log.Info("Mail delivery disabled, notifications are stored and streamed only")
	}

	srv, err := server.NewServer(ctx, cfg, logManager)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Info("Shutdown signal handled, exiting")
	return nil
}
