package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/config"
	"github.com/victorgomez09/portal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "portal.config.yaml", "path to the portal config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logManager, err := logger.NewLoggerManager(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer syncLoggers(logManager)
	appLogger := logManager.MustGet(logger.App)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logManager, appLogger); err != nil {
		appLogger.Error("Server stopped with error", zap.Error(err))
		syncLoggers(logManager)
		os.Exit(1)
	}
}

// Ensure that all logger buffers are flushed before the application exits.
func syncLoggers(logManager *logger.LoggerManager) {
	if err := logManager.Sync(); err != nil && !isTerminalSyncError(err) {
		fmt.Fprintf(os.Stderr, "Failed to sync loggers: %v\n", err)
	}
}

func isTerminalSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
