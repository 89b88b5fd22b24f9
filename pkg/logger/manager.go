package logger

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	ilogger "github.com/victorgomez09/portal/internal/logger"
)

// Logger names used across the portal.
const (
	App    = "portal"
	Access = "portal_access"
	Audit  = "portal_audit"
)

// LoggerManager owns the named loggers built from configuration.
type LoggerManager struct {
	loggers map[string]*zap.Logger
	mu      sync.RWMutex
}

// NewLoggerManager builds one logger per entry in configs. The App, Access and Audit
// loggers always exist; any of them missing from configs gets ilogger.DefaultConfig.
func NewLoggerManager(configs map[string]ilogger.Config) (*LoggerManager, error) {
	lm := &LoggerManager{loggers: make(map[string]*zap.Logger)}

	all := make(map[string]ilogger.Config, len(configs)+3)
	for _, name := range []string{App, Access, Audit} {
		all[name] = ilogger.DefaultConfig
	}
	for name, cfg := range configs {
		all[name] = cfg
	}

	for name, cfg := range all {
		l, err := ilogger.Build(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("build logger %q: %w", name, err)
		}
		if err := lm.AddLogger(name, l); err != nil {
			return nil, err
		}
	}

	return lm, nil
}

// AddLogger registers logger under name. Names are unique.
func (lm *LoggerManager) AddLogger(name string, logger *zap.Logger) error {
	if logger == nil {
		return errors.New("logger cannot be nil")
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if _, exists := lm.loggers[name]; exists {
		return fmt.Errorf("logger '%s' already exists", name)
	}

	lm.loggers[name] = logger
	return nil
}

func (lm *LoggerManager) GetLogger(name string) (*zap.Logger, error) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	if logger, exists := lm.loggers[name]; exists {
		return logger, nil
	}
	return nil, fmt.Errorf("logger '%s' not found", name)
}

// MustGet returns the named logger or a no-op logger when it is missing.
func (lm *LoggerManager) MustGet(name string) *zap.Logger {
	if l, err := lm.GetLogger(name); err == nil {
		return l
	}
	return zap.NewNop()
}

// Sync flushes every logger and joins the errors. Errors from syncing
// terminal streams are expected on some platforms and are the caller's to ignore.
func (lm *LoggerManager) Sync() error {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	var errs []error
	for name, logger := range lm.loggers {
		if err := logger.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync logger '%s': %w", name, err))
		}
	}
	return errors.Join(errs...)
}
