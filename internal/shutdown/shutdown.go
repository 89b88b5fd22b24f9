package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Manager runs shutdown handlers in the order they were registered. Later handlers may rely on
// earlier ones having finished, e.g. the database closes after the HTTP server has drained.
type Manager struct {
	handlers []func(context.Context) error
	logger   *zap.Logger
	mu       sync.Mutex
	done     bool
}

func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		handlers: make([]func(context.Context) error, 0),
		logger:   logger,
	}
}

func (sh *Manager) AddHandler(handler func(context.Context) error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.handlers = append(sh.handlers, handler)
}

// Shutdown runs every handler once. A failing handler does not stop the ones after it;
// when ctx expires the remaining handlers are skipped.
func (sh *Manager) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	if sh.done {
		sh.mu.Unlock()
		return nil
	}
	sh.done = true
	handlers := append([]func(context.Context) error(nil), sh.handlers...)
	sh.mu.Unlock()

	var errs []error
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := h(ctx); err != nil {
			sh.logger.Error("Error during shutdown", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (sh *Manager) RegisterShutdown(name string, shutdown func(context.Context) error) {
	sh.AddHandler(func(ctx context.Context) error {
		sh.logger.Debug("Shutting down", zap.String("component", name))
		if err := shutdown(ctx); err != nil {
			return fmt.Errorf("%s shutdown: %w", name, err)
		}
		return nil
	})
}
