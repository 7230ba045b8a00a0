package app

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// shutdownTimeout bounds how long the metrics server may take to drain.
const shutdownTimeout = 10 * time.Second

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Stops the cleanup scheduler
//  2. Disarms every action and waits for in-flight firings
//  3. Stops the chat transport
//  4. Drains the worker pool
//  5. Stops the metrics server
//  6. Closes the store
//
// The method is thread-safe and can be called more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	var errs []error

	if a.cleanupScheduler != nil {
		a.cleanupScheduler.Stop()
		a.cleanupScheduler = nil
	}

	if a.engine != nil {
		a.engine.Stop()
		a.engine = nil
	}

	if a.transport != nil {
		if err := a.transport.Stop(); err != nil {
			a.logger.Error("failed to stop telegram connector", err)
			errs = append(errs, fmt.Errorf("telegram: %w", err))
		}
		a.transport = nil
	}

	if a.workerPool != nil {
		a.workerPool.Stop()
		a.workerPool = nil
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to stop metrics server", err)
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
		cancel()
		a.metricsServer = nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close storage", err)
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
		a.store = nil
	}

	a.started = false
	a.logger.Info("application stopped")

	return errors.Join(errs...)
}
