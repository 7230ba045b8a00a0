// Package app wires storage, the scheduling engine, delivery, the chat
// transport and the maintenance jobs into one running service.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/aatumaykin/dmbot/internal/channels/telegram"
	"github.com/aatumaykin/dmbot/internal/cleanup"
	"github.com/aatumaykin/dmbot/internal/commands"
	"github.com/aatumaykin/dmbot/internal/config"
	"github.com/aatumaykin/dmbot/internal/delivery"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/metrics"
	"github.com/aatumaykin/dmbot/internal/scheduler"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/aatumaykin/dmbot/internal/version"
	"github.com/aatumaykin/dmbot/internal/workers"
	"github.com/prometheus/client_golang/prometheus"
)

// defaultHealthInterval is how often the store is probed while running.
const defaultHealthInterval = 30 * time.Second

// Transport is the chat connection: it receives commands and opens direct
// channels for deliveries.
type Transport interface {
	delivery.Messenger
	Start(ctx context.Context) error
	Stop() error
}

// TransportFactory builds the chat transport.
type TransportFactory func(cfg config.TelegramConfig, log *logger.Logger, handler telegram.CommandHandler, users telegram.UserRegistry) Transport

func newTelegramTransport(cfg config.TelegramConfig, log *logger.Logger, handler telegram.CommandHandler, users telegram.UserRegistry) Transport {
	return telegram.New(cfg, log, handler, users)
}

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	config *config.Config
	logger *logger.Logger

	// Storage
	store *store.SQLite

	// Observability
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
	metricsServer *metrics.Server

	// Background task execution
	workerPool *workers.WorkerPool

	// Scheduling and delivery
	engine   *scheduler.Engine
	executor *delivery.Executor

	// Chat surface
	service        *commands.Service
	commandHandler *commands.Handler
	transport      Transport
	newTransport   TransportFactory

	// Cleanup scheduler
	cleanupScheduler *cleanup.Scheduler

	// Service manager integration
	notify         func(state string) error
	healthInterval time.Duration

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Thread-safety
	mu      sync.RWMutex
	started bool
}

// Option customizes an App.
type Option func(*App)

// WithTransport replaces the Telegram connector.
func WithTransport(f TransportFactory) Option {
	return func(a *App) { a.newTransport = f }
}

// WithNotifier replaces the systemd notifier.
func WithNotifier(notify func(state string) error) Option {
	return func(a *App) { a.notify = notify }
}

// WithHealthInterval sets how often the store is probed while running.
func WithHealthInterval(d time.Duration) Option {
	return func(a *App) { a.healthInterval = d }
}

// New creates a new App instance with the provided configuration and logger.
// Components are created in Initialize.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	a := &App{
		config:         cfg,
		logger:         log,
		newTransport:   newTelegramTransport,
		notify:         sdNotify,
		healthInterval: defaultHealthInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until ctx is cancelled or the store
// becomes unreachable. It performs the following steps:
//  1. Initializes all components via Initialize()
//  2. Tells the service manager the service is ready
//  3. Probes the store until ctx is done
//  4. Performs graceful shutdown via Shutdown()
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		if shutdownErr := a.Shutdown(); shutdownErr != nil {
			a.logger.Error("failed to release resources after init failure", shutdownErr)
		}
		return err
	}

	a.notifyState(stateReady)
	a.logger.Info(version.FormatStartupMessage())

	runErr := a.watchHealth(ctx)
	if runErr != nil {
		a.logger.Error("stopping after fatal error", runErr)
	}

	a.notifyState(stateStopping)
	if err := a.Shutdown(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

// Store returns the opened store, or nil before Initialize.
func (a *App) Store() *store.SQLite {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store
}

// MetricsAddr returns the address the metrics server listens on, or "" when
// it is disabled.
func (a *App) MetricsAddr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.metricsServer == nil {
		return ""
	}
	return a.metricsServer.Addr()
}
