package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Service manager states.
const (
	stateReady    = daemon.SdNotifyReady
	stateStopping = daemon.SdNotifyStopping
	stateWatchdog = daemon.SdNotifyWatchdog
)

// sdNotify reports state to systemd. It is a no-op outside a unit with
// NOTIFY_SOCKET set.
func sdNotify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

func (a *App) notifyState(state string) {
	if a.notify == nil {
		return
	}
	if err := a.notify(state); err != nil {
		a.logger.Warn("failed to notify service manager",
			logger.Field{Key: "state", Value: state},
			logger.Field{Key: "error", Value: err.Error()})
	}
}

// probeInterval is the health interval, shortened to half the systemd
// watchdog period when one is configured.
func (a *App) probeInterval() (time.Duration, bool) {
	interval := a.healthInterval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	watchdog, err := daemon.SdWatchdogEnabled(false)
	if err != nil || watchdog <= 0 {
		return interval, false
	}
	if half := watchdog / 2; half < interval {
		interval = half
	}
	return interval, true
}

// watchHealth probes the store until ctx is done. A failed probe is fatal:
// the returned error stops the service so the supervisor can restart it.
func (a *App) watchHealth(ctx context.Context) error {
	interval, watchdog := a.probeInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.checkHealth(ctx); err != nil {
				return err
			}
			if watchdog {
				a.notifyState(stateWatchdog)
			}
		}
	}
}

func (a *App) checkHealth(ctx context.Context) error {
	st := a.Store()
	if st == nil {
		return fmt.Errorf("storage is not open")
	}

	probeCtx, cancel := context.WithTimeout(ctx, a.healthTimeout())
	defer cancel()

	if err := st.Ping(probeCtx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

func (a *App) healthTimeout() time.Duration {
	if a.healthInterval > 0 && a.healthInterval < 5*time.Second {
		return a.healthInterval
	}
	return 5 * time.Second
}
