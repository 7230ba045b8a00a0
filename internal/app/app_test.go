package app

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/channels/telegram"
	"github.com/aatumaykin/dmbot/internal/commands"
	"github.com/aatumaykin/dmbot/internal/config"
	"github.com/aatumaykin/dmbot/internal/delivery"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	transport *fakeTransport
	userID    int64
}

func (c *fakeChannel) Send(_ context.Context, text string) error {
	c.transport.mu.Lock()
	defer c.transport.mu.Unlock()
	c.transport.sent[c.userID] = append(c.transport.sent[c.userID], text)
	return nil
}

type fakeTransport struct {
	mu       sync.Mutex
	startErr error
	started  bool
	stopped  bool
	handler  telegram.CommandHandler
	sent     map[int64][]string
}

func (t *fakeTransport) factory() TransportFactory {
	return func(_ config.TelegramConfig, _ *logger.Logger, handler telegram.CommandHandler, _ telegram.UserRegistry) Transport {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.handler = handler
		return t
	}
}

func (t *fakeTransport) Start(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startErr != nil {
		return t.startErr
	}
	t.started = true
	return nil
}

func (t *fakeTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return nil
}

func (t *fakeTransport) OpenDirectChannel(_ context.Context, userID int64) (delivery.Channel, error) {
	return &fakeChannel{transport: t, userID: userID}, nil
}

func (t *fakeTransport) Sent(userID int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent[userID]...)
}

type stateRecorder struct {
	mu     sync.Mutex
	states []string
}

func (r *stateRecorder) notify(state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return nil
}

func (r *stateRecorder) States() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Telegram: config.TelegramConfig{
			Token:              "123456:test-token",
			Admins:             []int64{42},
			PollTimeoutSeconds: 1,
			SendTimeoutSeconds: 1,
		},
		Storage:   config.StorageConfig{Path: filepath.Join(t.TempDir(), "dmbot.db"), BusyTimeoutMS: 1000},
		Scheduler: config.SchedulerConfig{Timezone: "UTC", PollIntervalMS: 50},
		Delivery:  config.DeliveryConfig{Burst: 1, MaxAttempts: 1, InitialBackoffMS: 10, MaxBackoffMS: 10},
		Workers:   config.WorkersConfig{PoolSize: 2, QueueSize: 8},
		Cleanup:   config.CleanupConfig{Schedule: "@daily", RetentionDays: 30},
		Metrics:   config.MetricsConfig{Namespace: "dmbot_test", Listen: "127.0.0.1:0"},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text", Output: "stdout"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) (*App, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{sent: make(map[int64][]string)}
	opts = append([]Option{WithTransport(tr.factory()), WithNotifier(func(string) error { return nil })}, opts...)
	a := New(cfg, logger.Nop(), opts...)
	t.Cleanup(func() { _ = a.Shutdown() })
	return a, tr
}

func TestApp_InitializeAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	a, tr := newTestApp(t, cfg)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx))
	assert.True(t, tr.started)
	require.NotNil(t, tr.handler)

	admin, err := a.Store().GetUser(ctx, 42)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	addr := a.MetricsAddr()
	require.NotEmpty(t, addr)
	for _, path := range []string{"/metrics", "/healthz"} {
		resp, err := http.Get("http://" + addr + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	assert.Error(t, a.Initialize(ctx), "second initialize must fail")

	require.NoError(t, a.Shutdown())
	assert.True(t, tr.stopped)
	assert.Nil(t, a.Store())
	assert.Empty(t, a.MetricsAddr())
	assert.NoError(t, a.Shutdown())
}

func TestApp_CommandsReachEngine(t *testing.T) {
	a, tr := newTestApp(t, testConfig(t))
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	require.NoError(t, a.Store().RegisterUser(ctx, store.User{ID: 7, Username: "carol"}))

	reply := tr.handler.HandleCommand(ctx, commands.Request{UserID: 7, Command: "dm_daily", Args: "me | Stretch | 8:00 AM"})
	assert.Contains(t, reply, "Scheduled action #1")

	a.mu.RLock()
	armed := a.engine.IsArmed(1)
	a.mu.RUnlock()
	assert.True(t, armed)
}

func TestApp_DeliversOverdueActionAtStart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	// Seed a one-shot that was due in 2020.
	past := time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC)
	seed, err := store.Open(ctx, store.Options{
		Path:     cfg.Storage.Path,
		Location: time.UTC,
		Now:      func() time.Time { return past },
	}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, seed.RegisterUser(ctx, store.User{ID: 1, Username: "alice"}))
	require.NoError(t, seed.RegisterUser(ctx, store.User{ID: 2, Username: "bob"}))
	id, err := seed.Create(ctx, action.Draft{CreatedBy: 1, Target: 2, Message: "Happy new year", Time: "9:00 AM", Date: "01 01 2020"})
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	a, tr := newTestApp(t, cfg)
	require.NoError(t, a.Initialize(ctx))

	require.Eventually(t, func() bool { return len(tr.Sent(2)) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Happy new year"}, tr.Sent(2))

	require.Eventually(t, func() bool {
		rec, err := a.Store().Get(ctx, id)
		return err == nil && rec.RetiredAt != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestApp_RunNotifiesAndStopsOnCancel(t *testing.T) {
	rec := &stateRecorder{}
	a, tr := newTestApp(t, testConfig(t), WithNotifier(rec.notify))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.States()) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, []string{stateReady, stateStopping}, rec.States())
	assert.True(t, tr.stopped)
}

func TestApp_RunFailsWhenTransportFails(t *testing.T) {
	rec := &stateRecorder{}
	a, tr := newTestApp(t, testConfig(t), WithNotifier(rec.notify))
	tr.startErr = errors.New("unauthorized")

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Empty(t, rec.States())
	assert.Nil(t, a.Store())
}

func TestApp_RunStopsWhenStoreFails(t *testing.T) {
	rec := &stateRecorder{}
	a, _ := newTestApp(t, testConfig(t), WithNotifier(rec.notify), WithHealthInterval(20*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(rec.States()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, a.Store().Close())

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage health check failed")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after storage failure")
	}
	assert.Equal(t, []string{stateReady, stateStopping}, rec.States())
}

func TestApp_InvalidTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Timezone = "Mars/Olympus"
	a, _ := newTestApp(t, cfg)

	err := a.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}
