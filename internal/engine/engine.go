// Package engine sequences one PLC's bootstrap, reconnect, and
// hot-reload lifecycle (C6): it owns no domain logic of its own,
// wiring together the node-registry loader, DB gateway, session
// manager, polling pipeline, and alarm subscription engine built by
// the other internal packages.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/felipevillazon/xelips/internal/alarmsub"
	"github.com/felipevillazon/xelips/internal/dbgateway"
	"github.com/felipevillazon/xelips/internal/eventid"
	"github.com/felipevillazon/xelips/internal/metrics"
	"github.com/felipevillazon/xelips/internal/opcuaclient"
	"github.com/felipevillazon/xelips/internal/polling"
	"github.com/felipevillazon/xelips/internal/registry"
	pkglogger "github.com/felipevillazon/xelips/pkg/logger"
)

// reconnectDelay is the fixed pause between a dropped session and the
// next startup attempt, and between failed DB/OPC UA connect attempts.
const reconnectDelay = 2 * time.Second

// reloadInterval is the cadence at which the polling loop checks the
// node-registry file for modification.
const reloadInterval = 2 * time.Second

// Config is one PLC engine's full wiring descriptor.
type Config struct {
	PLCName            string
	Endpoint           string
	Username           string
	Password           string
	RegistryPath       string
	EventCounterPath   string
	PollPeriod         time.Duration
	PublishingInterval time.Duration
	DB                 dbgateway.Config
}

// Engine runs one PLC's full supervised lifecycle until its context is
// cancelled.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	shutdown atomic.Bool
}

// New constructs an Engine. It does not connect anything.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Shutdown requests a clean stop. It is checked at every retry point
// and tick boundary; in-flight operations are abandoned once the
// session they depend on is closed.
func (e *Engine) Shutdown() {
	e.shutdown.Store(true)
}

// Run drives the supervisor loop: startup, run until session loss,
// teardown, sleep, repeat — until ctx is cancelled or Shutdown is
// called. It returns nil in every case, including when ctx is
// cancelled; session failures are logged and retried, never returned.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if e.shutdown.Load() || ctx.Err() != nil {
			return nil
		}

		correlationID := uuid.NewString()
		sessionCtx := pkglogger.WithCorrelationID(ctx, correlationID)
		sessionLogger := pkglogger.FromContext(sessionCtx, e.logger).With("plc", e.cfg.PLCName)

		if err := e.runOnce(sessionCtx, sessionLogger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			sessionLogger.Error("engine: session ended", "error", err)
		}

		if e.sleepOrShutdown(ctx, reconnectDelay) {
			return nil
		}
	}
}

// runOnce performs one full startup → run → teardown cycle: connect
// DB and OPC UA with infinite retry, load the registry, start the
// alarm subscription, then run the polling loop until the session
// dies, a reconnect is needed, or shutdown is requested.
func (e *Engine) runOnce(ctx context.Context, logger *slog.Logger) error {
	gw := dbgateway.New(e.cfg.DB, logger)
	if !e.connectDBWithRetry(ctx, gw, logger) {
		return ctx.Err()
	}
	defer gw.Disconnect()

	serialized := dbgateway.NewSerialized(gw)

	session := opcuaclient.New(e.cfg.Endpoint, e.cfg.Username, e.cfg.Password, logger)
	if !e.connectOPCUAWithRetry(ctx, session, logger) {
		return ctx.Err()
	}
	defer session.Disconnect(ctx)

	// Connect runs the session-activated callback synchronously before
	// returning, so the polling and alarm subsystems below are only
	// ever wired up against an already-activated session.
	metrics.SessionAlive.WithLabelValues(e.cfg.PLCName).Set(1)
	defer metrics.SessionAlive.WithLabelValues(e.cfg.PLCName).Set(0)

	loader := registry.NewLoader(logger)
	snapshot, err := loader.Load(e.cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("engine: initial registry load: %w", err)
	}

	counter := eventid.NewCounter(e.cfg.EventCounterPath)
	alarmEngine := alarmsub.New(snapshot.Alarms, serialized, counter, e.cfg.PLCName, logger)

	stopSubscription, err := alarmEngine.Subscribe(ctx, session.Client(), e.cfg.PublishingInterval, snapshot.Alarms)
	if err != nil {
		return fmt.Errorf("engine: alarm subscription: %w", err)
	}
	defer stopSubscription()

	reader := &polling.OPCUAReader{Client: session.Client()}
	pipeline := polling.NewPipeline(e.cfg.PLCName, reader, serialized, e.cfg.PollPeriod, logger)

	var snapshotPtr atomic.Pointer[registry.Snapshot]
	snapshotPtr.Store(snapshot)

	return e.runPollingLoop(ctx, session, loader, &snapshotPtr, pipeline, logger)
}

func (e *Engine) runPollingLoop(
	ctx context.Context,
	session *opcuaclient.SessionManager,
	loader *registry.Loader,
	snapshotPtr *atomic.Pointer[registry.Snapshot],
	pipeline *polling.Pipeline,
	logger *slog.Logger,
) error {
	lastReload := time.Now()

	for {
		if e.shutdown.Load() || ctx.Err() != nil {
			return nil
		}
		if !session.Alive() {
			return fmt.Errorf("engine: session no longer alive")
		}

		if time.Since(lastReload) >= reloadInterval {
			lastReload = time.Now()
			e.maybeReload(loader, snapshotPtr, logger)
		}

		pipeline.Tick(ctx, snapshotPtr.Load())
	}
}

func (e *Engine) maybeReload(loader *registry.Loader, snapshotPtr *atomic.Pointer[registry.Snapshot], logger *slog.Logger) {
	snapshot, reloaded := loader.CheckAndReload(e.cfg.RegistryPath)
	status := "unchanged"
	if reloaded {
		snapshotPtr.Store(snapshot)
		status = "reloaded"
		logger.Info("engine: node registry reloaded")
	}
	metrics.RegistryReloadsTotal.WithLabelValues(e.cfg.PLCName, status).Inc()
}

func (e *Engine) connectDBWithRetry(ctx context.Context, gw *dbgateway.Gateway, logger *slog.Logger) bool {
	for {
		if e.shutdown.Load() || ctx.Err() != nil {
			return false
		}
		ok, err := gw.Connect(ctx)
		if ok {
			return true
		}
		logger.Warn("engine: db connect failed, retrying",
			"delay", reconnectDelay, "retryable", dbgateway.IsRetryable(err), "error", err)
		if e.sleepOrShutdown(ctx, reconnectDelay) {
			return false
		}
	}
}

func (e *Engine) connectOPCUAWithRetry(ctx context.Context, session *opcuaclient.SessionManager, logger *slog.Logger) bool {
	for {
		if e.shutdown.Load() || ctx.Err() != nil {
			return false
		}
		if session.Connect(ctx) {
			return true
		}
		logger.Warn("engine: opc ua connect failed, retrying", "delay", reconnectDelay)
		if e.sleepOrShutdown(ctx, reconnectDelay) {
			return false
		}
	}
}

// sleepOrShutdown sleeps d, returning true iff it was interrupted by
// shutdown or context cancellation.
func (e *Engine) sleepOrShutdown(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return e.shutdown.Load()
	}
}
