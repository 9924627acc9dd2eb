// Package opcuaclient owns the OPC UA client connection for one PLC
// engine: connect/disconnect with retry, a shared session-alive
// signal, and the session-activated hook the supervisor uses to start
// the polling pipeline and alarm subscription.
package opcuaclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopcua/opcua"
)

// SessionManager owns *opcua.Client for one PLC engine. It exclusively
// owns the client handle; the pipeline and alarm engine borrow it via
// Client() but never construct or close it themselves.
type SessionManager struct {
	endpoint string
	opts     []opcua.Option
	logger   *slog.Logger

	mu     sync.Mutex
	client *opcua.Client

	alive   atomic.Bool
	onActiv func()
}

// New builds a SessionManager for endpoint, authenticating with
// username/password when both are non-empty.
func New(endpoint, username, password string, logger *slog.Logger) *SessionManager {
	var opts []opcua.Option
	if username != "" || password != "" {
		opts = append(opts, opcua.AuthUsername(username, password))
	}
	return &SessionManager{endpoint: endpoint, opts: opts, logger: logger}
}

// OnSessionActivated registers the callback run once a connect
// succeeds and the session is usable. Only one callback is supported;
// a later registration replaces an earlier one.
func (s *SessionManager) OnSessionActivated(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onActiv = cb
}

// Connect attempts to open a session to the configured endpoint. On
// success it sets session-alive to true, runs the session-activated
// callback (if any), and returns true. On failure it returns false
// without raising.
func (s *SessionManager) Connect(ctx context.Context) bool {
	client, err := opcua.NewClient(s.endpoint, s.opts...)
	if err != nil {
		s.logger.Error("opcuaclient: build client failed", "endpoint", s.endpoint, "error", err)
		return false
	}

	if err := client.Connect(ctx); err != nil {
		s.logger.Error("opcuaclient: connect failed", "endpoint", s.endpoint, "error", err)
		return false
	}

	s.mu.Lock()
	s.client = client
	cb := s.onActiv
	s.mu.Unlock()

	s.alive.Store(true)
	s.logger.Info("opcuaclient: session activated", "endpoint", s.endpoint)

	if cb != nil {
		cb()
	}
	return true
}

// Disconnect clears session-alive and closes the client.
func (s *SessionManager) Disconnect(ctx context.Context) {
	s.alive.Store(false)

	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client != nil {
		if err := client.Close(ctx); err != nil {
			s.logger.Warn("opcuaclient: close reported error", "error", err)
		}
	}
}

// MarkDead sets session-alive to false. It is the transport-failure
// hook: polling and alarm code call it when they observe an error that
// indicates the underlying session is no longer usable.
func (s *SessionManager) MarkDead(reason error) {
	if s.alive.CompareAndSwap(true, false) {
		s.logger.Error("opcuaclient: session marked dead", "reason", reason)
	}
}

// Alive reports the current session-alive signal.
func (s *SessionManager) Alive() bool {
	return s.alive.Load()
}

// Client returns the underlying transport for the polling pipeline and
// alarm subscription engine to issue reads/subscriptions against. It
// is only valid while Alive() is true.
func (s *SessionManager) Client() *opcua.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Run blocks, servicing liveness, until the session drops or ctx is
// cancelled. gopcua's client manages its own background I/O goroutines,
// so there is no event loop to pump here; Run gives the supervisor a
// blocking "until disconnection" call, implemented as a liveness poll.
func (s *SessionManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.Alive() {
				return fmt.Errorf("opcuaclient: session no longer alive")
			}
		}
	}
}
