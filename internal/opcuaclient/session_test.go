package opcuaclient

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestConnect_MalformedEndpointFails(t *testing.T) {
	s := New("not a valid endpoint", "", "", discardLogger())
	ok := s.Connect(context.Background())
	assert.False(t, ok)
	assert.False(t, s.Alive())
}

func TestMarkDead_RepeatedCallKeepsSessionDead(t *testing.T) {
	s := New("opc.tcp://localhost:4840", "", "", discardLogger())
	s.alive.Store(true)

	s.MarkDead(errors.New("transport closed"))
	assert.False(t, s.Alive())

	// Calling again while already dead must not panic or flip state.
	s.MarkDead(errors.New("transport closed again"))
	assert.False(t, s.Alive())
}

func TestRun_ExitsWhenSessionDies(t *testing.T) {
	s := New("opc.tcp://localhost:4840", "", "", discardLogger())
	s.alive.Store(true)

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.MarkDead(errors.New("simulated disconnect"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.Run(ctx)
	assert.Error(t, err)
}

func TestRun_ExitsOnContextCancel(t *testing.T) {
	s := New("opc.tcp://localhost:4840", "", "", discardLogger())
	s.alive.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOnSessionActivated_NotRunWhenConnectFails(t *testing.T) {
	s := New("not a valid endpoint", "", "", discardLogger())
	called := false
	s.OnSessionActivated(func() { called = true })

	s.Connect(context.Background())
	assert.False(t, called, "callback must not run when connect fails")
}
