package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipevillazon/xelips/internal/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestRun_ReturnsImmediatelyWhenShutdownAlreadyRequested(t *testing.T) {
	e := New(Config{PLCName: "plc1"}, discardLogger())
	e.Shutdown()

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return promptly after Shutdown")
	}
}

func TestRun_ReturnsNilWhenContextAlreadyCancelled(t *testing.T) {
	e := New(Config{PLCName: "plc1"}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx)
	assert.NoError(t, err)
}

func TestSleepOrShutdown_InterruptedByContextCancel(t *testing.T) {
	e := New(Config{}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	interrupted := e.sleepOrShutdown(ctx, 5*time.Second)
	assert.True(t, interrupted)
}

func TestSleepOrShutdown_ElapsesNaturallyWhenNotInterrupted(t *testing.T) {
	e := New(Config{}, discardLogger())
	start := time.Now()
	interrupted := e.sleepOrShutdown(context.Background(), 20*time.Millisecond)
	assert.False(t, interrupted)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMaybeReload_SwapsSnapshotPointerOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	original := []byte(`
objects:
  pump_1:
    columns:
      object_id: 1
      object_node_id: "ns=2;i=100"
`)
	require.NoError(t, os.WriteFile(path, original, 0o644))

	loader := registry.NewLoader(discardLogger())
	first, err := loader.Load(path)
	require.NoError(t, err)

	var ptr atomic.Pointer[registry.Snapshot]
	ptr.Store(first)

	e := New(Config{PLCName: "plc1", RegistryPath: path}, discardLogger())

	// First CheckAndReload observation always reports unmodified.
	e.maybeReload(loader, &ptr, discardLogger())
	assert.Same(t, first, ptr.Load())

	updated := []byte(`
objects:
  pump_1:
    columns:
      object_id: 1
      object_node_id: "ns=2;i=100"
  pump_2:
    columns:
      object_id: 2
      object_node_id: "ns=2;i=101"
`)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(path, updated, 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	e.maybeReload(loader, &ptr, discardLogger())
	reloaded := ptr.Load()
	assert.NotSame(t, first, reloaded)
	assert.Len(t, reloaded.Poll, 2)
}

func TestMaybeReload_KeepsPriorSnapshotOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`objects:
  pump_1:
    columns:
      object_id: 1
      object_node_id: "ns=2;i=100"
`), 0o644))

	loader := registry.NewLoader(discardLogger())
	first, err := loader.Load(path)
	require.NoError(t, err)

	var ptr atomic.Pointer[registry.Snapshot]
	ptr.Store(first)

	e := New(Config{PLCName: "plc1", RegistryPath: path}, discardLogger())
	e.maybeReload(loader, &ptr, discardLogger()) // seed mtime

	future := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	e.maybeReload(loader, &ptr, discardLogger())
	assert.Same(t, first, ptr.Load())
}
