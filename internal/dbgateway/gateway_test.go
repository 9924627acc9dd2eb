package dbgateway

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestInsertBatch_EmptyGroupedDoesNotRequireConnection(t *testing.T) {
	g := New(Config{}, discardLogger())
	ok := g.InsertBatch(context.Background(), GroupedWrites{})
	assert.True(t, ok, "empty grouped writes must short-circuit to success without a transaction")
}

func TestInsertBatch_TableWithNoRowsIsSkipped(t *testing.T) {
	g := New(Config{}, discardLogger())
	ok := g.InsertBatch(context.Background(), GroupedWrites{"object_readings": {}})
	assert.True(t, ok)
}

func TestExecute_OnDisconnectedGatewayFails(t *testing.T) {
	g := New(Config{}, discardLogger())
	ok := g.Execute(context.Background(), "SELECT 1")
	assert.False(t, ok)
}

func TestPrepareInserts_OnDisconnectedGatewayReturnsError(t *testing.T) {
	g := New(Config{}, discardLogger())
	err := g.PrepareInserts(context.Background(), GroupedWrites{"object_readings": {1: 2.0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestInsertBatch_NonEmptyOnDisconnectedGatewayFails(t *testing.T) {
	g := New(Config{}, discardLogger())
	ok := g.InsertBatch(context.Background(), GroupedWrites{"object_readings": {1: 2.0}})
	assert.False(t, ok)
}

func TestInsertStaticRows_EmptyRowsDoesNotRequireConnection(t *testing.T) {
	g := New(Config{}, discardLogger())
	ok := g.InsertStaticRows(context.Background(), "systems", nil)
	assert.True(t, ok, "no rows to seed must short-circuit to success without a transaction")
}

func TestInsertStaticRows_NonEmptyOnDisconnectedGatewayFails(t *testing.T) {
	g := New(Config{}, discardLogger())
	ok := g.InsertStaticRows(context.Background(), "systems", []map[string]any{{"system_id": 1, "name": "line-1"}})
	assert.False(t, ok)
}
