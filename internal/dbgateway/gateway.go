// Package dbgateway owns the database connection for one PLC engine:
// connect/disconnect, the prepared-insert cache, batched reading
// writes, alarm lifecycle writes, and schema bootstrap.
//
// The gateway is not internally synchronised; it assumes a single
// logical writer. Two execution contexts sharing one gateway (the
// polling pipeline and the alarm subscription engine) must serialise
// through Serialized.
package dbgateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GroupedWrites is the per-tick grouped-write table: table name to
// object_id-to-normalised-value.
type GroupedWrites map[string]map[int32]float32

// Gateway owns the pool and the logical prepared-statement cache for
// one PLC engine.
type Gateway struct {
	cfg      Config
	logger   *slog.Logger
	mu       sync.Mutex // guards pool and prepared during connect/disconnect only
	pool     *pgxpool.Pool
	prepared map[string]struct{}
}

// New constructs a Gateway. It does not connect.
func New(cfg Config, logger *slog.Logger) *Gateway {
	return &Gateway{cfg: cfg.withDefaults(), logger: logger, prepared: make(map[string]struct{})}
}

// Connect is idempotent: it closes any prior connection first, drops
// the prepared-statement cache, then builds a fresh pool from the
// descriptor. Returns true on success; on failure also returns the
// diagnosed error so a retry loop can tell a transient connection
// failure from a configuration error worth flagging distinctly.
func (g *Gateway) Connect(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pool != nil {
		g.pool.Close()
		g.pool = nil
	}
	g.prepared = make(map[string]struct{})

	poolCfg, err := pgxpool.ParseConfig(g.cfg.DSN())
	if err != nil {
		dbErr := newError("connect", err)
		g.logger.Error("dbgateway: invalid DSN", "error", dbErr)
		return false, dbErr
	}
	poolCfg.MaxConns = g.cfg.MaxConns
	poolCfg.MinConns = g.cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		dbErr := newError("connect", err)
		g.logger.Error("dbgateway: connect failed", "error", dbErr)
		return false, dbErr
	}
	if err := pool.Ping(ctx); err != nil {
		dbErr := newError("connect", err)
		g.logger.Error("dbgateway: ping failed", "error", dbErr)
		pool.Close()
		return false, dbErr
	}

	g.pool = pool
	return true, nil
}

// Disconnect releases the prepared-statement cache first, then the
// connection. Either order leaves the gateway in the same usable
// state; cache-then-pool just avoids a moment where a cached entry
// points at an already-closed pool.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prepared = make(map[string]struct{})
	if g.pool != nil {
		g.pool.Close()
		g.pool = nil
	}
}

func (g *Gateway) currentPool() (*pgxpool.Pool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pool == nil {
		return nil, ErrNotConnected
	}
	return g.pool, nil
}

// Execute runs a parameterless statement, used for transaction control
// and schema DDL.
func (g *Gateway) Execute(ctx context.Context, text string) bool {
	pool, err := g.currentPool()
	if err != nil {
		g.logger.Error("dbgateway: execute on closed gateway", "error", err)
		return false
	}
	if _, err := pool.Exec(ctx, text); err != nil {
		g.logger.Error("dbgateway: execute failed", "error", newError("execute", err))
		return false
	}
	return true
}

// PrepareInserts warms the logical per-table insert cache for every
// table present in grouped that is not already cached. pgx's own
// per-connection statement cache performs the physical prepare; this
// cache only tracks which tables this gateway has already warmed, so a
// table is never re-registered.
func (g *Gateway) PrepareInserts(ctx context.Context, grouped GroupedWrites) error {
	pool, err := g.currentPool()
	if err != nil {
		return err
	}

	for table := range grouped {
		if _, ok := g.prepared[table]; ok {
			continue
		}
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return newError("prepare_inserts", err)
		}
		stmtName := "ins_" + table
		query := fmt.Sprintf("INSERT INTO %s (object_id, object_value) VALUES ($1, $2)", table)
		_, err = conn.Conn().Prepare(ctx, stmtName, query)
		conn.Release()
		if err != nil {
			return newError("prepare_inserts", err)
		}
		g.prepared[table] = struct{}{}
	}
	return nil
}

// InsertBatch writes grouped within a single transaction: one
// multi-row INSERT per table with a non-empty row set. Any failure
// rolls back the whole transaction.
func (g *Gateway) InsertBatch(ctx context.Context, grouped GroupedWrites) bool {
	nonEmpty := make(map[string]map[int32]float32, len(grouped))
	for table, rows := range grouped {
		if len(rows) > 0 {
			nonEmpty[table] = rows
		}
	}
	if len(nonEmpty) == 0 {
		return true
	}

	pool, err := g.currentPool()
	if err != nil {
		g.logger.Error("dbgateway: insert_batch on closed gateway", "error", err)
		return false
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		g.logger.Error("dbgateway: begin failed", "error", newError("insert_batch", err))
		return false
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	for table, rows := range nonEmpty {
		placeholders := make([]string, 0, len(rows))
		args := make([]any, 0, len(rows)*2)
		i := 1
		for objectID, value := range rows {
			placeholders = append(placeholders, fmt.Sprintf("($%d,$%d)", i, i+1))
			args = append(args, objectID, value)
			i += 2
		}
		query := fmt.Sprintf(
			"INSERT INTO %s (object_id, object_value) VALUES %s",
			table, strings.Join(placeholders, ", "),
		)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			g.logger.Error("dbgateway: insert_batch failed", "table", table, "error", newError("insert_batch", err))
			return false
		}
	}

	if err := tx.Commit(ctx); err != nil {
		g.logger.Error("dbgateway: commit failed", "error", newError("insert_batch", err))
		return false
	}
	committed = true
	return true
}
