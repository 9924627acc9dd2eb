// Package polling implements the per-PLC polling pipeline (C4): on a
// fixed tick it reads every poll-set node, normalises values, groups
// them by destination table, and writes one batched insert per table.
package polling

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felipevillazon/xelips/internal/dbgateway"
	"github.com/felipevillazon/xelips/internal/metrics"
	"github.com/felipevillazon/xelips/internal/nodeid"
	"github.com/felipevillazon/xelips/internal/registry"
)

// Gateway is the subset of the DB gateway the pipeline writes through.
// Satisfied by *dbgateway.Serialized in production and by a fake in
// tests.
type Gateway interface {
	PrepareInserts(ctx context.Context, grouped dbgateway.GroupedWrites) error
	InsertBatch(ctx context.Context, grouped dbgateway.GroupedWrites) bool
}

// maxConcurrentReads bounds the per-tick fan-out so a poll set of many
// thousands of nodes does not spawn unbounded goroutines.
const maxConcurrentReads = 64

// Pipeline runs one PLC's polling tick.
type Pipeline struct {
	plcName string
	reader  Reader
	gateway Gateway
	store   *Store
	period  time.Duration
	logger  *slog.Logger
}

// NewPipeline constructs a Pipeline. reader and gateway are normally an
// *OPCUAReader wrapping the engine's session and a *dbgateway.Serialized
// wrapping the engine's gateway, respectively.
func NewPipeline(plcName string, reader Reader, gateway Gateway, period time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		plcName: plcName,
		reader:  reader,
		gateway: gateway,
		store:   NewStore(),
		period:  period,
		logger:  logger,
	}
}

// Tick runs one full cycle against the given poll snapshot: issue
// reads, group, write, pace. Returns true iff the batch write (or its
// absence, for an empty poll set) succeeded.
func (p *Pipeline) Tick(ctx context.Context, snapshot *registry.Snapshot) bool {
	start := time.Now()

	p.issueReads(ctx, snapshot)
	grouped := p.group(snapshot)
	ok := p.writeGrouped(ctx, grouped)

	elapsed := time.Since(start)
	metrics.TickDuration.WithLabelValues(p.plcName).Observe(elapsed.Seconds())
	status := "ok"
	if !ok {
		status = "db_error"
	}
	metrics.TicksTotal.WithLabelValues(p.plcName, status).Inc()

	p.pace(elapsed)
	return ok
}

func (p *Pipeline) issueReads(ctx context.Context, snapshot *registry.Snapshot) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for nodeText, entry := range snapshot.Poll {
		nodeText, entry := nodeText, entry
		g.Go(func() error {
			id, err := nodeid.Parse(nodeText)
			if err != nil {
				p.logger.Error("polling: poll snapshot holds unparsable node id", "node_id", nodeText, "error", err)
				return nil
			}
			raw, err := p.reader.ReadValue(gctx, id)
			if err != nil {
				p.logger.Error("polling: read failed, keeping prior value", "node_id", nodeText, "error", err)
				return nil
			}
			if raw == nil {
				// No value this tick: leave the prior latest value untouched.
				return nil
			}
			p.store.Set(nodeText, entry.ObjectID, entry.TableName, raw)
			return nil
		})
	}
	_ = g.Wait()
}

var nanLogOnce sync.Once

func (p *Pipeline) group(snapshot *registry.Snapshot) dbgateway.GroupedWrites {
	grouped := make(dbgateway.GroupedWrites)

	for nodeText, entry := range snapshot.Poll {
		v, ok := p.store.Get(nodeText)
		if !ok {
			continue
		}
		value := Normalize(v.Raw)
		if math.IsNaN(float64(value)) {
			nanLogOnce.Do(func() {
				p.logger.Error("polling: unsupported value type normalised to NaN", "node_id", nodeText)
			})
		}
		if grouped[entry.TableName] == nil {
			grouped[entry.TableName] = make(map[int32]float32)
		}
		grouped[entry.TableName][entry.ObjectID] = value
	}

	return grouped
}

func (p *Pipeline) writeGrouped(ctx context.Context, grouped dbgateway.GroupedWrites) bool {
	if err := p.gateway.PrepareInserts(ctx, grouped); err != nil {
		p.logger.Error("polling: prepare_inserts failed", "error", err)
		metrics.DBErrorsTotal.WithLabelValues(p.plcName, "prepare_inserts").Inc()
		return false
	}

	ok := p.gateway.InsertBatch(ctx, grouped)
	if !ok {
		metrics.DBErrorsTotal.WithLabelValues(p.plcName, "insert_batch").Inc()
		return false
	}

	for table, rows := range grouped {
		metrics.BatchRowsTotal.WithLabelValues(p.plcName, table).Add(float64(len(rows)))
	}
	return true
}

func (p *Pipeline) pace(elapsed time.Duration) {
	remaining := p.period - elapsed
	if remaining > 0 {
		time.Sleep(remaining)
	}
}
