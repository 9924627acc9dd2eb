package alarmsub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/felipevillazon/xelips/internal/metrics"
	"github.com/felipevillazon/xelips/internal/registry"
)

// Gateway is the subset of the DB gateway the alarm engine writes
// through. Satisfied by *dbgateway.Serialized in production.
type Gateway interface {
	InsertAlarmRaised(ctx context.Context, severity int32, eventID int64, systemID, objectID int32, systemState *int32, value *float32, errorCode *int32) bool
	UpdateAlarmAck(ctx context.Context, eventID int64) bool
	UpdateAlarmClear(ctx context.Context, eventID int64) bool
}

// Counter allocates durable, monotonically increasing event ids.
// Satisfied by *eventid.Counter.
type Counter interface {
	Next() (int64, error)
}

// Engine owns the routing table and alarm cache for one PLC engine
// instance; they are exclusively its own — the DB gateway never reads
// them.
type Engine struct {
	mu      sync.Mutex
	routes  map[string]registry.Route
	cache   map[int32]*StateCache
	gateway Gateway
	counter Counter
	plcName string
	logger  *slog.Logger
}

// New builds an Engine from the alarm mappings loaded by the
// node-registry loader.
func New(mappings []registry.AlarmMapping, gateway Gateway, counter Counter, plcName string, logger *slog.Logger) *Engine {
	return &Engine{
		routes:  registry.RoutingTable(mappings),
		cache:   make(map[int32]*StateCache),
		gateway: gateway,
		counter: counter,
		plcName: plcName,
		logger:  logger,
	}
}

// HandleChange processes one incoming (node id, raw value) change
// notification. It is the engine's single entry point with respect to
// the alarm cache: every call holds the engine's mutex for its whole
// duration, so concurrent callers are serialised and cache transitions
// are linearisable per object.
//
// Any panic inside is caught and logged; it never propagates to the
// subscription's delivery loop.
func (e *Engine) HandleChange(ctx context.Context, nodeText string, raw any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("alarmsub: recovered from panic in change callback", "node_id", nodeText, "panic", r)
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	route, ok := e.routes[nodeText]
	if !ok {
		return
	}

	cache, ok := e.cache[route.ObjectID]
	if !ok {
		cache = &StateCache{Initialized: true}
		e.cache[route.ObjectID] = cache
	}

	switch route.Field {
	case registry.FieldSeverity:
		e.handleSeverity(ctx, route, cache, raw)
	case registry.FieldAck:
		e.handleAck(ctx, route, cache, raw)
	case registry.FieldErrorCode:
		v := toInt32(raw)
		cache.LastErrorCode = &v
	case registry.FieldValue:
		v := toFloat32(raw)
		cache.LastValue = &v
	case registry.FieldSystemState:
		v := toInt32(raw)
		cache.LastSystemState = &v
	}
}

func (e *Engine) handleSeverity(ctx context.Context, route registry.Route, cache *StateCache, raw any) {
	oldSev := cache.LastSeverity
	newSev := toSeverity(raw)
	cache.LastSeverity = newSev

	switch {
	case oldSev == 0 && newSev > 0:
		id, err := e.counter.Next()
		if err != nil {
			e.logger.Error("alarmsub: event id allocation failed", "object_id", route.ObjectID, "error", err)
			return
		}
		cache.EventID = &id
		cache.Active = true
		if e.gateway.InsertAlarmRaised(ctx, newSev, id, route.SystemID, route.ObjectID, cache.LastSystemState, cache.LastValue, cache.LastErrorCode) {
			metrics.AlarmEventsTotal.WithLabelValues(e.plcName, "raise").Inc()
		}

	case oldSev > 0 && newSev == 0 && cache.Active:
		eventID := *cache.EventID
		if e.gateway.UpdateAlarmClear(ctx, eventID) {
			metrics.AlarmEventsTotal.WithLabelValues(e.plcName, "clear").Inc()
		}
		cache.Active = false
		cache.EventID = nil
		cache.LastAck = false

	default:
		// Severity moved between two positive levels, or stayed at
		// zero: only the cache slot above changes.
	}
}

func (e *Engine) handleAck(ctx context.Context, route registry.Route, cache *StateCache, raw any) {
	newAck := toBool(raw)
	if !cache.LastAck && newAck && cache.Active {
		if e.gateway.UpdateAlarmAck(ctx, *cache.EventID) {
			metrics.AlarmEventsTotal.WithLabelValues(e.plcName, "ack").Inc()
		}
	}
	cache.LastAck = newAck
}

// Snapshot returns a copy of the current cache state for object_id, for
// tests and diagnostics. The zero value's Initialized field is false
// when no entry exists yet.
func (e *Engine) Snapshot(objectID int32) StateCache {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cache[objectID]; ok {
		return *c
	}
	return StateCache{}
}
