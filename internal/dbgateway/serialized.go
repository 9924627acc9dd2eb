package dbgateway

import (
	"context"
	"sync"
)

// Serialized wraps a Gateway with a mutex so the polling pipeline and
// the alarm subscription engine can share one connection without
// interleaving calls. The gateway itself assumes a single writer;
// Serialized is the external mutex that lets two callers share one.
type Serialized struct {
	mu sync.Mutex
	g  *Gateway
}

// NewSerialized wraps g.
func NewSerialized(g *Gateway) *Serialized {
	return &Serialized{g: g}
}

func (s *Serialized) PrepareInserts(ctx context.Context, grouped GroupedWrites) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.PrepareInserts(ctx, grouped)
}

func (s *Serialized) InsertBatch(ctx context.Context, grouped GroupedWrites) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.InsertBatch(ctx, grouped)
}

func (s *Serialized) InsertAlarmRaised(
	ctx context.Context,
	severity int32,
	eventID int64,
	systemID, objectID int32,
	systemState *int32,
	value *float32,
	errorCode *int32,
) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.InsertAlarmRaised(ctx, severity, eventID, systemID, objectID, systemState, value, errorCode)
}

func (s *Serialized) UpdateAlarmAck(ctx context.Context, eventID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.UpdateAlarmAck(ctx, eventID)
}

func (s *Serialized) UpdateAlarmClear(ctx context.Context, eventID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.UpdateAlarmClear(ctx, eventID)
}
