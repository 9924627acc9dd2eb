// Package alarmsub implements the alarm subscription engine (C5): it
// creates one OPC UA subscription, routes change notifications into a
// per-object alarm lifecycle state machine, allocates durable event
// identifiers, and writes alarm rows.
package alarmsub

// StateCache is the per-object_id alarm state, one entry per monitored
// object.
type StateCache struct {
	LastSeverity    int32
	LastAck         bool
	LastErrorCode   *int32
	LastValue       *float32
	LastSystemState *int32
	Active          bool
	EventID         *int64
	Initialized     bool
}
