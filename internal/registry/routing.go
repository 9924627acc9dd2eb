package registry

import "github.com/felipevillazon/xelips/internal/nodeid"

// Route is one entry of the alarm routing table: it tells the alarm
// subscription engine which object a node id's change notifications
// belong to and which cache field they feed.
type Route struct {
	ObjectID int32
	SystemID int32
	Field    Field
}

// RoutingTable builds the node-id-text -> Route mapping derived from a
// list of alarm mappings, per spec's "alarm routing table" data model.
func RoutingTable(mappings []AlarmMapping) map[string]Route {
	table := make(map[string]Route)
	add := func(id nodeid.NodeID, objectID, systemID int32, field Field) {
		table[id.String()] = Route{ObjectID: objectID, SystemID: systemID, Field: field}
	}
	for _, m := range mappings {
		add(m.Severity, m.ObjectID, m.SystemID, FieldSeverity)
		add(m.Ack, m.ObjectID, m.SystemID, FieldAck)
		if m.ErrorCode != nil {
			add(*m.ErrorCode, m.ObjectID, m.SystemID, FieldErrorCode)
		}
		if m.Value != nil {
			add(*m.Value, m.ObjectID, m.SystemID, FieldValue)
		}
		if m.SystemState != nil {
			add(*m.SystemState, m.ObjectID, m.SystemID, FieldSystemState)
		}
	}
	return table
}
