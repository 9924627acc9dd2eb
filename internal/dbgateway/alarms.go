package dbgateway

import "context"

// alarmsTable is the fixed destination table for alarm lifecycle rows.
const alarmsTable = "alarms"

// InsertAlarmRaised inserts one row into the alarms table with
// raise-time columns populated; ack/clear timestamps are left null.
// Optional values are sent only when the caller has previously
// observed them (nil means "never observed", not "zero").
func (g *Gateway) InsertAlarmRaised(
	ctx context.Context,
	severity int32,
	eventID int64,
	systemID, objectID int32,
	systemState *int32,
	value *float32,
	errorCode *int32,
) bool {
	pool, err := g.currentPool()
	if err != nil {
		g.logger.Error("dbgateway: insert_alarm_raised on closed gateway", "error", err)
		return false
	}

	query := `INSERT INTO ` + alarmsTable + `
		(severity, event_id, state_id, subsystem_id, object_id, object_value, error_code, raised_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err = pool.Exec(ctx, query, severity, eventID, systemState, systemID, objectID, value, errorCode)
	if err != nil {
		g.logger.Error("dbgateway: insert_alarm_raised failed", "event_id", eventID, "error", newError("insert_alarm_raised", err))
		return false
	}
	return true
}

// UpdateAlarmAck sets the acknowledgement timestamp to the database's
// current time for the row identified by eventID.
func (g *Gateway) UpdateAlarmAck(ctx context.Context, eventID int64) bool {
	return g.updateTimestamp(ctx, "update_alarm_ack", "acknowledged_at", eventID)
}

// UpdateAlarmClear sets the clear timestamp to the database's current
// time for the row identified by eventID.
func (g *Gateway) UpdateAlarmClear(ctx context.Context, eventID int64) bool {
	return g.updateTimestamp(ctx, "update_alarm_clear", "cleared_at", eventID)
}

func (g *Gateway) updateTimestamp(ctx context.Context, operation, column string, eventID int64) bool {
	pool, err := g.currentPool()
	if err != nil {
		g.logger.Error("dbgateway: "+operation+" on closed gateway", "error", err)
		return false
	}

	query := `UPDATE ` + alarmsTable + ` SET ` + column + ` = NOW() WHERE event_id = $1`
	if _, err := pool.Exec(ctx, query, eventID); err != nil {
		g.logger.Error("dbgateway: "+operation+" failed", "event_id", eventID, "error", newError(operation, err))
		return false
	}
	return true
}
