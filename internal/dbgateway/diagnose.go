package dbgateway

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// diagnose extracts the PostgreSQL diagnostic record (SQLSTATE code and
// message) from err, when the driver supplied one, so every failed
// call can be logged with a stable error code rather than a bare
// driver error string.
func diagnose(err error) (code, message string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message
	}
	return "", err.Error()
}

// retryableCodes lists the PostgreSQL SQLSTATE codes a caller may
// reasonably retry (connection-level failures), mirroring the
// teacher's postgres package's retryable-code table.
var retryableCodes = map[string]bool{
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
	"08001": true, // sqlclient_unable_to_establish_sqlconnection
	"08004": true, // sqlserver_rejected_establishment_of_sqlconnection
	"57P03": true, // cannot_connect_now
}

// IsRetryable reports whether err represents a connection-level failure
// the supervisor should treat as transient. The reconnect loop retries
// unconditionally either way; this only lets it log a config-looking
// failure (bad credentials, unreachable SQLSTATE) distinctly from a
// transient one instead of emitting an identical warning for both.
func IsRetryable(err error) bool {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return retryableCodes[dbErr.Code]
	}
	return false
}
