package dbgateway

import (
	"errors"
	"fmt"
)

// ErrNotConnected indicates the gateway has no live pool.
var ErrNotConnected = errors.New("dbgateway: not connected")

// Error wraps a failed database operation with the diagnostic
// information the driver reported, mirroring the "inspect the driver
// diagnostic record on non-success" contract.
type Error struct {
	Operation string
	Code      string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("dbgateway: %s failed [%s]: %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("dbgateway: %s failed: %s", e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(operation string, err error) *Error {
	code, msg := diagnose(err)
	return &Error{Operation: operation, Code: code, Message: msg, Err: err}
}
