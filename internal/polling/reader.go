package polling

import (
	"context"

	"github.com/felipevillazon/xelips/internal/nodeid"
)

// Reader issues a single value read against a node. Implementations
// must be safe for concurrent use: the pipeline issues one read per
// poll-set node concurrently within a tick.
type Reader interface {
	ReadValue(ctx context.Context, id nodeid.NodeID) (any, error)
}
