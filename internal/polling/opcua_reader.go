package polling

import (
	"context"
	"fmt"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/felipevillazon/xelips/internal/nodeid"
)

// OPCUAReader issues synchronous reads against a live *opcua.Client.
// Each call is cheap to run concurrently: the pipeline launches one
// per poll-set node per tick, recovering the asynchrony gopcua's
// synchronous-only Read API doesn't offer by running each read in its
// own goroutine — reads still carry no ordering guarantee relative to
// one another, matching a true async-read API's behavior.
type OPCUAReader struct {
	Client *opcua.Client
}

// ReadValue reads id and returns the driver's native Go value for it
// (bool, int16, float32, float64, ...), or an error if the read failed
// or the server reported a non-good status.
func (r *OPCUAReader) ReadValue(ctx context.Context, id nodeid.NodeID) (any, error) {
	req := &ua.ReadRequest{
		NodesToRead: []*ua.ReadValueID{
			{NodeID: ua.NewNumericNodeID(id.Namespace, id.Identifier)},
		},
		TimestampsToReturn: ua.TimestampsToReturnNeither,
	}

	resp, err := r.Client.Read(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("polling: read %s: %w", id, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("polling: empty read response for %s", id)
	}

	dv := resp.Results[0]
	if dv.Status != ua.StatusOK {
		return nil, fmt.Errorf("polling: bad status %s for %s", dv.Status, id)
	}
	if dv.Value == nil {
		return nil, fmt.Errorf("polling: absent value for %s", id)
	}

	return dv.Value.Value(), nil
}
