// Package nodeid parses and formats OPC UA numeric node identifiers in
// their canonical text form: ns=<namespace>;i=<identifier>.
package nodeid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidNodeID is returned when a node id string does not match the
// canonical ns=<u16>;i=<u32> form, or when either component overflows
// its declared width.
var ErrInvalidNodeID = errors.New("nodeid: invalid node id")

var pattern = regexp.MustCompile(`^ns=([0-9]+);i=([0-9]+)$`)

// NodeID is a numeric OPC UA node identifier: a namespace index paired
// with an integer identifier within that namespace.
type NodeID struct {
	Namespace  uint16
	Identifier uint32
}

// Parse parses the canonical text form "ns=<u16>;i=<u32>" into a NodeID.
// Parsing is strict: extra whitespace, alternate node-id kinds (string,
// GUID, opaque), and out-of-range components are all rejected.
func Parse(s string) (NodeID, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return NodeID{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
	}

	ns, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return NodeID{}, fmt.Errorf("%w: namespace out of range in %q", ErrInvalidNodeID, s)
	}

	id, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return NodeID{}, fmt.Errorf("%w: identifier out of range in %q", ErrInvalidNodeID, s)
	}

	return NodeID{Namespace: uint16(ns), Identifier: uint32(id)}, nil
}

// String renders the NodeID back to its canonical text form. It is the
// exact inverse of Parse: Parse(id.String()) always yields id.
func (id NodeID) String() string {
	return fmt.Sprintf("ns=%d;i=%d", id.Namespace, id.Identifier)
}
