package nodeid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipevillazon/xelips/internal/nodeid"
)

func TestParse_Valid(t *testing.T) {
	id, err := nodeid.Parse("ns=2;i=10001")
	require.NoError(t, err)
	assert.Equal(t, uint16(2), id.Namespace)
	assert.Equal(t, uint32(10001), id.Identifier)
}

func TestParse_RoundTrip(t *testing.T) {
	cases := []string{"ns=0;i=0", "ns=1;i=1", "ns=65535;i=4294967295"}
	for _, s := range cases {
		id, err := nodeid.Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, id.String())
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",
		"ns=2",
		"i=10001",
		"ns=2;i=abc",
		"ns=-1;i=1",
		" ns=2;i=1",
		"ns=2;i=1 ",
		"ns=s=2;i=10001",     // string node id kind, unsupported
		"ns=2;g=aabbccdd",    // GUID node id kind, unsupported
		"ns=65536;i=1",       // namespace overflows uint16
		"ns=2;i=4294967296",  // identifier overflows uint32
	}
	for _, s := range cases {
		_, err := nodeid.Parse(s)
		assert.ErrorIsf(t, err, nodeid.ErrInvalidNodeID, "input %q", s)
	}
}
