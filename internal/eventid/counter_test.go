package eventid_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipevillazon/xelips/internal/eventid"
)

func TestNext_StartsAtOneOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event_id.txt")
	c := eventid.NewCounter(path)

	id, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestNext_MonotonicAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event_id.txt")
	c := eventid.NewCounter(path)

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := c.Next()
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNext_SurvivesAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event_id.txt")

	first := eventid.NewCounter(path)
	id1, err := first.Next()
	require.NoError(t, err)

	second := eventid.NewCounter(path)
	id2, err := second.Next()
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
}

func TestNext_SerialisedUnderConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event_id.txt")
	c := eventid.NewCounter(path)

	const n = 50
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := c.Next()
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %d allocated", id)
		seen[id] = true
	}
}
