package polling

import (
	"hash/fnv"
	"sync"
)

const shardCount = 16

// latestValue is the monitored-node latest-value table's per-entry
// payload: the object it belongs to, its destination table, and the
// raw value last read for it.
type latestValue struct {
	ObjectID  int32
	TableName string
	Raw       any
}

type shard struct {
	mu     sync.Mutex
	values map[string]latestValue
}

// Store is the latest-value table: keyed by node-id text, sharded so
// that unrelated nodes never contend on the same lock. A bounded
// number of shards keeps lock contention low without paying for one
// mutex per node.
type Store struct {
	shards [shardCount]*shard
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{values: make(map[string]latestValue)}
	}
	return s
}

func (s *Store) shardFor(nodeText string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(nodeText))
	return s.shards[h.Sum32()%shardCount]
}

// Set atomically stores the latest value for nodeText.
func (s *Store) Set(nodeText string, objectID int32, tableName string, raw any) {
	sh := s.shardFor(nodeText)
	sh.mu.Lock()
	sh.values[nodeText] = latestValue{ObjectID: objectID, TableName: tableName, Raw: raw}
	sh.mu.Unlock()
}

// Get retrieves the latest value for nodeText, if one has ever landed.
func (s *Store) Get(nodeText string) (latestValue, bool) {
	sh := s.shardFor(nodeText)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.values[nodeText]
	return v, ok
}
