// Package eventid implements the durable, monotonically increasing
// event-id allocator used to identify one alarm lifecycle instance.
package eventid

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
)

// Counter persists the last issued id as a single ASCII integer in a
// file, overwritten via write-to-temp-then-atomic-rename so a crash
// mid-write can at worst skip ids, never reuse one.
type Counter struct {
	mu   sync.Mutex
	path string
}

// NewCounter returns a Counter backed by path. The file need not exist
// yet; the first Next() call treats a missing file as a starting value
// of zero.
func NewCounter(path string) *Counter {
	return &Counter{path: path}
}

// Next allocates and persists the next id. It is safe for concurrent
// use: allocation is serialised by an in-process mutex, and the
// durable write is a single atomic rename.
func (c *Counter) Next() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.read()
	if err != nil {
		return 0, fmt.Errorf("eventid: read counter: %w", err)
	}

	next := current + 1
	if err := renameio.WriteFile(c.path, []byte(strconv.FormatInt(next, 10)), 0o644); err != nil {
		return 0, fmt.Errorf("eventid: persist counter: %w", err)
	}

	return next, nil
}

func (c *Counter) read() (int64, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}

	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter file contains non-integer content: %w", err)
	}
	return value, nil
}
