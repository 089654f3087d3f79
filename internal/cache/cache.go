// Package cache provides the bounded read-through cache of parsed records.
//
// Entries are keyed by normalized path and populated lazily on Get. The
// refresh engine clears the whole cache at refresh boundaries; correctness
// comes from clear-and-rebuild, not from fine-grained dependency tracking.
package cache

import (
	"log"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ClaytonHunt/cascade/internal/record"
)

// DefaultCapacity bounds the record cache when no capacity is configured.
const DefaultCapacity = 1000

// Loader reads and parses the record backing a path. Production code uses
// FileLoader; tests substitute their own.
type Loader func(path string) (*record.Record, error)

// FileLoader parses a record straight from disk.
func FileLoader(path string) (*record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return record.Parse(path, data)
}

// Stats is an observability snapshot. It has no behavioral effect.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// RecordCache holds parsed records keyed by normalized file path, evicting
// the least-recently-used entry when at capacity.
type RecordCache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, *record.Record]
	loader Loader
	logger *log.Logger

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a record cache. capacity <= 0 selects DefaultCapacity; a nil
// loader selects FileLoader.
func New(capacity int, loader Loader, logger *log.Logger) (*RecordCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if loader == nil {
		loader = FileLoader
	}
	if logger == nil {
		logger = log.Default()
	}

	inner, err := lru.New[string, *record.Record](capacity)
	if err != nil {
		return nil, err
	}

	return &RecordCache{
		lru:    inner,
		loader: loader,
		logger: logger,
	}, nil
}

// Get returns the record for path, reading and parsing the backing file on a
// miss. A file that cannot be read or parsed is logged and excluded from the
// active set: Get returns (nil, false) and nothing is cached, so the next Get
// retries the read.
func (c *RecordCache) Get(path string) (*record.Record, bool) {
	key := record.NormalizePath(path)

	c.mu.Lock()
	if r, ok := c.lru.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		return r, true
	}
	c.misses++
	c.mu.Unlock()

	// Load outside the lock; parsing is pure and a duplicate load for the
	// same path is harmless.
	r, err := c.loader(path)
	if err != nil {
		c.logger.Printf("cache: excluding %s: %v", path, err)
		return nil, false
	}

	c.mu.Lock()
	if c.lru.Add(key, r) {
		c.evictions++
	}
	c.mu.Unlock()

	return r, true
}

// Invalidate removes the entry for path if present. No-op otherwise.
func (c *RecordCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(record.NormalizePath(path))
}

// Clear drops every entry. Called at the start of each refresh cycle.
func (c *RecordCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Stats returns the current counters and size.
func (c *RecordCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.lru.Len(),
	}
}
