package cache

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"testing"

	"github.com/ClaytonHunt/cascade/internal/record"
)

// countingLoader fabricates a record per path and counts loads.
func countingLoader(loads *atomic.Int64) Loader {
	return func(path string) (*record.Record, error) {
		loads.Add(1)
		return &record.Record{
			ID:     "S1",
			Title:  "stub",
			Kind:   record.KindStory,
			Status: record.StatusReady,
			Path:   path,
		}, nil
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestGetReadThrough(t *testing.T) {
	var loads atomic.Int64
	c, err := New(10, countingLoader(&loads), quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, ok := c.Get("/plans/S1.md"); !ok {
		t.Fatal("first Get missed")
	}
	if _, ok := c.Get("/plans/S1.md"); !ok {
		t.Fatal("second Get missed")
	}
	if got := loads.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, size 1", stats)
	}
}

func TestGetNormalizesKeys(t *testing.T) {
	var loads atomic.Int64
	c, _ := New(10, countingLoader(&loads), quietLogger())

	c.Get("/Plans/S1.md")
	c.Get("/plans/s1.md")

	if got := loads.Load(); got != 1 {
		t.Errorf("loader called %d times for one logical path, want 1", got)
	}
}

func TestInvalidateForcesReRead(t *testing.T) {
	var loads atomic.Int64
	c, _ := New(10, countingLoader(&loads), quietLogger())

	c.Get("/plans/S1.md")
	c.Invalidate("/plans/S1.md")
	c.Get("/plans/S1.md")

	if got := loads.Load(); got != 2 {
		t.Errorf("loader called %d times, want 2 (re-read after invalidate)", got)
	}

	// Idempotent on absent entries.
	c.Invalidate("/plans/S1.md")
	c.Invalidate("/plans/S1.md")
}

func TestClearDropsEverything(t *testing.T) {
	var loads atomic.Int64
	c, _ := New(10, countingLoader(&loads), quietLogger())

	for i := 0; i < 5; i++ {
		c.Get(fmt.Sprintf("/plans/S%d.md", i))
	}
	c.Clear()

	if got := c.Stats().Size; got != 0 {
		t.Fatalf("size after Clear = %d, want 0", got)
	}

	c.Get("/plans/S0.md")
	if got := loads.Load(); got != 6 {
		t.Errorf("loader called %d times, want 6 (re-read after clear)", got)
	}
}

func TestLRUEviction(t *testing.T) {
	var loads atomic.Int64
	c, _ := New(2, countingLoader(&loads), quietLogger())

	c.Get("/plans/S1.md")
	c.Get("/plans/S2.md")
	c.Get("/plans/S1.md") // S1 now most recently used
	c.Get("/plans/S3.md") // evicts S2

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", stats.Evictions)
	}
	if stats.Size != 2 {
		t.Errorf("size = %d, want 2", stats.Size)
	}

	before := loads.Load()
	c.Get("/plans/S1.md") // still cached
	c.Get("/plans/S2.md") // evicted, reloads
	if got := loads.Load() - before; got != 1 {
		t.Errorf("loader called %d times, want 1 (only the evicted path reloads)", got)
	}
}

func TestParseFailureIsExcludedNotCached(t *testing.T) {
	var loads atomic.Int64
	broken := func(path string) (*record.Record, error) {
		loads.Add(1)
		return nil, &record.ParseError{Path: path, Reason: "boom"}
	}
	c, _ := New(10, broken, quietLogger())

	if _, ok := c.Get("/plans/S1.md"); ok {
		t.Fatal("Get returned a record for a broken file")
	}
	if _, ok := c.Get("/plans/S1.md"); ok {
		t.Fatal("Get returned a record for a broken file")
	}
	if got := loads.Load(); got != 2 {
		t.Errorf("loader called %d times, want 2 (failures are not cached)", got)
	}
	if got := c.Stats().Size; got != 0 {
		t.Errorf("size = %d, want 0", got)
	}
}
