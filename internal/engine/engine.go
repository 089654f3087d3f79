// Package engine sequences the refresh cycle that keeps the hierarchical
// view synchronized with the planning files.
//
// One Engine owns every cache tier (record cache, built forest, progress
// memo); there is no ambient or static state, so independent engines can
// coexist in one process. A refresh cycle runs to completion before the next
// starts; triggers arriving mid-refresh coalesce into a single follow-up
// cycle via a capacity-1 channel drained by the worker goroutine.
package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ClaytonHunt/cascade/internal/cache"
	"github.com/ClaytonHunt/cascade/internal/hierarchy"
	"github.com/ClaytonHunt/cascade/internal/propagate"
	"github.com/ClaytonHunt/cascade/internal/record"
)

// Config holds engine configuration.
type Config struct {
	// Dir is the planning root to scan.
	Dir string

	// CacheCapacity bounds the record cache. Zero selects the default.
	CacheCapacity int

	// Logger for refresh activity and degraded-mode warnings.
	Logger *log.Logger

	// Loader overrides how record files are read and parsed (tests).
	Loader cache.Loader

	// ReadOnly disables status propagation: the view is built but no
	// backing file is ever rewritten.
	ReadOnly bool

	// Settle is the quiet window the refresh worker waits after a trigger,
	// draining further triggers so a burst of per-path settles runs one
	// cycle, not one per file. Zero selects DefaultSettle; negative
	// disables the wait.
	Settle time.Duration

	// Now supplies propagation timestamps. time.Now when nil.
	Now func() time.Time
}

// DefaultSettle is the default trigger quiet window.
const DefaultSettle = 100 * time.Millisecond

// Summary reports the outcome of one refresh cycle.
type Summary struct {
	// Records is the size of the active record set.
	Records int

	// Propagation is what the propagation pass did.
	Propagation propagate.Result

	// Partial reports that the reload missed part of the tree and the
	// cycle therefore skipped propagation.
	Partial bool

	// Duration is the wall-clock cost of the cycle.
	Duration time.Duration
}

// Engine is the single entry point that sequences invalidate → reload →
// build → propagate → invalidate → notify.
type Engine struct {
	dir      string
	logger   *log.Logger
	readOnly bool
	settle   time.Duration

	records *cache.RecordCache
	prop    *propagate.Engine

	// refreshMu serializes refresh cycles.
	refreshMu sync.Mutex

	// viewMu guards the published view.
	viewMu     sync.RWMutex
	roots      []*hierarchy.Node
	progress   *hierarchy.Calculator
	generation uint64
	last       Summary

	trigger chan struct{}

	subsMu sync.Mutex
	subs   []chan struct{}
}

// New creates an engine over the planning directory in cfg.Dir.
func New(cfg Config) (*Engine, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	records, err := cache.New(cfg.CacheCapacity, cfg.Loader, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}

	settle := cfg.Settle
	if settle == 0 {
		settle = DefaultSettle
	}

	return &Engine{
		dir:      cfg.Dir,
		logger:   logger,
		readOnly: cfg.ReadOnly,
		settle:   settle,
		records:  records,
		prop:     propagate.New(&propagate.Config{Logger: logger, Now: cfg.Now}),
		progress: hierarchy.NewCalculator(),
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Start launches the worker that drains refresh triggers. It returns
// immediately; ctx cancellation stops the worker.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.trigger:
				if !e.quiesce(ctx) {
					return
				}
				e.Refresh()
			}
		}
	}()
}

// quiesce waits for the trigger stream to go quiet. The per-path debouncer
// settles each file independently, so several files changing together land
// several triggers a few milliseconds apart; draining them through one quiet
// window makes the burst cost one cycle instead of one per file. Returns
// false when ctx is cancelled.
func (e *Engine) quiesce(ctx context.Context) bool {
	if e.settle <= 0 {
		return true
	}

	timer := time.NewTimer(e.settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-e.trigger:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(e.settle)
		case <-timer.C:
			return true
		}
	}
}

// RefreshNow requests a refresh without waiting for it. Bypasses the
// debouncer but still goes through the one-refresh-at-a-time gate: a request
// arriving while a cycle runs coalesces into a single follow-up cycle.
func (e *Engine) RefreshNow() {
	select {
	case e.trigger <- struct{}{}:
	default:
		// A refresh is already pending; this trigger coalesces into it.
	}
}

// OnSettled adapts the engine to the debouncer's settled callback. The
// settled path itself is not needed: propagation requires the whole tree, so
// every settle triggers a full refresh.
func (e *Engine) OnSettled(string) {
	e.RefreshNow()
}

// Refresh runs one full cycle to completion and returns its summary. Any
// failure inside the cycle is logged and degrades the view rather than
// aborting: the data-changed signal always fires. A cycle whose reload was
// incomplete still publishes the partial view but never propagates from it.
func (e *Engine) Refresh() Summary {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	start := time.Now()

	// 1. Drop every cache tier.
	e.records.Clear()

	// 2. Reload the active record set.
	records, loadErr := e.loadAll()
	if loadErr != nil {
		e.logger.Printf("engine: reload incomplete, skipping propagation: %v", loadErr)
	}

	// 3. Rebuild the forest.
	roots := hierarchy.Build(records)

	// 4. Propagate statuses; this may rewrite backing files. Propagation
	// must only ever see the complete record set: deciding over a truncated
	// child list could mark a parent completed whose real children are
	// merely missing, and completed never downgrades.
	var prop propagate.Result
	if !e.readOnly && loadErr == nil {
		prop = e.prop.Run(roots)
	}

	// 5. Drop the record cache again: propagation may have rewritten files
	// that were read in step 2. With zero writes this is a no-op on correct
	// state; clearing unconditionally keeps the cycle uniform. The in-memory
	// forest already carries the propagated statuses, so the view itself
	// stays valid.
	e.records.Clear()

	// Fresh progress memo for the new generation, warmed in one pass.
	progress := hierarchy.NewCalculator()
	progress.WarmForest(roots)

	summary := Summary{
		Records:     len(records),
		Propagation: prop,
		Partial:     loadErr != nil,
		Duration:    time.Since(start),
	}

	e.viewMu.Lock()
	e.roots = roots
	e.progress = progress
	e.generation++
	e.last = summary
	e.viewMu.Unlock()

	// 6. Always notify, even after partial failure.
	e.notify()

	return summary
}

// loadAll walks the planning root and reads every record file through the
// cache. Files that fail to parse are logged by the cache and excluded. A
// directory that cannot be read does not abort the walk; the first such
// failure is returned so the caller knows the set is incomplete.
func (e *Engine) loadAll() ([]*record.Record, error) {
	var records []*record.Record
	var firstErr error

	walkErr := filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return nil
		}
		if d.IsDir() {
			if path != e.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != ".md" {
			return nil
		}
		if _, ok := record.KindForPath(path); !ok {
			return nil
		}
		if r, ok := e.records.Get(path); ok {
			records = append(records, r)
		}
		return nil
	})
	if firstErr == nil {
		firstErr = walkErr
	}

	return records, firstErr
}

// Roots returns the roots of the current forest.
func (e *Engine) Roots() []*hierarchy.Node {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.roots
}

// Children returns the ordered children of a node.
func (e *Engine) Children(n *hierarchy.Node) []*hierarchy.Node {
	if n == nil {
		return nil
	}
	return n.Children
}

// ProgressOf returns the subtree progress for a node, or nil when the node
// has no children.
func (e *Engine) ProgressOf(n *hierarchy.Node) *hierarchy.Progress {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.progress.Of(n)
}

// Generation returns the number of completed refresh cycles.
func (e *Engine) Generation() uint64 {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.generation
}

// LastSummary returns the outcome of the most recent refresh cycle.
func (e *Engine) LastSummary() Summary {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.last
}

// CacheStats returns the record cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.records.Stats()
}

// Subscribe returns a channel receiving one value per completed refresh
// cycle. The channel has capacity one; a slow consumer sees coalesced
// notifications, never a blocked engine.
func (e *Engine) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	e.subsMu.Lock()
	e.subs = append(e.subs, ch)
	e.subsMu.Unlock()
	return ch
}

func (e *Engine) notify() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
