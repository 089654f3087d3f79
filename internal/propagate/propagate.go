// Package propagate derives parent statuses from child statuses and persists
// the derived values back into the planning files.
//
// The pass runs bottom-up over a built forest: children are resolved before
// their parent is evaluated, and a rewritten parent's new status is visible
// to its own ancestors within the same pass. Writes are atomic per file
// (write-to-temp-then-rename); a file that cannot be rewritten is logged and
// skipped, never aborting the pass.
package propagate

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/natefinch/atomic"

	"github.com/ClaytonHunt/cascade/internal/frontmatter"
	"github.com/ClaytonHunt/cascade/internal/hierarchy"
	"github.com/ClaytonHunt/cascade/internal/record"
)

// Decide returns the status a parent should move to given its children, and
// whether any change is required.
//
// The rules, in order:
//  1. Every child completed → completed (no-op if the parent already is).
//  2. Any child in progress, parent not yet started or still planning →
//     in progress.
//  3. Some but not all children completed, parent not yet started or still
//     planning → in progress.
//  4. A completed parent is never downgraded, whatever its children do.
//  5. Anything else → no change.
func Decide(parent record.Status, children []record.Status) (record.Status, bool) {
	if len(children) == 0 {
		return "", false
	}
	if parent == record.StatusCompleted {
		// Governing safety rule: no regression of a completed parent.
		return "", false
	}

	allCompleted := true
	anyCompleted := false
	anyInProgress := false
	for _, s := range children {
		if s == record.StatusCompleted {
			anyCompleted = true
		} else {
			allCompleted = false
		}
		if s == record.StatusInProgress {
			anyInProgress = true
		}
	}

	if allCompleted {
		return record.StatusCompleted, true
	}
	if parent == record.StatusNotStarted || parent == record.StatusInPlanning {
		if anyInProgress || anyCompleted {
			return record.StatusInProgress, true
		}
	}

	return "", false
}

// Config holds propagation engine configuration.
type Config struct {
	// Logger for write failures and skips.
	Logger *log.Logger

	// Now supplies the timestamp stamped into the updated field.
	Now func() time.Time
}

// Engine persists propagated statuses into the backing files.
type Engine struct {
	logger *log.Logger
	now    func() time.Time
}

// New creates a propagation engine. Nil config fields get defaults.
func New(cfg *Config) *Engine {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{logger: logger, now: now}
}

// Result reports what one propagation pass did.
type Result struct {
	// Writes is the number of files rewritten.
	Writes int

	// Touched holds the normalized paths of rewritten files, so the caller
	// can invalidate their cache entries.
	Touched []string

	// Skipped counts parents left unchanged after a failed rewrite.
	Skipped int
}

// Run walks the forest bottom-up and rewrites each parent whose status must
// change. Leaf-kind nodes and childless nodes are never propagated into.
// Running the pass twice with no intervening file changes produces zero
// writes on the second run.
func (e *Engine) Run(roots []*hierarchy.Node) Result {
	var res Result
	for _, root := range roots {
		e.visit(root, &res)
	}
	return res
}

func (e *Engine) visit(n *hierarchy.Node, res *Result) {
	for _, child := range n.Children {
		e.visit(child, res)
	}

	if n.Record.Kind.Leaf() || len(n.Children) == 0 {
		return
	}

	statuses := make([]record.Status, len(n.Children))
	for i, child := range n.Children {
		statuses[i] = child.Record.Status
	}

	next, changed := Decide(n.Record.Status, statuses)
	if !changed {
		return
	}

	if err := e.rewrite(n.Record, next); err != nil {
		e.logger.Printf("propagate: skipping %s: %v", n.Record.ID, err)
		res.Skipped++
		return
	}

	// Keep the in-memory snapshot consistent so ancestors in this same
	// pass see the resolved status.
	n.Record.Status = next
	res.Writes++
	res.Touched = append(res.Touched, n.Record.Key())
}

// rewrite substitutes the status and updated lines in the backing file and
// writes it back atomically. Both substitutions must find their exact-match
// target before anything is written.
func (e *Engine) rewrite(r *record.Record, next record.Status) error {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	out, err := frontmatter.Rewrite(data, "status", string(r.Status), string(next))
	if err != nil {
		return fmt.Errorf("status %s -> %s: %w", r.Status, next, err)
	}

	oldUpdated, ok := frontmatter.Field(out, "updated")
	if !ok {
		return fmt.Errorf("updated: %w", frontmatter.ErrNoMatch)
	}
	out, err = frontmatter.Rewrite(out, "updated", oldUpdated, e.now().Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("updated: %w", err)
	}

	if err := atomic.WriteFile(r.Path, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
