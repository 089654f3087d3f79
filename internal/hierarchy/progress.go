package hierarchy

import (
	"sync"

	"github.com/ClaytonHunt/cascade/internal/record"
)

// Progress is a completed/total count over the leaf-kind (story/bug)
// descendants of a node.
type Progress struct {
	Completed uint32
	Total     uint32
}

// Calculator memoizes per-node progress for one cache generation. It is
// pull-based: a subtree is computed on first access, so callers asking about
// a single node never pay for the whole forest. The memo must be discarded
// (a fresh Calculator) whenever the forest is rebuilt.
type Calculator struct {
	mu   sync.Mutex
	memo map[*Node]Progress
}

// NewCalculator creates an empty calculator for a freshly built forest.
func NewCalculator() *Calculator {
	return &Calculator{memo: make(map[*Node]Progress)}
}

// Of returns the subtree progress for n, or nil when n has no children (no
// progress is shown for leaves and childless parents).
func (c *Calculator) Of(n *Node) *Progress {
	if n == nil || len(n.Children) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.compute(n)
	return &p
}

// WarmForest eagerly computes every parent in one pass. Used when the
// consumer renders the whole forest, avoiding repeated subtree walks.
func (c *Calculator) WarmForest(roots []*Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, root := range roots {
		root.Walk(func(n *Node) {
			if len(n.Children) > 0 {
				c.compute(n)
			}
		})
	}
}

// compute memoizes the walk. Callers hold c.mu.
func (c *Calculator) compute(n *Node) Progress {
	if p, ok := c.memo[n]; ok {
		return p
	}

	var p Progress
	for _, child := range n.Children {
		if child.Record.Kind.Leaf() {
			p.Total++
			if child.Record.Status == record.StatusCompleted {
				p.Completed++
			}
			continue
		}
		cp := c.compute(child)
		p.Completed += cp.Completed
		p.Total += cp.Total
	}

	c.memo[n] = p
	return p
}
