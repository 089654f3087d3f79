// Package hierarchy reconstructs the planning forest from the flat record
// set and aggregates per-subtree progress.
package hierarchy

import "github.com/ClaytonHunt/cascade/internal/record"

// Node wraps a record with ownership of its children. Children are owned by
// their parent; the parent pointer is a weak back-reference used only for
// traversal.
type Node struct {
	Record   *record.Record
	Children []*Node

	parent *Node
}

// Parent returns the owning node, or nil for roots.
func (n *Node) Parent() *Node {
	return n.parent
}

// Walk visits n and every descendant in depth-first, children-in-order
// fashion.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
