package hierarchy

import (
	"sort"

	"github.com/ClaytonHunt/cascade/internal/record"
)

// Build constructs the forest for the current active record set.
//
// Attachment works in two passes. First, every non-project record is attached
// to the record whose ID its file path derives (the closest ancestor
// directory named for the parent kind). Second, epics carrying an explicit
// project cross-reference are re-attached to that project; the cross-reference
// wins over the path-derived parent when both resolve. A record whose parent
// cannot be resolved becomes an orphan root of its own kind; the builder
// never drops a valid record.
//
// Children of every node, and the root set itself, are sorted by numeric ID
// ascending; orphans interleave with structured items under the same key.
func Build(records []*record.Record) []*Node {
	nodes := make([]*Node, len(records))
	byID := make(map[string]*Node, len(records))
	for i, r := range records {
		n := &Node{Record: r}
		nodes[i] = n
		if _, dup := byID[r.ID]; !dup {
			byID[r.ID] = n
		}
	}

	// Pass 1: path-derived attachment.
	for _, n := range nodes {
		kind := n.Record.Kind
		if kind == record.KindProject {
			continue
		}
		pid, ok := record.DeriveParent(n.Record.Path, kind)
		if !ok {
			continue
		}
		attach(byID, n, pid, kind.ParentKind())
	}

	// Pass 2: explicit epic→project cross-references, resolved after path
	// attachment so feature and story placement is unaffected.
	for _, n := range nodes {
		ref := n.Record.ProjectRef
		if ref == "" || n.Record.Kind != record.KindEpic {
			continue
		}
		target, ok := byID[ref]
		if !ok || target.Record.Kind != record.KindProject || target == n.parent {
			continue
		}
		detach(n)
		target.Children = append(target.Children, n)
		n.parent = target
	}

	var roots []*Node
	for _, n := range nodes {
		if n.parent == nil {
			roots = append(roots, n)
		}
	}

	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}

	return roots
}

// attach links n under the node with ID pid when that node exists and has
// the expected kind. A miss leaves n parentless (an orphan).
func attach(byID map[string]*Node, n *Node, pid string, wantKind record.Kind) {
	parent, ok := byID[pid]
	if !ok || parent.Record.Kind != wantKind || parent == n {
		return
	}
	parent.Children = append(parent.Children, n)
	n.parent = parent
}

// detach removes n from its current parent's child list.
func detach(n *Node) {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// sortNodes orders nodes by numeric ID ascending, falling back to the ID
// string so the order is total and stable.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		_, a, _ := record.ParseID(nodes[i].Record.ID)
		_, b, _ := record.ParseID(nodes[j].Record.ID)
		if a != b {
			return a < b
		}
		return nodes[i].Record.ID < nodes[j].Record.ID
	})
}
