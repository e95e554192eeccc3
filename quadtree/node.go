package quadtree

import "slices"

// tree holds the settings shared by every node of an index.
type tree[T comparable] struct {
	boundsOf func(T) Rect
	capacity int
	maxDepth int
	nodes    int
}

// Node is one quadrant of an index. A node stores the items it fully
// contains that no single child fully contains. Once subdivided, a node never
// collapses back into a leaf.
type Node[T comparable] struct {
	bounds   Rect
	depth    int
	items    []T
	children *[4]Node[T] // NW, NE, SW, SE
	tree     *tree[T]
}

func newNode[T comparable](t *tree[T], bounds Rect, depth int) Node[T] {
	return Node[T]{
		bounds: bounds,
		depth:  depth,
		tree:   t,
	}
}

// Bounds returns the region covered by the node.
func (n *Node[T]) Bounds() Rect {
	return n.bounds
}

// Depth returns the distance from the root. The root is at depth 0.
func (n *Node[T]) Depth() int {
	return n.depth
}

// Len returns the number of items stored directly at the node.
func (n *Node[T]) Len() int {
	return len(n.items)
}

// Items returns the items stored directly at the node. The returned slice
// must not be modified.
func (n *Node[T]) Items() []T {
	return n.items
}

func (n *Node[T]) IsLeaf() bool {
	return n.children == nil
}

// Children returns the NW, NE, SW and SE children, or nil for a leaf.
func (n *Node[T]) Children() []*Node[T] {
	if n.children == nil {
		return nil
	}
	return []*Node[T]{&n.children[0], &n.children[1], &n.children[2], &n.children[3]}
}

// Insert places item into the node or one of its descendants. The caller
// must have checked that the node's bounds contain the item's bounds.
func (n *Node[T]) Insert(item T) {
	n.insert(item, n.tree.boundsOf(item))
}

func (n *Node[T]) insert(item T, b Rect) {
	if n.children != nil {
		if c := n.childContaining(b); c != nil {
			c.insert(item, b)
			return
		}
		n.items = append(n.items, item)
		return
	}

	n.items = append(n.items, item)
	if len(n.items) > n.tree.capacity && n.depth < n.tree.maxDepth {
		n.subdivide()
	}
}

func (n *Node[T]) subdivide() {
	quadrants := n.bounds.Quadrants()
	n.children = &[4]Node[T]{}
	for i, q := range quadrants {
		n.children[i] = newNode(n.tree, q, n.depth+1)
	}
	n.tree.nodes += len(quadrants)

	kept := n.items[:0]
	for _, item := range n.items {
		b := n.tree.boundsOf(item)
		if c := n.childContaining(b); c != nil {
			c.insert(item, b)
			continue
		}
		kept = append(kept, item)
	}
	clear(n.items[len(kept):])
	n.items = kept
}

// childContaining returns the first child whose bounds contain b, or nil when
// b straddles a quadrant boundary.
func (n *Node[T]) childContaining(b Rect) *Node[T] {
	if n.children == nil {
		return nil
	}
	for i := range n.children {
		if n.children[i].bounds.Contains(b) {
			return &n.children[i]
		}
	}
	return nil
}

// Remove deletes item from the node or from the descendant on the path of
// the item's current bounds. It reports whether the item was found.
func (n *Node[T]) Remove(item T) bool {
	return n.remove(item, n.tree.boundsOf(item))
}

func (n *Node[T]) remove(item T, b Rect) bool {
	if n.removeDirect(item) {
		return true
	}
	if c := n.childContaining(b); c != nil {
		return c.remove(item, b)
	}
	return false
}

// removeAnywhere deletes item wherever it is stored in the subtree. It is
// used when the item's bounds changed since it was placed.
func (n *Node[T]) removeAnywhere(item T) bool {
	if n.removeDirect(item) {
		return true
	}
	if n.children == nil {
		return false
	}
	for i := range n.children {
		if n.children[i].removeAnywhere(item) {
			return true
		}
	}
	return false
}

func (n *Node[T]) removeDirect(item T) bool {
	i := slices.Index(n.items, item)
	if i < 0 {
		return false
	}
	n.items = slices.Delete(n.items, i, i+1)
	return true
}

// Query appends to results every item stored in the subtree whose bounds
// intersect area. Subtrees whose bounds do not touch area are skipped.
func (n *Node[T]) Query(area Rect, results *[]T) {
	if !n.bounds.Touches(area) {
		return
	}
	n.query(area, results)
}

func (n *Node[T]) query(area Rect, results *[]T) {
	for _, item := range n.items {
		if n.tree.boundsOf(item).Intersects(area) {
			*results = append(*results, item)
		}
	}

	if n.children == nil {
		return
	}
	for i := range n.children {
		if c := &n.children[i]; c.bounds.Touches(area) {
			c.query(area, results)
		}
	}
}

// Traverse walks the subtree in pre-order, calling visit on the node and
// then on each child.
func (n *Node[T]) Traverse(visit func(*Node[T])) {
	visit(n)
	if n.children == nil {
		return
	}
	for i := range n.children {
		n.children[i].Traverse(visit)
	}
}

func (n *Node[T]) collect(items []T) []T {
	items = append(items, n.items...)
	if n.children != nil {
		for i := range n.children {
			items = n.children[i].collect(items)
		}
	}
	return items
}
