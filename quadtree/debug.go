package quadtree

// DebugInfo summarizes the shape of an index.
type DebugInfo struct {
	Name          string `json:"name"`
	Bounds        Rect   `json:"bounds"`
	Capacity      int    `json:"capacity"`
	MaxDepth      int    `json:"max_depth"`
	ItemCount     int    `json:"item_count"`
	NodeCount     int    `json:"node_count"`
	LeafCount     int    `json:"leaf_count"`
	DepthReached  int    `json:"depth_reached"`
	NodesPerDepth []int  `json:"nodes_per_depth"`
	ItemsPerDepth []int  `json:"items_per_depth"`

	// Items held by subdivided nodes because they straddle a quadrant
	// boundary.
	StraddlerCount int `json:"straddler_count"`
}

// NodeInfo describes one node for debug overlays.
type NodeInfo struct {
	Bounds Rect `json:"bounds"`
	Depth  int  `json:"depth"`
	Items  int  `json:"items"`
	Leaf   bool `json:"leaf"`
}

// DebugInfo walks the index and returns its statistics.
func (i *Index[T]) DebugInfo() DebugInfo {
	conf := i.Config()

	info := DebugInfo{
		Name:     i.name,
		Bounds:   i.root.bounds,
		Capacity: conf.Capacity,
		MaxDepth: conf.MaxDepth,
	}

	i.Traverse(func(n *Node[T]) {
		for len(info.NodesPerDepth) <= n.depth {
			info.NodesPerDepth = append(info.NodesPerDepth, 0)
			info.ItemsPerDepth = append(info.ItemsPerDepth, 0)
		}

		info.NodeCount++
		info.ItemCount += n.Len()
		info.NodesPerDepth[n.depth]++
		info.ItemsPerDepth[n.depth] += n.Len()
		info.DepthReached = max(info.DepthReached, n.depth)

		if n.IsLeaf() {
			info.LeafCount++
		} else {
			info.StraddlerCount += n.Len()
		}
	})

	return info
}

// Nodes returns a description of every node, in pre-order.
func (i *Index[T]) Nodes() []NodeInfo {
	i.mustBeInitialized()

	nodes := make([]NodeInfo, 0, i.tree.nodes)
	i.root.Traverse(func(n *Node[T]) {
		nodes = append(nodes, NodeInfo{
			Bounds: n.bounds,
			Depth:  n.depth,
			Items:  n.Len(),
			Leaf:   n.IsLeaf(),
		})
	})
	return nodes
}
