package astar

import "math"

// SearchNode is the per-search bookkeeping for one graph node.
type SearchNode[N comparable] struct {
	// NodeRef is the graph node this entry tracks.
	NodeRef N
	// ParentRef is the best known predecessor. Only meaningful when
	// ParentNodeIndex >= 0.
	ParentRef N
	// TraversalCost is the best known real cost from the start node.
	TraversalCost float64
	// TotalCost is TraversalCost plus the scaled heuristic estimate.
	TotalCost float64
	// SearchNodeIndex is this node's position in the pool.
	SearchNodeIndex int32
	// ParentNodeIndex is the pool index of the parent, -1 for none.
	ParentNodeIndex int32
	// IsOpened is set while the node sits in the open list.
	IsOpened bool
	// IsClosed is set once the node has been expanded.
	IsClosed bool

	heapIndex int
	// depth counts edges from the start along the parent chain.
	depth int32
}

func (n *SearchNode[N]) reinit() {
	n.TraversalCost = math.Inf(1)
	n.TotalCost = math.Inf(1)
	n.ParentNodeIndex = -1
	n.IsOpened = false
	n.IsClosed = false
	n.heapIndex = -1
	n.depth = 0
}

// nodePool is an arena of search nodes keyed by graph node reference.
//
// Pointers returned by Get and Add point into the arena's backing slice and
// are only valid until the next call that may grow it.
type nodePool[N comparable] struct {
	nodes []SearchNode[N]
	index map[N]int32
}

func newNodePool[N comparable](capacity int) *nodePool[N] {
	return &nodePool[N]{
		nodes: make([]SearchNode[N], 0, capacity),
		index: make(map[N]int32, capacity),
	}
}

// Get returns the search node for ref, creating it with sentinel costs on
// first touch.
func (p *nodePool[N]) Get(ref N) *SearchNode[N] {
	if i, ok := p.index[ref]; ok {
		return &p.nodes[i]
	}
	idx := int32(len(p.nodes))
	p.nodes = append(p.nodes, SearchNode[N]{NodeRef: ref, SearchNodeIndex: idx})
	p.nodes[idx].reinit()
	p.index[ref] = idx
	return &p.nodes[idx]
}

// Add stores a fully specified node and fills in its SearchNodeIndex. If the
// pool already tracks node.NodeRef (reused pool) the entry is overwritten in
// place.
func (p *nodePool[N]) Add(node SearchNode[N]) *SearchNode[N] {
	idx, ok := p.index[node.NodeRef]
	if !ok {
		idx = int32(len(p.nodes))
		p.nodes = append(p.nodes, SearchNode[N]{})
		p.index[node.NodeRef] = idx
	}
	node.SearchNodeIndex = idx
	node.heapIndex = -1
	p.nodes[idx] = node
	return &p.nodes[idx]
}

// At returns the node stored at idx.
func (p *nodePool[N]) At(idx int32) *SearchNode[N] {
	return &p.nodes[idx]
}

// Num returns the number of tracked nodes.
func (p *nodePool[N]) Num() int {
	return len(p.nodes)
}

// Reset drops every node and mapping but keeps the allocated capacity.
func (p *nodePool[N]) Reset() {
	p.nodes = p.nodes[:0]
	clear(p.index)
}

// ReinitNodes resets cost and flag fields in place, keeping the node
// reference mapping so repeated searches over a stable node set do not
// reallocate.
func (p *nodePool[N]) ReinitNodes() {
	for i := range p.nodes {
		p.nodes[i].reinit()
	}
}
