package astar

import "container/heap"

// indexHeap is a min-heap of pool indices ordered by TotalCost. It never
// copies search nodes, only the int32 index, and keeps each node's heap
// position up to date so cost decreases can be fixed in place.
type indexHeap[N comparable] struct {
	pool  *nodePool[N]
	items []int32
}

// Len returns the size of the heap.
func (h *indexHeap[N]) Len() int { return len(h.items) }

// Less orders by total estimated cost.
func (h *indexHeap[N]) Less(i, j int) bool {
	return h.pool.nodes[h.items[i]].TotalCost < h.pool.nodes[h.items[j]].TotalCost
}

// Swap swaps two entries and records their new positions on the nodes.
func (h *indexHeap[N]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.pool.nodes[h.items[i]].heapIndex = i
	h.pool.nodes[h.items[j]].heapIndex = j
}

// Push appends a pool index. Use heap.Push, not this method directly.
func (h *indexHeap[N]) Push(x any) {
	idx := x.(int32)
	h.pool.nodes[idx].heapIndex = len(h.items)
	h.items = append(h.items, idx)
}

// Pop removes the last entry. Use heap.Pop, not this method directly.
func (h *indexHeap[N]) Pop() any {
	old := h.items
	n := len(old)
	idx := old[n-1]
	h.items = old[:n-1]
	h.pool.nodes[idx].heapIndex = -1
	return idx
}

// openList is the search frontier: an ordering view over the node pool.
type openList[N comparable] struct {
	h indexHeap[N]
}

func newOpenList[N comparable](pool *nodePool[N], capacity int) *openList[N] {
	return &openList[N]{h: indexHeap[N]{pool: pool, items: make([]int32, 0, capacity)}}
}

// Push inserts node into the frontier and marks it opened. The node's costs
// must already be up to date.
func (o *openList[N]) Push(node *SearchNode[N]) {
	node.IsOpened = true
	heap.Push(&o.h, node.SearchNodeIndex)
}

// Modify restores heap order after an opened node's TotalCost changed.
func (o *openList[N]) Modify(node *SearchNode[N]) {
	heap.Fix(&o.h, node.heapIndex)
}

// Pop removes and returns the cheapest node, marking it not opened.
// It panics if the list is empty; check Num first.
func (o *openList[N]) Pop() *SearchNode[N] {
	idx := heap.Pop(&o.h).(int32)
	node := o.h.pool.At(idx)
	node.IsOpened = false
	return node
}

// Num returns the number of frontier nodes.
func (o *openList[N]) Num() int { return o.h.Len() }

// Reset empties the frontier, keeping its capacity.
func (o *openList[N]) Reset() { o.h.items = o.h.items[:0] }
