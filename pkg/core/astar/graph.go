package astar

// Graph is the capability set the search needs from a navigation graph.
// N is an opaque node reference; it must be comparable so it can key the
// node pool's index.
type Graph[N comparable] interface {
	// NeighbourCount returns the number of nodes adjacent to node.
	NeighbourCount(node N) int
	// Neighbour returns the i-th adjacent node of node.
	Neighbour(node N, i int) N
	// IsValidRef reports whether node denotes a real node of the graph.
	IsValidRef(node N) bool
}

// QueryFilter supplies the costs and traversal rules of one query.
//
// HeuristicCost must never overestimate the real remaining cost if the caller
// wants optimal paths. A non-admissible heuristic still terminates, it just
// returns a possibly suboptimal route.
type QueryFilter[N comparable] interface {
	// HeuristicScale is the multiplier applied to every heuristic estimate.
	// It must be >= 0.
	HeuristicScale() float64
	// HeuristicCost estimates the cost of reaching to from from.
	HeuristicCost(from, to N) float64
	// TraversalCost is the real cost of the direct edge from -> to.
	TraversalCost(from, to N) float64
	// IsTraversalAllowed reports whether the edge from -> to may be used.
	IsTraversalAllowed(from, to N) bool
	// WantsPartialSolution reports whether a best-effort path should be
	// returned when the goal cannot be reached.
	WantsPartialSolution() bool
}
