package astar

import "fmt"

// Status is the outcome of a FindPath call.
type Status int

const (
	// SearchFail means the start or end reference was rejected by the graph.
	// No search was attempted.
	SearchFail Status = iota
	// SearchSuccess means the goal was reached and the path is complete.
	SearchSuccess
	// GoalUnreachable means the frontier was exhausted before reaching the
	// goal.
	GoalUnreachable
	// InfiniteLoop means a parent chain grew past FatalPathLength, either
	// while relaxing edges (a negative cycle) or during path reconstruction
	// (a malformed chain).
	InfiniteLoop
	// SearchLimitReached means the search stopped after MaxSearchNodes
	// expansions without reaching the goal.
	SearchLimitReached
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case SearchFail:
		return "search_fail"
	case SearchSuccess:
		return "search_success"
	case GoalUnreachable:
		return "goal_unreachable"
	case InfiniteLoop:
		return "infinite_loop"
	case SearchLimitReached:
		return "search_limit_reached"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for c := SearchFail; c <= SearchLimitReached; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown search status %q", text)
}

// Stats describes the last search run by an AStar instance.
type Stats struct {
	Status     Status
	Expanded   int
	PoolSize   int
	PathLength int
}

// AStar runs A* searches over one graph. It owns the node pool and the open
// list and reuses them across FindPath calls.
type AStar[N comparable] struct {
	graph  Graph[N]
	policy Policy
	pool   *nodePool[N]
	open   *openList[N]
	stats  Stats
}

// New creates a search object for graph. Zero-valued sizes in policy fall
// back to the defaults.
func New[N comparable](graph Graph[N], policy Policy) *AStar[N] {
	policy = policy.withDefaults()
	pool := newNodePool[N](policy.NodePoolSize)
	return &AStar[N]{
		graph:  graph,
		policy: policy,
		pool:   pool,
		open:   newOpenList(pool, policy.OpenSetSize),
	}
}

// Policy returns the effective configuration.
func (a *AStar[N]) Policy() Policy { return a.policy }

// Stats returns statistics about the most recent FindPath call.
func (a *AStar[N]) Stats() Stats { return a.stats }

// FindPath searches for the cheapest route from start to end under filter.
//
// path is a caller-owned buffer. When a route is produced it is truncated and
// refilled with the node references from start to end inclusive, and the
// (possibly reallocated) slice is returned. When no route is produced the
// buffer is returned untouched. A route is produced on SearchSuccess, and on
// GoalUnreachable or SearchLimitReached when filter.WantsPartialSolution();
// a partial route ends at the node with the smallest heuristic distance to
// end seen during the search. That node can be end itself: when the limit
// stops the search after end was discovered but before it was expanded, the
// status stays SearchLimitReached and the route is not guaranteed to be the
// cheapest one.
//
// Each search node records the length of the parent chain that reached it.
// A relaxation that would push it past FatalPathLength ends the search with
// InfiniteLoop, which bounds searches over negative cycles.
func (a *AStar[N]) FindPath(start, end N, filter QueryFilter[N], path []N) ([]N, Status) {
	a.stats = Stats{}
	if !a.graph.IsValidRef(start) || !a.graph.IsValidRef(end) {
		return a.finish(path, SearchFail)
	}
	if start == end {
		path = append(path[:0], start)
		a.stats.PathLength = 1
		return a.finish(path, SearchSuccess)
	}

	if a.policy.ReuseNodePoolInSubsequentSearches {
		a.pool.ReinitNodes()
	} else {
		a.pool.Reset()
	}
	a.open.Reset()

	scale := filter.HeuristicScale()
	startHeuristic := filter.HeuristicCost(start, end) * scale
	startNode := a.pool.Add(SearchNode[N]{
		NodeRef:         start,
		TraversalCost:   0,
		TotalCost:       startHeuristic,
		ParentNodeIndex: -1,
	})
	a.open.Push(startNode)

	bestIndex := startNode.SearchNodeIndex
	bestHeuristic := startHeuristic
	reachedGoal := false
	limitReached := false

	for a.open.Num() > 0 {
		if a.policy.MaxSearchNodes > 0 && a.stats.Expanded >= a.policy.MaxSearchNodes {
			limitReached = true
			break
		}

		current := a.open.Pop()
		current.IsClosed = true
		a.stats.Expanded++

		if current.NodeRef == end {
			bestIndex = current.SearchNodeIndex
			bestHeuristic = 0
			reachedGoal = true
			break
		}

		// Copy what the neighbour loop needs: growing the pool invalidates
		// current.
		currentRef := current.NodeRef
		currentIndex := current.SearchNodeIndex
		currentCost := current.TraversalCost
		currentDepth := current.depth
		hasParent := current.ParentNodeIndex >= 0
		parentRef := current.ParentRef

		count := a.graph.NeighbourCount(currentRef)
		for i := 0; i < count; i++ {
			neighbourRef := a.graph.Neighbour(currentRef, i)
			if !a.graph.IsValidRef(neighbourRef) {
				continue
			}
			if hasParent && neighbourRef == parentRef {
				continue
			}
			if !filter.IsTraversalAllowed(currentRef, neighbourRef) {
				continue
			}

			neighbour := a.pool.Get(neighbourRef)
			if neighbour.IsClosed && a.policy.IgnoreClosedNodes {
				continue
			}

			newTraversalCost := currentCost + filter.TraversalCost(currentRef, neighbourRef)
			newHeuristic := 0.0
			if neighbourRef != end {
				newHeuristic = filter.HeuristicCost(neighbourRef, end) * scale
			}
			newTotalCost := newTraversalCost + newHeuristic
			if newTotalCost >= neighbour.TotalCost {
				continue
			}
			if int(currentDepth)+1 >= a.policy.FatalPathLength {
				return a.finish(path, InfiniteLoop)
			}

			neighbour.TraversalCost = newTraversalCost
			neighbour.TotalCost = newTotalCost
			neighbour.ParentRef = currentRef
			neighbour.ParentNodeIndex = currentIndex
			neighbour.depth = currentDepth + 1
			neighbour.IsClosed = false

			if neighbour.IsOpened {
				a.open.Modify(neighbour)
			} else {
				a.open.Push(neighbour)
			}

			if newHeuristic < bestHeuristic {
				bestHeuristic = newHeuristic
				bestIndex = neighbour.SearchNodeIndex
			}
		}
	}

	status := GoalUnreachable
	switch {
	case reachedGoal:
		status = SearchSuccess
	case limitReached:
		status = SearchLimitReached
	}

	if status != SearchSuccess && !filter.WantsPartialSolution() {
		return a.finish(path, status)
	}

	length := 0
	for idx := bestIndex; idx >= 0; idx = a.pool.At(idx).ParentNodeIndex {
		length++
		if length > a.policy.FatalPathLength {
			return a.finish(path, InfiniteLoop)
		}
	}

	if cap(path) < length {
		path = make([]N, length)
	} else {
		path = path[:length]
	}
	idx := bestIndex
	for k := length - 1; k >= 0; k-- {
		node := a.pool.At(idx)
		path[k] = node.NodeRef
		idx = node.ParentNodeIndex
	}
	a.stats.PathLength = length

	return a.finish(path, status)
}

func (a *AStar[N]) finish(path []N, status Status) ([]N, Status) {
	a.stats.Status = status
	a.stats.PoolSize = a.pool.Num()
	return path, status
}
