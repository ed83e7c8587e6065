// Package astar provides a generic, reusable A* graph search.
//
// The search is polymorphic over two collaborators supplied by the caller:
// a Graph, which enumerates neighbours and validates node references, and a
// QueryFilter, which supplies heuristic and traversal costs and decides which
// edges may be used. The package never mutates either of them.
//
// Search bookkeeping lives in a node pool: a dense arena of SearchNode values
// addressed by int32 index, with parent links stored as indices rather than
// pointers. The frontier is an index-based binary heap ordered by total
// estimated cost. Both are owned by an AStar instance and are reset (or
// reinitialized in place, see Policy) at the start of every FindPath call.
//
// Basic usage:
//
//	search := astar.New[uint32](graph, astar.DefaultPolicy())
//	path, status := search.FindPath(start, goal, filter, nil)
//	if status != astar.SearchSuccess {
//	    // handle GoalUnreachable, SearchFail, ...
//	}
//
// An AStar value is not safe for concurrent use. Give each goroutine its own
// instance; the Graph and QueryFilter may be shared as long as nobody mutates
// them while searches are running.
package astar
