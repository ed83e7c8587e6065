package navgraph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// HeuristicKind selects the distance estimate used by a filter.
type HeuristicKind string

const (
	// HeuristicEuclidean is the straight-line distance.
	HeuristicEuclidean HeuristicKind = "euclidean"
	// HeuristicManhattan is the L1 distance.
	HeuristicManhattan HeuristicKind = "manhattan"
	// HeuristicOctile is the 8-connected grid distance.
	HeuristicOctile HeuristicKind = "octile"
	// HeuristicZero turns the search into Dijkstra's algorithm.
	HeuristicZero HeuristicKind = "zero"
)

// ParseHeuristic validates a heuristic name. An empty name selects def.
func ParseHeuristic(name string, def HeuristicKind) (HeuristicKind, error) {
	switch k := HeuristicKind(name); k {
	case "":
		return def, nil
	case HeuristicEuclidean, HeuristicManhattan, HeuristicOctile, HeuristicZero:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHeuristic, name)
	}
}

// Filter is the query filter for waypoint graphs. It implements
// astar.QueryFilter[uint32].
//
// Euclidean estimates are admissible as long as edge costs are not shorter
// than the straight line between their endpoints (the default link cost) and
// AreaCosts multipliers are >= 1. Manhattan estimates can overestimate on
// waypoint graphs and trade optimality for speed.
type Filter struct {
	Graph     *Graph
	Heuristic HeuristicKind
	// Scale multiplies heuristic estimates. Zero means 1.
	Scale float64
	// ExcludedAreas is a bitmask: bit n set forbids entering area n.
	ExcludedAreas uint64
	// AreaCosts multiplies the cost of edges entering a given area.
	AreaCosts map[uint8]float64
	// MaxEdgeCost forbids edges costlier than this. Zero means no limit.
	MaxEdgeCost float64
	// Partial requests a best-effort path when the goal is unreachable.
	Partial bool
}

// HeuristicScale implements astar.QueryFilter.
func (f *Filter) HeuristicScale() float64 {
	if f.Scale <= 0 {
		return 1
	}
	return f.Scale
}

// HeuristicCost implements astar.QueryFilter.
func (f *Filter) HeuristicCost(from, to uint32) float64 {
	if f.Graph.dim == 0 {
		return 0
	}
	a, b := f.Graph.nodes[from].Pos, f.Graph.nodes[to].Pos
	switch f.Heuristic {
	case HeuristicZero:
		return 0
	case HeuristicManhattan:
		return floats.Distance(a, b, 1)
	default:
		return floats.Distance(a, b, 2)
	}
}

// TraversalCost implements astar.QueryFilter.
func (f *Filter) TraversalCost(from, to uint32) float64 {
	cost, ok := f.Graph.EdgeCost(from, to)
	if !ok {
		return math.Inf(1)
	}
	if m, ok := f.AreaCosts[f.Graph.nodes[to].Area]; ok {
		return float64(cost) * m
	}
	return float64(cost)
}

// IsTraversalAllowed implements astar.QueryFilter.
func (f *Filter) IsTraversalAllowed(from, to uint32) bool {
	if f.ExcludedAreas&(1<<f.Graph.nodes[to].Area) != 0 {
		return false
	}
	if f.MaxEdgeCost > 0 {
		cost, ok := f.Graph.EdgeCost(from, to)
		if !ok || float64(cost) > f.MaxEdgeCost {
			return false
		}
	}
	return true
}

// WantsPartialSolution implements astar.QueryFilter.
func (f *Filter) WantsPartialSolution() bool { return f.Partial }

// GridFilter is the query filter for grids. Step cost is the step length
// (1 or sqrt 2) times the terrain multiplier of the destination cell.
type GridFilter struct {
	Grid      *Grid
	Heuristic HeuristicKind
	Scale     float64
	Partial   bool
}

// HeuristicScale implements astar.QueryFilter.
func (f *GridFilter) HeuristicScale() float64 {
	if f.Scale <= 0 {
		return 1
	}
	return f.Scale
}

// HeuristicCost implements astar.QueryFilter.
func (f *GridFilter) HeuristicCost(from, to uint32) float64 {
	fx, fy := f.Grid.Coords(from)
	tx, ty := f.Grid.Coords(to)
	dx := math.Abs(float64(fx - tx))
	dy := math.Abs(float64(fy - ty))

	switch f.Heuristic {
	case HeuristicZero:
		return 0
	case HeuristicManhattan:
		return dx + dy
	case HeuristicEuclidean:
		return math.Hypot(dx, dy)
	default:
		return dx + dy + (math.Sqrt2-2)*math.Min(dx, dy)
	}
}

// TraversalCost implements astar.QueryFilter.
func (f *GridFilter) TraversalCost(from, to uint32) float64 {
	fx, fy := f.Grid.Coords(from)
	tx, ty := f.Grid.Coords(to)
	step := 1.0
	if fx != tx && fy != ty {
		step = math.Sqrt2
	}
	return step * f.Grid.CellCost(to)
}

// IsTraversalAllowed implements astar.QueryFilter. Blocked cells never
// reach the filter, so every step is allowed.
func (f *GridFilter) IsTraversalAllowed(from, to uint32) bool { return true }

// WantsPartialSolution implements astar.QueryFilter.
func (f *GridFilter) WantsPartialSolution() bool { return f.Partial }
