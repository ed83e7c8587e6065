package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sanonone/kektornav/pkg/core/astar"
	"github.com/sanonone/kektornav/pkg/core/navgraph"
	"github.com/sanonone/kektornav/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("kektornav.engine")

// PathQuery describes a search on a waypoint graph.
type PathQuery struct {
	Start string `json:"start"`
	End   string `json:"end"`
	// Heuristic is "euclidean" (default), "manhattan" or "zero".
	Heuristic      string  `json:"heuristic,omitempty"`
	HeuristicScale float64 `json:"heuristic_scale,omitempty"`
	// ExcludedAreas lists area tags the path must not enter.
	ExcludedAreas []uint8 `json:"excluded_areas,omitempty"`
	// AreaCosts multiplies the cost of edges entering an area.
	AreaCosts   map[uint8]float64 `json:"area_costs,omitempty"`
	MaxEdgeCost float64           `json:"max_edge_cost,omitempty"`
	// Partial asks for the best partial path when the goal is unreachable.
	Partial bool `json:"partial,omitempty"`
}

// PathResult is the outcome of a graph search. Path holds node IDs from
// start to end (or to the closest reachable node for partial results) and
// is empty when no path was produced.
type PathResult struct {
	Status   astar.Status `json:"status"`
	Path     []string     `json:"path"`
	Cost     float64      `json:"cost"`
	Expanded int          `json:"expanded"`
}

// Cell addresses a grid cell as [x, y].
type Cell [2]int

// GridQuery describes a search on a grid.
type GridQuery struct {
	Start Cell `json:"start"`
	End   Cell `json:"end"`
	// Heuristic is "octile" (default), "manhattan", "euclidean" or "zero".
	Heuristic      string  `json:"heuristic,omitempty"`
	HeuristicScale float64 `json:"heuristic_scale,omitempty"`
	Partial        bool    `json:"partial,omitempty"`
}

// GridPathResult is the outcome of a grid search.
type GridPathResult struct {
	Status   astar.Status `json:"status"`
	Path     []Cell       `json:"path"`
	Cost     float64      `json:"cost"`
	Expanded int          `json:"expanded"`
}

func (q PathQuery) filter(g *navgraph.Graph) (*navgraph.Filter, error) {
	kind, err := navgraph.ParseHeuristic(q.Heuristic, navgraph.HeuristicEuclidean)
	if err != nil {
		return nil, err
	}
	if q.HeuristicScale < 0 {
		return nil, fmt.Errorf("%w: heuristic_scale must be >= 0, got %v", ErrInvalidArgument, q.HeuristicScale)
	}
	f := &navgraph.Filter{
		Graph:       g,
		Heuristic:   kind,
		Scale:       q.HeuristicScale,
		AreaCosts:   q.AreaCosts,
		MaxEdgeCost: q.MaxEdgeCost,
		Partial:     q.Partial,
	}
	for _, area := range q.ExcludedAreas {
		if area > navgraph.MaxArea {
			return nil, fmt.Errorf("%w: %d", navgraph.ErrInvalidArea, area)
		}
		f.ExcludedAreas |= 1 << area
	}
	for area, m := range q.AreaCosts {
		if m < 0 {
			return nil, fmt.Errorf("%w: area %d multiplier %v", navgraph.ErrInvalidCost, area, m)
		}
	}
	return f, nil
}

func pathCost[N comparable](filter astar.QueryFilter[N], path []N) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += filter.TraversalCost(path[i-1], path[i])
	}
	return total
}

func recordSearch(kind string, stats astar.Stats, span trace.Span) {
	metrics.SearchesTotal.WithLabelValues(kind, stats.Status.String()).Inc()
	metrics.SearchExpandedNodes.WithLabelValues(kind).Observe(float64(stats.Expanded))
	span.SetAttributes(
		attribute.String("status", stats.Status.String()),
		attribute.Int("expanded", stats.Expanded),
		attribute.Int("pool_size", stats.PoolSize),
		attribute.Int("path_length", stats.PathLength),
	)
}

// FindPath runs an A* query on a waypoint graph. Unknown start or end IDs
// are reported as navgraph.ErrNodeNotFound; every other outcome, including
// an unreachable goal, is a PathResult status.
func (e *Engine) FindPath(ctx context.Context, graph string, q PathQuery) (*PathResult, error) {
	ctx, span := tracer.Start(ctx, "Engine.FindPath",
		trace.WithAttributes(
			attribute.String("graph", graph),
			attribute.String("start", q.Start),
			attribute.String("end", q.End),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.AddEvent("context_cancelled_early")
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	ge, err := e.getGraph(graph)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ge.mu.RLock()
	defer ge.mu.RUnlock()

	filter, err := q.filter(ge.graph)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	start, err := ge.graph.Lookup(q.Start)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	end, err := ge.graph.Lookup(q.End)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	search := ge.searches.Get().(*astar.AStar[uint32])
	defer ge.searches.Put(search)

	begin := time.Now()
	refs, status := search.FindPath(start, end, filter, nil)
	stats := search.Stats()
	recordSearch("graph", stats, span)

	result := &PathResult{
		Status:   status,
		Path:     make([]string, len(refs)),
		Cost:     pathCost[uint32](filter, refs),
		Expanded: stats.Expanded,
	}
	for i, ref := range refs {
		result.Path[i] = ge.graph.ExternalID(ref)
	}
	span.AddEvent("search_complete", trace.WithAttributes(
		attribute.Int64("duration_us", time.Since(begin).Microseconds()),
	))
	return result, nil
}

// FindGridPath runs an A* query on a grid. Out-of-bounds or blocked
// endpoints yield a SearchFail status.
func (e *Engine) FindGridPath(ctx context.Context, grid string, q GridQuery) (*GridPathResult, error) {
	ctx, span := tracer.Start(ctx, "Engine.FindGridPath",
		trace.WithAttributes(
			attribute.String("grid", grid),
			attribute.IntSlice("start", q.Start[:]),
			attribute.IntSlice("end", q.End[:]),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.AddEvent("context_cancelled_early")
		return nil, err
	}

	kind, err := navgraph.ParseHeuristic(q.Heuristic, navgraph.HeuristicOctile)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if q.HeuristicScale < 0 {
		return nil, fmt.Errorf("%w: heuristic_scale must be >= 0, got %v", ErrInvalidArgument, q.HeuristicScale)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	ge, err := e.getGrid(grid)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ge.mu.RLock()
	defer ge.mu.RUnlock()

	filter := &navgraph.GridFilter{
		Grid:      ge.grid,
		Heuristic: kind,
		Scale:     q.HeuristicScale,
		Partial:   q.Partial,
	}
	start := ge.grid.Ref(q.Start[0], q.Start[1])
	end := ge.grid.Ref(q.End[0], q.End[1])

	search := ge.searches.Get().(*astar.AStar[uint32])
	defer ge.searches.Put(search)

	refs, status := search.FindPath(start, end, filter, nil)
	stats := search.Stats()
	recordSearch("grid", stats, span)

	result := &GridPathResult{
		Status:   status,
		Path:     make([]Cell, len(refs)),
		Cost:     pathCost[uint32](filter, refs),
		Expanded: stats.Expanded,
	}
	for i, ref := range refs {
		x, y := ge.grid.Coords(ref)
		result.Path[i] = Cell{x, y}
	}
	return result, nil
}
