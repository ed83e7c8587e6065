package mcp

import "github.com/sanonone/kektornav/pkg/engine"

// --- Tool Arguments ---

type FindPathArgs struct {
	Graph         string `json:"graph" jsonschema:"Name of the waypoint graph to search"`
	Start         string `json:"start" jsonschema:"Waypoint ID to start from"`
	End           string `json:"end" jsonschema:"Waypoint ID to reach"`
	Heuristic     string `json:"heuristic,omitempty" jsonschema:"Distance estimate: euclidean (default), manhattan or zero"`
	ExcludedAreas []int  `json:"excluded_areas,omitempty" jsonschema:"Area tags (0-63) the path must not enter"`
	Partial       bool   `json:"partial,omitempty" jsonschema:"If true, return the best partial path when the goal cannot be reached"`
}

type FindPathResult struct {
	Status   string   `json:"status"`
	Path     []string `json:"path"`
	Cost     float64  `json:"cost"`
	Summary  string   `json:"summary"` // "A -> B -> C (cost 2.00)"
	Expanded int      `json:"expanded"`
}

type FindGridPathArgs struct {
	Grid    string `json:"grid" jsonschema:"Name of the tile grid to search"`
	StartX  int    `json:"start_x"`
	StartY  int    `json:"start_y"`
	EndX    int    `json:"end_x"`
	EndY    int    `json:"end_y"`
	Partial bool   `json:"partial,omitempty"`
}

type FindGridPathResult struct {
	Status string        `json:"status"`
	Path   []engine.Cell `json:"path"`
	Cost   float64       `json:"cost"`
}

type AddWaypointArgs struct {
	Graph string    `json:"graph" jsonschema:"Name of the waypoint graph, created on first use"`
	ID    string    `json:"id" jsonschema:"Unique waypoint ID (e.g. gate_north)"`
	Pos   []float64 `json:"pos" jsonschema:"Waypoint coordinates; all waypoints of a graph share the same dimension"`
	Area  uint8     `json:"area,omitempty" jsonschema:"Area tag (0-63) used by excluded_areas filters"`
}

type AddWaypointResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type LinkWaypointsArgs struct {
	Graph         string  `json:"graph"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Cost          float32 `json:"cost,omitempty" jsonschema:"Traversal cost. Defaults to the straight-line distance"`
	Bidirectional bool    `json:"bidirectional,omitempty" jsonschema:"If true, also link to back to from"`
}

type LinkWaypointsResult struct {
	Status string `json:"status"`
}

type ListGraphsArgs struct{}

type ListGraphsResult struct {
	Graphs []engine.GraphInfo `json:"graphs"`
	Grids  []engine.GridInfo  `json:"grids"`
}
