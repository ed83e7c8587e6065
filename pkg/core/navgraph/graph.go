// Package navgraph provides concrete navigation graphs for the astar package:
// a waypoint Graph with string-identified nodes and weighted directed edges,
// and a tile Grid with blocked cells and per-cell terrain costs.
//
// Both use uint32 node references. Waypoint nodes live in a dense arena
// indexed by their internal ID; removed nodes become tombstones so their
// references stay stable, the same way the vector index keeps deleted nodes.
//
// Neither type is safe for concurrent mutation. Callers that share a graph
// between goroutines must guard it (the engine package does this with a
// per-graph RWMutex).
package navgraph

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// InvalidNode is the reference that never denotes a node.
const InvalidNode uint32 = math.MaxUint32

// MaxArea is the highest area tag a node may carry.
const MaxArea = 63

var (
	// ErrNodeNotFound is returned when an external ID is unknown or deleted.
	ErrNodeNotFound = errors.New("node not found")
	// ErrInvalidCost is returned for negative, NaN or infinite costs.
	ErrInvalidCost = errors.New("invalid cost")
	// ErrDimensionMismatch is returned when a position has the wrong length.
	ErrDimensionMismatch = errors.New("position dimension mismatch")
	// ErrInvalidArea is returned for area tags above MaxArea.
	ErrInvalidArea = errors.New("invalid area")
	// ErrInvalidNode is returned for empty IDs and non-finite positions.
	ErrInvalidNode = errors.New("invalid node")
	// ErrOutOfBounds is returned for grid cells outside the grid.
	ErrOutOfBounds = errors.New("cell out of bounds")
	// ErrInvalidSize is returned for grids with non-positive or huge sizes.
	ErrInvalidSize = errors.New("invalid grid size")
	// ErrUnknownHeuristic is returned by ParseHeuristic.
	ErrUnknownHeuristic = errors.New("unknown heuristic")
)

// Edge is a directed connection to Target.
type Edge struct {
	Target uint32
	Cost   float32
}

// Node is a waypoint.
type Node struct {
	ID      string
	Pos     []float64
	Area    uint8
	Deleted bool
	Edges   []Edge
}

// Graph is a directed waypoint graph. It implements astar.Graph[uint32].
type Graph struct {
	dim   int
	nodes []*Node
	ids   map[string]uint32
	live  int
	edges int
}

// NewGraph creates an empty graph whose node positions have dim components.
// A dimension of 0 means nodes carry no position and heuristics are zero.
func NewGraph(dim int) *Graph {
	if dim < 0 {
		dim = 0
	}
	return &Graph{
		dim: dim,
		ids: make(map[string]uint32),
	}
}

// Dimension returns the position dimension.
func (g *Graph) Dimension() int { return g.dim }

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return g.live }

// EdgeCount returns the number of directed edges between live nodes.
func (g *Graph) EdgeCount() int { return g.edges }

// AddNode inserts a waypoint, or updates position and area of an existing
// one. Re-adding a removed ID revives its tombstone under the same reference.
func (g *Graph) AddNode(id string, pos []float64, area uint8) (uint32, error) {
	if id == "" {
		return InvalidNode, fmt.Errorf("%w: id cannot be empty", ErrInvalidNode)
	}
	if len(pos) != g.dim {
		return InvalidNode, fmt.Errorf("%w: node %q has %d components, graph expects %d", ErrDimensionMismatch, id, len(pos), g.dim)
	}
	if area > MaxArea {
		return InvalidNode, fmt.Errorf("%w: %d exceeds %d", ErrInvalidArea, area, MaxArea)
	}
	for _, v := range pos {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return InvalidNode, fmt.Errorf("%w: %q has a non-finite coordinate", ErrInvalidNode, id)
		}
	}

	if ref, ok := g.ids[id]; ok {
		n := g.nodes[ref]
		if n.Deleted {
			n.Deleted = false
			g.live++
		}
		n.Pos = append(n.Pos[:0], pos...)
		n.Area = area
		return ref, nil
	}

	if uint64(len(g.nodes)) >= uint64(InvalidNode) {
		return InvalidNode, fmt.Errorf("graph is full")
	}
	ref := uint32(len(g.nodes))
	g.nodes = append(g.nodes, &Node{
		ID:   id,
		Pos:  append([]float64(nil), pos...),
		Area: area,
	})
	g.ids[id] = ref
	g.live++
	return ref, nil
}

// RemoveNode tombstones a waypoint and drops every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	ref, err := g.Lookup(id)
	if err != nil {
		return err
	}
	n := g.nodes[ref]
	g.edges -= len(n.Edges)
	n.Edges = nil
	n.Deleted = true
	g.live--

	for _, other := range g.nodes {
		if other.Deleted {
			continue
		}
		kept := other.Edges[:0]
		for _, e := range other.Edges {
			if e.Target != ref {
				kept = append(kept, e)
			}
		}
		g.edges -= len(other.Edges) - len(kept)
		other.Edges = kept
	}
	return nil
}

// Link adds (or re-weights) the edge src -> dst, and dst -> src when
// bidirectional is set. A cost of 0 means the euclidean distance between the
// two positions.
func (g *Graph) Link(src, dst string, cost float32, bidirectional bool) error {
	if cost < 0 || math.IsNaN(float64(cost)) || math.IsInf(float64(cost), 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCost, cost)
	}
	from, err := g.Lookup(src)
	if err != nil {
		return err
	}
	to, err := g.Lookup(dst)
	if err != nil {
		return err
	}
	if cost == 0 {
		cost = float32(g.Distance(from, to))
	}
	g.setEdge(from, to, cost)
	if bidirectional {
		g.setEdge(to, from, cost)
	}
	return nil
}

func (g *Graph) setEdge(from, to uint32, cost float32) {
	n := g.nodes[from]
	for i := range n.Edges {
		if n.Edges[i].Target == to {
			n.Edges[i].Cost = cost
			return
		}
	}
	n.Edges = append(n.Edges, Edge{Target: to, Cost: cost})
	g.edges++
}

// Unlink removes src -> dst, and dst -> src when bidirectional is set.
// Missing edges are not an error.
func (g *Graph) Unlink(src, dst string, bidirectional bool) error {
	from, err := g.Lookup(src)
	if err != nil {
		return err
	}
	to, err := g.Lookup(dst)
	if err != nil {
		return err
	}
	g.removeEdge(from, to)
	if bidirectional {
		g.removeEdge(to, from)
	}
	return nil
}

func (g *Graph) removeEdge(from, to uint32) {
	n := g.nodes[from]
	for i := range n.Edges {
		if n.Edges[i].Target == to {
			n.Edges = append(n.Edges[:i], n.Edges[i+1:]...)
			g.edges--
			return
		}
	}
}

// Lookup resolves an external ID to a live reference.
func (g *Graph) Lookup(id string) (uint32, error) {
	ref, ok := g.ids[id]
	if !ok || g.nodes[ref].Deleted {
		return InvalidNode, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	return ref, nil
}

// ExternalID returns the ID of ref, or "" if ref is not a live node.
func (g *Graph) ExternalID(ref uint32) string {
	if !g.IsValidRef(ref) {
		return ""
	}
	return g.nodes[ref].ID
}

// Node returns the waypoint behind ref, or nil if ref is not live.
// The returned node must not be modified.
func (g *Graph) Node(ref uint32) *Node {
	if !g.IsValidRef(ref) {
		return nil
	}
	return g.nodes[ref]
}

// EdgeCost returns the cost of from -> to.
func (g *Graph) EdgeCost(from, to uint32) (float32, bool) {
	if !g.IsValidRef(from) {
		return 0, false
	}
	for _, e := range g.nodes[from].Edges {
		if e.Target == to {
			return e.Cost, true
		}
	}
	return 0, false
}

// Distance returns the euclidean distance between two node positions.
func (g *Graph) Distance(a, b uint32) float64 {
	if g.dim == 0 {
		return 0
	}
	return floats.Distance(g.nodes[a].Pos, g.nodes[b].Pos, 2)
}

// Nodes calls fn for every live node in reference order until fn returns
// false.
func (g *Graph) Nodes(fn func(ref uint32, n *Node) bool) {
	for i, n := range g.nodes {
		if n.Deleted {
			continue
		}
		if !fn(uint32(i), n) {
			return
		}
	}
}

// --- astar.Graph[uint32] ---

// NeighbourCount returns the out-degree of ref.
func (g *Graph) NeighbourCount(ref uint32) int {
	if !g.IsValidRef(ref) {
		return 0
	}
	return len(g.nodes[ref].Edges)
}

// Neighbour returns the target of ref's i-th edge.
func (g *Graph) Neighbour(ref uint32, i int) uint32 {
	return g.nodes[ref].Edges[i].Target
}

// IsValidRef reports whether ref is a live node.
func (g *Graph) IsValidRef(ref uint32) bool {
	return ref < uint32(len(g.nodes)) && !g.nodes[ref].Deleted
}
