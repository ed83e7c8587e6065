package engine

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/sanonone/kektornav/pkg/core/astar"
	"github.com/sanonone/kektornav/pkg/core/navgraph"
	"github.com/sanonone/kektornav/pkg/metrics"
	"github.com/tidwall/btree"
)

// GraphInfo summarizes a waypoint graph.
type GraphInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
}

// EdgeInfo is an outgoing edge of a node.
type EdgeInfo struct {
	To   string  `json:"to"`
	Cost float32 `json:"cost"`
}

// NodeInfo is the public view of a waypoint.
type NodeInfo struct {
	ID    string     `json:"id"`
	Pos   []float64  `json:"pos,omitempty"`
	Area  uint8      `json:"area,omitempty"`
	Edges []EdgeInfo `json:"edges,omitempty"`
}

// graphEntry is a registered waypoint graph. Searches borrow AStar objects
// from a per-graph pool, so concurrent queries never share search state.
type graphEntry struct {
	name  string
	mu    sync.RWMutex
	graph *navgraph.Graph
	// catalog keeps live node IDs ordered for prefix listing.
	catalog  *btree.BTreeG[string]
	searches sync.Pool
}

func newGraphEntry(name string, g *navgraph.Graph, policy astar.Policy) *graphEntry {
	ge := &graphEntry{
		name:    name,
		graph:   g,
		catalog: btree.NewBTreeG[string](func(a, b string) bool { return a < b }),
	}
	ge.searches.New = func() any {
		return astar.New[uint32](g, policy)
	}
	g.Nodes(func(_ uint32, n *navgraph.Node) bool {
		ge.catalog.Set(n.ID)
		return true
	})
	return ge
}

func (ge *graphEntry) info() GraphInfo {
	return GraphInfo{
		Name:      ge.name,
		Dimension: ge.graph.Dimension(),
		Nodes:     ge.graph.NodeCount(),
		Edges:     ge.graph.EdgeCount(),
	}
}

func (ge *graphEntry) nodeInfo(ref uint32) NodeInfo {
	n := ge.graph.Node(ref)
	info := NodeInfo{
		ID:   n.ID,
		Pos:  slices.Clone(n.Pos),
		Area: n.Area,
	}
	for _, edge := range n.Edges {
		info.Edges = append(info.Edges, EdgeInfo{To: ge.graph.ExternalID(edge.Target), Cost: edge.Cost})
	}
	return info
}

// getGraph returns the entry for name. Callers hold e.mu.
func (e *Engine) getGraph(name string) (*graphEntry, error) {
	ge, ok := e.graphs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGraphNotFound, name)
	}
	return ge, nil
}

// mutateGraph applies fn under the graph write lock and logs the command when
// fn succeeds.
func (e *Engine) mutateGraph(name, op string, args any, fn func(ge *graphEntry) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.isClosed() {
		return ErrClosed
	}

	ge, err := e.getGraph(name)
	if err != nil {
		return err
	}
	ge.mu.Lock()
	defer ge.mu.Unlock()

	if err := fn(ge); err != nil {
		return err
	}
	metrics.GraphNodes.WithLabelValues(name).Set(float64(ge.graph.NodeCount()))
	return e.logCommand(op, args)
}

func (e *Engine) updateGraphGauges() {
	metrics.GraphsTotal.WithLabelValues("graph").Set(float64(len(e.graphs)))
	metrics.GraphsTotal.WithLabelValues("grid").Set(float64(len(e.grids)))
}

// CreateGraph registers an empty waypoint graph whose node positions have
// dimension components.
func (e *Engine) CreateGraph(name string, dimension int) error {
	if err := validName(name); err != nil {
		return err
	}
	if dimension < 0 {
		return fmt.Errorf("%w: dimension must be >= 0, got %d", ErrInvalidArgument, dimension)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isClosed() {
		return ErrClosed
	}
	if _, exists := e.graphs[name]; exists {
		return fmt.Errorf("%w: %q", ErrGraphExists, name)
	}
	e.graphs[name] = newGraphEntry(name, navgraph.NewGraph(dimension), e.opts.Policy)
	e.updateGraphGauges()
	metrics.GraphNodes.WithLabelValues(name).Set(0)
	return e.logCommand(opCreateGraph, createGraphArgs{Graph: name, Dimension: dimension})
}

// DropGraph deletes a waypoint graph.
func (e *Engine) DropGraph(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isClosed() {
		return ErrClosed
	}
	if _, err := e.getGraph(name); err != nil {
		return err
	}
	delete(e.graphs, name)
	e.updateGraphGauges()
	metrics.GraphNodes.DeleteLabelValues(name)
	return e.logCommand(opDropGraph, nameArgs{Name: name})
}

// ListGraphs returns a summary of every graph, ordered by name.
func (e *Engine) ListGraphs() []GraphInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]GraphInfo, 0, len(e.graphs))
	for _, ge := range e.graphs {
		ge.mu.RLock()
		out = append(out, ge.info())
		ge.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b GraphInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// GraphInfo returns the summary of one graph.
func (e *Engine) GraphInfo(name string) (GraphInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ge, err := e.getGraph(name)
	if err != nil {
		return GraphInfo{}, err
	}
	ge.mu.RLock()
	defer ge.mu.RUnlock()
	return ge.info(), nil
}

// AddNode inserts a waypoint or updates the position and area of an
// existing one.
func (e *Engine) AddNode(graph, id string, pos []float64, area uint8) error {
	args := addNodeArgs{Graph: graph, ID: id, Pos: pos, Area: area}
	return e.mutateGraph(graph, opAddNode, args, func(ge *graphEntry) error {
		if _, err := ge.graph.AddNode(id, pos, area); err != nil {
			return err
		}
		ge.catalog.Set(id)
		return nil
	})
}

// RemoveNode deletes a waypoint and every edge touching it.
func (e *Engine) RemoveNode(graph, id string) error {
	args := removeNodeArgs{Graph: graph, ID: id}
	return e.mutateGraph(graph, opRemoveNode, args, func(ge *graphEntry) error {
		if err := ge.graph.RemoveNode(id); err != nil {
			return err
		}
		ge.catalog.Delete(id)
		return nil
	})
}

// Link adds or re-weights the edge src -> dst (and dst -> src when
// bidirectional). A zero cost means the euclidean distance.
func (e *Engine) Link(graph, src, dst string, cost float32, bidirectional bool) error {
	args := linkArgs{Graph: graph, Src: src, Dst: dst, Cost: cost, Bidirectional: bidirectional}
	return e.mutateGraph(graph, opLink, args, func(ge *graphEntry) error {
		return ge.graph.Link(src, dst, cost, bidirectional)
	})
}

// Unlink removes the edge src -> dst (and dst -> src when bidirectional).
func (e *Engine) Unlink(graph, src, dst string, bidirectional bool) error {
	args := linkArgs{Graph: graph, Src: src, Dst: dst, Bidirectional: bidirectional}
	return e.mutateGraph(graph, opUnlink, args, func(ge *graphEntry) error {
		return ge.graph.Unlink(src, dst, bidirectional)
	})
}

// GetNode returns one waypoint with its outgoing edges.
func (e *Engine) GetNode(graph, id string) (NodeInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ge, err := e.getGraph(graph)
	if err != nil {
		return NodeInfo{}, err
	}
	ge.mu.RLock()
	defer ge.mu.RUnlock()

	ref, err := ge.graph.Lookup(id)
	if err != nil {
		return NodeInfo{}, err
	}
	return ge.nodeInfo(ref), nil
}

// ListNodes returns waypoints whose ID starts with prefix, in ID order.
// A limit <= 0 returns every match.
func (e *Engine) ListNodes(graph, prefix string, limit int) ([]NodeInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ge, err := e.getGraph(graph)
	if err != nil {
		return nil, err
	}
	ge.mu.RLock()
	defer ge.mu.RUnlock()

	out := []NodeInfo{}
	ge.catalog.Ascend(prefix, func(id string) bool {
		if !strings.HasPrefix(id, prefix) {
			return false
		}
		if ref, err := ge.graph.Lookup(id); err == nil {
			out = append(out, ge.nodeInfo(ref))
		}
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

// ImportDocument builds the graph described by doc and registers it under
// doc.Name. With replace set an existing graph of that name is dropped
// first; otherwise ErrGraphExists is returned.
func (e *Engine) ImportDocument(doc *navgraph.Document, replace bool) (GraphInfo, error) {
	if err := validName(doc.Name); err != nil {
		return GraphInfo{}, err
	}
	g, err := doc.Build()
	if err != nil {
		return GraphInfo{}, fmt.Errorf("invalid graph document %q: %w", doc.Name, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isClosed() {
		return GraphInfo{}, ErrClosed
	}
	if _, exists := e.graphs[doc.Name]; exists {
		if !replace {
			return GraphInfo{}, fmt.Errorf("%w: %q", ErrGraphExists, doc.Name)
		}
		if err := e.logCommand(opDropGraph, nameArgs{Name: doc.Name}); err != nil {
			return GraphInfo{}, err
		}
	}

	ge := newGraphEntry(doc.Name, g, e.opts.Policy)
	e.graphs[doc.Name] = ge
	e.updateGraphGauges()
	metrics.GraphNodes.WithLabelValues(doc.Name).Set(float64(g.NodeCount()))

	if err := emitGraph(ge, e.logCommand); err != nil {
		return GraphInfo{}, err
	}
	return ge.info(), nil
}

// emitGraph describes the current state of a graph as AOF commands.
func emitGraph(ge *graphEntry, emit func(op string, args any) error) error {
	g := ge.graph
	if err := emit(opCreateGraph, createGraphArgs{Graph: ge.name, Dimension: g.Dimension()}); err != nil {
		return err
	}

	var err error
	g.Nodes(func(_ uint32, n *navgraph.Node) bool {
		err = emit(opAddNode, addNodeArgs{Graph: ge.name, ID: n.ID, Pos: n.Pos, Area: n.Area})
		return err == nil
	})
	if err != nil {
		return err
	}

	g.Nodes(func(_ uint32, n *navgraph.Node) bool {
		for _, edge := range n.Edges {
			err = emit(opLink, linkArgs{
				Graph: ge.name,
				Src:   n.ID,
				Dst:   g.ExternalID(edge.Target),
				Cost:  edge.Cost,
			})
			if err != nil {
				return false
			}
		}
		return true
	})
	return err
}
