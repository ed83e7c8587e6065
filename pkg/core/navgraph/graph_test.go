package navgraph

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sanonone/kektornav/pkg/core/astar"
)

func mustNode(t *testing.T, g *Graph, id string, pos ...float64) uint32 {
	t.Helper()
	ref, err := g.AddNode(id, pos, 0)
	if err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
	return ref
}

func mustLink(t *testing.T, g *Graph, a, b string, cost float32) {
	t.Helper()
	if err := g.Link(a, b, cost, true); err != nil {
		t.Fatalf("Link(%s, %s): %v", a, b, err)
	}
}

func ids(g *Graph, refs []uint32) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = g.ExternalID(r)
	}
	return out
}

func TestGraphNodesAndEdges(t *testing.T) {
	g := NewGraph(2)
	a := mustNode(t, g, "A", 0, 0)
	mustNode(t, g, "B", 3, 4)

	if _, err := g.AddNode("C", []float64{1}, 0); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := g.AddNode("C", []float64{1, 1}, MaxArea+1); !errors.Is(err, ErrInvalidArea) {
		t.Errorf("expected ErrInvalidArea, got %v", err)
	}

	// Zero cost defaults to the euclidean distance.
	mustLink(t, g, "A", "B", 0)
	b, _ := g.Lookup("B")
	if c, ok := g.EdgeCost(a, b); !ok || c != 5 {
		t.Errorf("expected edge cost 5, got %v (found=%v)", c, ok)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 directed edges, got %d", g.EdgeCount())
	}

	// Re-linking re-weights instead of duplicating.
	if err := g.Link("A", "B", 7, false); err != nil {
		t.Fatal(err)
	}
	if c, _ := g.EdgeCost(a, b); c != 7 || g.EdgeCount() != 2 {
		t.Errorf("expected re-weighted edge 7 and 2 edges, got %v and %d", c, g.EdgeCount())
	}

	if err := g.Link("A", "B", -1, false); !errors.Is(err, ErrInvalidCost) {
		t.Errorf("expected ErrInvalidCost, got %v", err)
	}
	if err := g.Link("A", "missing", 1, false); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}

	if err := g.Unlink("A", "B", true); err != nil {
		t.Fatal(err)
	}
	if g.EdgeCount() != 0 || g.NeighbourCount(a) != 0 {
		t.Errorf("unlink must remove both directions, %d edges left", g.EdgeCount())
	}
}

func TestGraphRemoveNodeTombstones(t *testing.T) {
	g := NewGraph(0)
	mustNode(t, g, "A")
	b := mustNode(t, g, "B")
	mustNode(t, g, "C")
	mustLink(t, g, "A", "B", 1)
	mustLink(t, g, "B", "C", 1)

	if err := g.RemoveNode("B"); err != nil {
		t.Fatal(err)
	}
	if g.IsValidRef(b) || g.NodeCount() != 2 || g.EdgeCount() != 0 {
		t.Errorf("after removal: valid=%v nodes=%d edges=%d", g.IsValidRef(b), g.NodeCount(), g.EdgeCount())
	}
	if _, err := g.Lookup("B"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("removed node must not resolve, got %v", err)
	}

	revived := mustNode(t, g, "B")
	if revived != b {
		t.Errorf("re-adding must revive the same reference, got %d want %d", revived, b)
	}
	if g.NodeCount() != 3 {
		t.Errorf("expected 3 live nodes, got %d", g.NodeCount())
	}
}

func TestGraphPathfinding(t *testing.T) {
	g := NewGraph(2)
	mustNode(t, g, "A", 0, 0)
	mustNode(t, g, "B", 1, 0)
	mustNode(t, g, "C", 0, 5)
	mustNode(t, g, "D", 2, 0)
	mustLink(t, g, "A", "B", 1)
	mustLink(t, g, "B", "D", 1)
	mustLink(t, g, "A", "C", 5)
	mustLink(t, g, "C", "D", 1)

	start, _ := g.Lookup("A")
	end, _ := g.Lookup("D")
	search := astar.New[uint32](g, astar.DefaultPolicy())

	t.Run("Euclidean", func(t *testing.T) {
		path, status := search.FindPath(start, end, &Filter{Graph: g, Heuristic: HeuristicEuclidean}, nil)
		if status != astar.SearchSuccess {
			t.Fatalf("expected success, got %v", status)
		}
		if diff := cmp.Diff([]string{"A", "B", "D"}, ids(g, path)); diff != "" {
			t.Errorf("path mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ExcludedArea", func(t *testing.T) {
		if _, err := g.AddNode("B", []float64{1, 0}, 3); err != nil {
			t.Fatal(err)
		}
		defer g.AddNode("B", []float64{1, 0}, 0)

		filter := &Filter{Graph: g, ExcludedAreas: 1 << 3}
		path, status := search.FindPath(start, end, filter, nil)
		if status != astar.SearchSuccess {
			t.Fatalf("expected success, got %v", status)
		}
		if diff := cmp.Diff([]string{"A", "C", "D"}, ids(g, path)); diff != "" {
			t.Errorf("path mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("AreaCost", func(t *testing.T) {
		if _, err := g.AddNode("B", []float64{1, 0}, 1); err != nil {
			t.Fatal(err)
		}
		defer g.AddNode("B", []float64{1, 0}, 0)

		filter := &Filter{Graph: g, AreaCosts: map[uint8]float64{1: 10}}
		path, _ := search.FindPath(start, end, filter, nil)
		if diff := cmp.Diff([]string{"A", "C", "D"}, ids(g, path)); diff != "" {
			t.Errorf("path mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("MaxEdgeCost", func(t *testing.T) {
		if err := g.Unlink("A", "B", true); err != nil {
			t.Fatal(err)
		}
		defer mustLink(t, g, "A", "B", 1)

		filter := &Filter{Graph: g, MaxEdgeCost: 2, Partial: true}
		path, status := search.FindPath(start, end, filter, nil)
		if status != astar.GoalUnreachable {
			t.Fatalf("expected unreachable, got %v", status)
		}
		if diff := cmp.Diff([]string{"A"}, ids(g, path)); diff != "" {
			t.Errorf("partial path mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("RemovedEndpoint", func(t *testing.T) {
		if err := g.RemoveNode("D"); err != nil {
			t.Fatal(err)
		}
		_, status := search.FindPath(start, end, &Filter{Graph: g}, nil)
		if status != astar.SearchFail {
			t.Errorf("expected %v for a removed endpoint, got %v", astar.SearchFail, status)
		}
	})
}

func TestFilterHeuristics(t *testing.T) {
	g := NewGraph(2)
	a := mustNode(t, g, "A", 0, 0)
	b := mustNode(t, g, "B", 3, 4)

	tests := []struct {
		kind HeuristicKind
		want float64
	}{
		{HeuristicEuclidean, 5},
		{HeuristicManhattan, 7},
		{HeuristicZero, 0},
		{"", 5},
	}
	for _, tc := range tests {
		f := &Filter{Graph: g, Heuristic: tc.kind}
		if got := f.HeuristicCost(a, b); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%q: got %v, want %v", tc.kind, got, tc.want)
		}
	}

	if _, err := ParseHeuristic("bogus", HeuristicEuclidean); err == nil {
		t.Error("unknown heuristic names must be rejected")
	}
	if k, _ := ParseHeuristic("", HeuristicOctile); k != HeuristicOctile {
		t.Errorf("empty name should select the default, got %q", k)
	}
}

func TestBitSet(t *testing.T) {
	bs := NewBitSet(10)
	bs.Add(3)
	bs.Add(200)
	if !bs.Has(3) || !bs.Has(200) || bs.Has(4) {
		t.Fatalf("membership mismatch")
	}
	if bs.Count() != 2 {
		t.Errorf("expected 2 members, got %d", bs.Count())
	}
	bs.Remove(3)
	bs.Remove(10000)
	if bs.Has(3) || bs.Count() != 1 {
		t.Errorf("remove failed")
	}
	bs.Clear()
	if bs.Count() != 0 {
		t.Errorf("clear failed")
	}
}
