package astar

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// --- Test fixtures ---

type edge struct {
	to   string
	cost float64
}

// mapGraph is a small directed graph keyed by string references.
type mapGraph struct {
	adj       map[string][]edge
	pos       map[string][2]float64
	expansion map[string]int
}

func newMapGraph() *mapGraph {
	return &mapGraph{
		adj:       make(map[string][]edge),
		pos:       make(map[string][2]float64),
		expansion: make(map[string]int),
	}
}

func (g *mapGraph) node(id string, x, y float64) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = nil
	}
	g.pos[id] = [2]float64{x, y}
}

func (g *mapGraph) link(a, b string, cost float64) {
	g.adj[a] = append(g.adj[a], edge{b, cost})
	g.adj[b] = append(g.adj[b], edge{a, cost})
}

func (g *mapGraph) arc(a, b string, cost float64) {
	g.adj[a] = append(g.adj[a], edge{b, cost})
}

func (g *mapGraph) NeighbourCount(n string) int {
	g.expansion[n]++
	return len(g.adj[n])
}
func (g *mapGraph) Neighbour(n string, i int) string { return g.adj[n][i].to }
func (g *mapGraph) IsValidRef(n string) bool {
	_, ok := g.adj[n]
	return ok
}

func (g *mapGraph) cost(a, b string) (float64, bool) {
	for _, e := range g.adj[a] {
		if e.to == b {
			return e.cost, true
		}
	}
	return 0, false
}

// testFilter uses the graph's edge costs and an optional euclidean heuristic.
type testFilter struct {
	g         *mapGraph
	euclid    bool
	scale     float64
	partial   bool
	forbidden map[[2]string]bool
	onAllowed func(from, to string)
}

func (f *testFilter) HeuristicScale() float64 {
	if f.scale == 0 {
		return 1
	}
	return f.scale
}

func (f *testFilter) HeuristicCost(from, to string) float64 {
	if !f.euclid {
		return 0
	}
	a, b := f.g.pos[from], f.g.pos[to]
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

func (f *testFilter) TraversalCost(from, to string) float64 {
	c, _ := f.g.cost(from, to)
	return c
}

func (f *testFilter) IsTraversalAllowed(from, to string) bool {
	if f.onAllowed != nil {
		f.onAllowed(from, to)
	}
	return !f.forbidden[[2]string{from, to}]
}

func (f *testFilter) WantsPartialSolution() bool { return f.partial }

// diamond builds the A-B-D / A-C-D example graph.
func diamond() *mapGraph {
	g := newMapGraph()
	for _, id := range []string{"A", "B", "C", "D"} {
		g.node(id, 0, 0)
	}
	g.link("A", "B", 1)
	g.link("B", "D", 1)
	g.link("A", "C", 5)
	g.link("C", "D", 1)
	return g
}

func pathCost(t *testing.T, g *mapGraph, path []string) float64 {
	t.Helper()
	total := 0.0
	for i := 1; i < len(path); i++ {
		c, ok := g.cost(path[i-1], path[i])
		if !ok {
			t.Fatalf("path step %s -> %s is not an edge of the graph", path[i-1], path[i])
		}
		total += c
	}
	return total
}

// dijkstra is a brute-force reference over the same graph.
func dijkstra(g *mapGraph, start, end string) float64 {
	dist := map[string]float64{start: 0}
	done := map[string]bool{}
	for {
		cur, best := "", math.Inf(1)
		for n, d := range dist {
			if !done[n] && d < best {
				cur, best = n, d
			}
		}
		if cur == "" {
			return math.Inf(1)
		}
		if cur == end {
			return best
		}
		done[cur] = true
		for _, e := range g.adj[cur] {
			if nd := best + e.cost; nd < distOr(dist, e.to) {
				dist[e.to] = nd
			}
		}
	}
}

func distOr(m map[string]float64, k string) float64 {
	if v, ok := m[k]; ok {
		return v
	}
	return math.Inf(1)
}

// --- Tests ---

func TestFindPathPrefersCheaperRoute(t *testing.T) {
	g := diamond()
	search := New[string](g, DefaultPolicy())

	path, status := search.FindPath("A", "D", &testFilter{g: g}, nil)
	if status != SearchSuccess {
		t.Fatalf("expected %v, got %v", SearchSuccess, status)
	}
	if diff := cmp.Diff([]string{"A", "B", "D"}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if c := pathCost(t, g, path); c != 2 {
		t.Errorf("expected path cost 2, got %v", c)
	}
}

func TestFindPathTrivial(t *testing.T) {
	g := diamond()
	search := New[string](g, DefaultPolicy())

	path, status := search.FindPath("C", "C", &testFilter{g: g}, nil)
	if status != SearchSuccess {
		t.Fatalf("expected success, got %v", status)
	}
	if diff := cmp.Diff([]string{"C"}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if len(g.expansion) != 0 {
		t.Errorf("trivial search must not expand the graph, expanded %v", g.expansion)
	}
}

func TestFindPathInvalidEndpoints(t *testing.T) {
	g := diamond()
	search := New[string](g, DefaultPolicy())
	buf := []string{"untouched"}

	tests := []struct {
		name       string
		start, end string
	}{
		{"InvalidStart", "Z", "D"},
		{"InvalidEnd", "A", "Z"},
		{"BothInvalid", "Y", "Z"},
		{"SameInvalid", "Z", "Z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path, status := search.FindPath(tc.start, tc.end, &testFilter{g: g, partial: true}, buf)
			if status != SearchFail {
				t.Errorf("expected %v, got %v", SearchFail, status)
			}
			if diff := cmp.Diff([]string{"untouched"}, path); diff != "" {
				t.Errorf("buffer must be untouched (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindPathUnreachable(t *testing.T) {
	g := newMapGraph()
	// Component A: a line along the x axis.
	g.node("a0", 0, 0)
	g.node("a1", 1, 0)
	g.node("a2", 2, 0)
	g.link("a0", "a1", 1)
	g.link("a1", "a2", 1)
	// Component B, far to the right.
	g.node("b0", 10, 0)
	g.node("b1", 11, 0)
	g.link("b0", "b1", 1)

	t.Run("NoPartial", func(t *testing.T) {
		search := New[string](g, DefaultPolicy())
		buf := []string{"keep"}
		path, status := search.FindPath("a0", "b1", &testFilter{g: g, euclid: true}, buf)
		if status != GoalUnreachable {
			t.Fatalf("expected %v, got %v", GoalUnreachable, status)
		}
		if diff := cmp.Diff([]string{"keep"}, path); diff != "" {
			t.Errorf("buffer must be untouched (-want +got):\n%s", diff)
		}
	})

	t.Run("Partial", func(t *testing.T) {
		search := New[string](g, DefaultPolicy())
		path, status := search.FindPath("a0", "b1", &testFilter{g: g, euclid: true, partial: true}, nil)
		if status != GoalUnreachable {
			t.Fatalf("expected %v, got %v", GoalUnreachable, status)
		}
		if diff := cmp.Diff([]string{"a0", "a1", "a2"}, path); diff != "" {
			t.Errorf("partial path mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ZeroHeuristicIsNotSuccess", func(t *testing.T) {
		search := New[string](g, DefaultPolicy())
		_, status := search.FindPath("a0", "b1", &testFilter{g: g}, nil)
		if status != GoalUnreachable {
			t.Errorf("expected %v with a zero heuristic, got %v", GoalUnreachable, status)
		}
	})
}

func TestFindPathRespectsFilter(t *testing.T) {
	g := diamond()
	search := New[string](g, DefaultPolicy())
	filter := &testFilter{g: g, forbidden: map[[2]string]bool{{"B", "D"}: true}}

	path, status := search.FindPath("A", "D", filter, nil)
	if status != SearchSuccess {
		t.Fatalf("expected success, got %v", status)
	}
	if diff := cmp.Diff([]string{"A", "C", "D"}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestFindPathOptimalAndContiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 30; round++ {
		g := newMapGraph()
		n := 25 + rng.Intn(25)
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
			g.node(ids[i], rng.Float64()*100, rng.Float64()*100)
		}
		for i := 0; i < n*3; i++ {
			a, b := ids[rng.Intn(n)], ids[rng.Intn(n)]
			if a == b {
				continue
			}
			if _, exists := g.cost(a, b); exists {
				continue
			}
			pa, pb := g.pos[a], g.pos[b]
			// Costs never undercut the straight line, so euclid stays admissible.
			straight := math.Hypot(pa[0]-pb[0], pa[1]-pb[1])
			g.arc(a, b, straight*(1+rng.Float64()))
		}

		for _, euclid := range []bool{false, true} {
			search := New[string](g, DefaultPolicy())
			filter := &testFilter{g: g, euclid: euclid}
			start, end := ids[0], ids[n-1]

			path, status := search.FindPath(start, end, filter, nil)
			want := dijkstra(g, start, end)
			if math.IsInf(want, 1) {
				if status != GoalUnreachable {
					t.Fatalf("round %d: expected unreachable, got %v", round, status)
				}
				continue
			}
			if status != SearchSuccess {
				t.Fatalf("round %d: expected success, got %v", round, status)
			}
			if path[0] != start || path[len(path)-1] != end {
				t.Fatalf("round %d: path must run from %s to %s, got %v", round, start, end, path)
			}
			for i := 1; i < len(path); i++ {
				if !filter.IsTraversalAllowed(path[i-1], path[i]) {
					t.Fatalf("round %d: step %s -> %s not allowed", round, path[i-1], path[i])
				}
			}
			if got := pathCost(t, g, path); math.Abs(got-want) > 1e-9 {
				t.Fatalf("round %d (euclid=%v): path cost %v, optimum %v", round, euclid, got, want)
			}
		}
	}
}

func TestFindPathReopensClosedNodes(t *testing.T) {
	// The heuristic is admissible but inconsistent: X looks expensive, so M
	// is first expanded through Y. The cheaper route through X shows up after
	// M was closed and must be propagated to G.
	g := newMapGraph()
	for _, id := range []string{"S", "X", "Y", "M", "G"} {
		g.node(id, 0, 0)
	}
	g.arc("S", "X", 1)
	g.arc("S", "Y", 2)
	g.arc("X", "M", 1)
	g.arc("Y", "M", 5)
	g.arc("M", "G", 10)

	h := map[string]float64{"S": 0, "X": 8, "Y": 0, "M": 0, "G": 0}
	filter := &heuristicFilter{testFilter: testFilter{g: g}, h: h}

	search := New[string](g, DefaultPolicy())
	path, status := search.FindPath("S", "G", filter, nil)
	if status != SearchSuccess {
		t.Fatalf("expected success, got %v", status)
	}
	if diff := cmp.Diff([]string{"S", "X", "M", "G"}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if c := pathCost(t, g, path); c != 12 {
		t.Errorf("expected optimal cost 12, got %v", c)
	}
}

type heuristicFilter struct {
	testFilter
	h map[string]float64
}

func (f *heuristicFilter) HeuristicCost(from, to string) float64 { return f.h[from] }

func TestFindPathIgnoreClosedNodes(t *testing.T) {
	g := diamond()
	policy := DefaultPolicy()
	policy.IgnoreClosedNodes = true
	search := New[string](g, policy)

	path, status := search.FindPath("A", "D", &testFilter{g: g}, nil)
	if status != SearchSuccess {
		t.Fatalf("expected success, got %v", status)
	}
	if diff := cmp.Diff([]string{"A", "B", "D"}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestFindPathFatalPathLength(t *testing.T) {
	g := newMapGraph()
	ids := []string{"n0", "n1", "n2", "n3", "n4"}
	for i, id := range ids {
		g.node(id, float64(i), 0)
	}
	for i := 1; i < len(ids); i++ {
		g.link(ids[i-1], ids[i], 1)
	}

	policy := DefaultPolicy()
	policy.FatalPathLength = 3
	search := New[string](g, policy)

	buf := []string{"keep"}
	path, status := search.FindPath("n0", "n4", &testFilter{g: g}, buf)
	if status != InfiniteLoop {
		t.Fatalf("expected %v, got %v", InfiniteLoop, status)
	}
	if diff := cmp.Diff([]string{"keep"}, path); diff != "" {
		t.Errorf("buffer must be untouched (-want +got):\n%s", diff)
	}
}

func TestFindPathCorruptedParentChain(t *testing.T) {
	g := newMapGraph()
	for i, id := range []string{"A", "B", "C", "D"} {
		g.node(id, float64(i), 0)
	}
	g.link("A", "B", 1)
	g.link("B", "C", 1)
	g.link("C", "D", 1)

	search := New[string](g, DefaultPolicy())
	filter := &testFilter{g: g}
	// When C is about to reach D, point B's parent back at C: the chain
	// D -> C -> B -> C -> ... never reaches the start.
	filter.onAllowed = func(from, to string) {
		if from == "C" && to == "D" {
			b := search.pool.At(search.pool.index["B"])
			b.ParentNodeIndex = search.pool.index["C"]
		}
	}

	if _, status := search.FindPath("A", "D", filter, nil); status != InfiniteLoop {
		t.Fatalf("expected %v, got %v", InfiniteLoop, status)
	}
}

func TestFindPathSearchLimit(t *testing.T) {
	g := newMapGraph()
	ids := []string{"n0", "n1", "n2", "n3", "n4", "n5"}
	for i, id := range ids {
		g.node(id, float64(i), 0)
	}
	for i := 1; i < len(ids); i++ {
		g.link(ids[i-1], ids[i], 1)
	}

	policy := DefaultPolicy()
	policy.MaxSearchNodes = 2

	t.Run("NoPartial", func(t *testing.T) {
		search := New[string](g, policy)
		path, status := search.FindPath("n0", "n5", &testFilter{g: g, euclid: true}, nil)
		if status != SearchLimitReached {
			t.Fatalf("expected %v, got %v", SearchLimitReached, status)
		}
		if path != nil {
			t.Errorf("expected no path, got %v", path)
		}
		if got := search.Stats().Expanded; got != 2 {
			t.Errorf("expected 2 expansions, got %d", got)
		}
	})

	t.Run("Partial", func(t *testing.T) {
		search := New[string](g, policy)
		path, status := search.FindPath("n0", "n5", &testFilter{g: g, euclid: true, partial: true}, nil)
		if status != SearchLimitReached {
			t.Fatalf("expected %v, got %v", SearchLimitReached, status)
		}
		if diff := cmp.Diff([]string{"n0", "n1", "n2"}, path); diff != "" {
			t.Errorf("partial path mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFindPathNegativeCycleTerminates(t *testing.T) {
	g := newMapGraph()
	for _, id := range []string{"S", "X", "Y", "Z", "G"} {
		g.node(id, 0, 0)
	}
	// X -> Y -> Z -> X sums to -1: every lap makes the cycle cheaper.
	g.arc("S", "X", 1)
	g.arc("X", "Y", -3)
	g.arc("Y", "Z", 1)
	g.arc("Z", "X", 1)
	g.arc("Y", "G", 100)

	short := DefaultPolicy()
	short.FatalPathLength = 20

	for name, policy := range map[string]Policy{"Default": DefaultPolicy(), "ShortChain": short} {
		t.Run(name, func(t *testing.T) {
			if policy.MaxSearchNodes != 0 {
				t.Fatalf("expansion limit must stay off, got %d", policy.MaxSearchNodes)
			}
			search := New[string](g, policy)

			type result struct {
				path   []string
				status Status
			}
			done := make(chan result, 1)
			go func() {
				path, status := search.FindPath("S", "G", &testFilter{g: g, partial: true}, []string{"keep"})
				done <- result{path, status}
			}()

			select {
			case res := <-done:
				if res.status != InfiniteLoop {
					t.Fatalf("expected %v, got %v", InfiniteLoop, res.status)
				}
				if diff := cmp.Diff([]string{"keep"}, res.path); diff != "" {
					t.Errorf("buffer must be untouched (-want +got):\n%s", diff)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("search over a negative cycle did not terminate")
			}
		})
	}
}

func TestFindPathLimitAfterGoalDiscovered(t *testing.T) {
	g := newMapGraph()
	ids := []string{"n0", "n1", "n2", "n3"}
	for i, id := range ids {
		g.node(id, float64(i), 0)
	}
	for i := 1; i < len(ids); i++ {
		g.link(ids[i-1], ids[i], 1)
	}
	// A cheaper detour the search never gets to expand.
	g.node("x", 1.5, 1)
	g.link("n1", "x", 0.1)
	g.link("x", "n3", 0.1)

	policy := DefaultPolicy()
	// n0, n1 and x are expanded; n3 is discovered through x but not popped.
	policy.MaxSearchNodes = 3
	search := New[string](g, policy)

	path, status := search.FindPath("n0", "n3", &testFilter{g: g, euclid: true, partial: true}, nil)
	if status != SearchLimitReached {
		t.Fatalf("expected %v, got %v", SearchLimitReached, status)
	}
	if diff := cmp.Diff([]string{"n0", "n1", "x", "n3"}, path); diff != "" {
		t.Errorf("partial path should end at the discovered goal (-want +got):\n%s", diff)
	}
	if got := search.Stats().Expanded; got != 3 {
		t.Errorf("expected 3 expansions, got %d", got)
	}
}

func TestFindPathReuseIsIdempotent(t *testing.T) {
	for _, reuse := range []bool{false, true} {
		g := diamond()
		g.node("E", 0, 0)
		g.link("D", "E", 2)

		policy := DefaultPolicy()
		policy.ReuseNodePoolInSubsequentSearches = reuse
		search := New[string](g, policy)
		filter := &testFilter{g: g}

		first, s1 := search.FindPath("A", "E", filter, nil)
		// An unrelated query in between must not leak state.
		_, _ = search.FindPath("C", "B", filter, nil)
		second, s2 := search.FindPath("A", "E", filter, nil)

		if s1 != SearchSuccess || s2 != SearchSuccess {
			t.Fatalf("reuse=%v: expected two successes, got %v and %v", reuse, s1, s2)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("reuse=%v: repeated search differs (-first +second):\n%s", reuse, diff)
		}
		if diff := cmp.Diff([]string{"A", "B", "D", "E"}, second); diff != "" {
			t.Errorf("reuse=%v: path mismatch (-want +got):\n%s", reuse, diff)
		}
	}
}

func TestFindPathReusesBuffer(t *testing.T) {
	g := diamond()
	search := New[string](g, DefaultPolicy())
	buf := make([]string, 0, 8)

	path, status := search.FindPath("A", "D", &testFilter{g: g}, buf)
	if status != SearchSuccess {
		t.Fatalf("expected success, got %v", status)
	}
	if &path[:cap(path)][0] != &buf[:cap(buf)][0] {
		t.Error("a buffer with enough capacity should be reused")
	}
}

func TestStatusString(t *testing.T) {
	if SearchSuccess.String() != "search_success" || InfiniteLoop.String() != "infinite_loop" {
		t.Errorf("unexpected status names: %s, %s", SearchSuccess, InfiniteLoop)
	}
	if Status(99).String() != "unknown" {
		t.Errorf("out of range status should be unknown")
	}

	for s := SearchFail; s <= SearchLimitReached; s++ {
		text, _ := s.MarshalText()
		var back Status
		if err := back.UnmarshalText(text); err != nil || back != s {
			t.Errorf("%s: text round trip gave %v (%v)", s, back, err)
		}
	}
	var s Status
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("unknown names must be rejected")
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy must be valid: %v", err)
	}
	bad := DefaultPolicy()
	bad.FatalPathLength = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero fatal path length must be rejected")
	}
	bad = DefaultPolicy()
	bad.MaxSearchNodes = -1
	if err := bad.Validate(); err == nil {
		t.Error("negative max search nodes must be rejected")
	}
}
