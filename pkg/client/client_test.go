package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sanonone/kektornav/internal/server"
	"github.com/sanonone/kektornav/pkg/engine"
)

const testToken = "client-test-token"

// newTestClient serves a real engine behind httptest.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	eng, err := engine.Open(engine.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	cfg := server.DefaultConfig()
	cfg.AuthToken = testToken
	s, err := server.NewServer(eng, cfg)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return NewWithBaseURL(ts.URL, testToken)
}

func TestClientGraphs(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.CreateGraph("city", 2); err != nil {
		t.Fatalf("CreateGraph failed: %v", err)
	}
	for _, n := range []struct {
		id  string
		pos []float64
	}{
		{"a", []float64{0, 0}},
		{"b", []float64{0, 3}},
		{"c", []float64{4, 3}},
		{"d", []float64{4, 0}},
	} {
		if _, err := client.AddNode("city", n.id, n.pos, 0); err != nil {
			t.Fatalf("AddNode(%s) failed: %v", n.id, err)
		}
	}
	for _, l := range [][2]string{{"a", "b"}, {"b", "c"}, {"a", "d"}, {"d", "c"}} {
		if err := client.Link("city", l[0], l[1], 0, true); err != nil {
			t.Fatalf("Link failed: %v", err)
		}
	}
	// The a-d-c side is the cheaper route.
	if err := client.Link("city", "a", "b", 10, true); err != nil {
		t.Fatal(err)
	}

	res, err := client.FindPath("city", PathQuery{Start: "a", End: "c"})
	if err != nil {
		t.Fatalf("FindPath failed: %v", err)
	}
	if res.Status != "search_success" || res.Cost != 7 {
		t.Errorf("unexpected result %+v", res)
	}
	if diff := cmp.Diff([]string{"a", "d", "c"}, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}

	node, err := client.GetNode("city", "a")
	if err != nil {
		t.Fatal(err)
	}
	want := []Edge{{To: "b", Cost: 10}, {To: "d", Cost: 4}}
	if diff := cmp.Diff(want, node.Edges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}

	nodes, err := client.ListNodes("city", "", 3)
	if err != nil || len(nodes) != 3 {
		t.Errorf("ListNodes returned %d nodes, %v", len(nodes), err)
	}

	if err := client.Unlink("city", "a", "d", true); err != nil {
		t.Fatal(err)
	}
	if err := client.RemoveNode("city", "b"); err != nil {
		t.Fatal(err)
	}
	res, _ = client.FindPath("city", PathQuery{Start: "a", End: "c"})
	if len(res.Path) != 0 {
		t.Errorf("a is isolated, got path %v", res.Path)
	}

	info, err := client.GetGraph("city")
	if err != nil || info.Nodes != 3 || info.Edges != 2 {
		t.Errorf("unexpected graph info %+v, %v", info, err)
	}
	if err := client.DropGraph("city"); err != nil {
		t.Fatal(err)
	}
	graphs, _ := client.ListGraphs()
	if len(graphs) != 0 {
		t.Errorf("expected no graphs, got %v", graphs)
	}
}

func TestClientAPIError(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetGraph("missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Message == "" {
		t.Errorf("expected a 404 APIError, got %v", err)
	}

	unauthorized := NewWithBaseURL(client.baseURL, "")
	if _, err := unauthorized.ListGraphs(); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected a 401 APIError, got %v", err)
	}
}

func TestClientImportWait(t *testing.T) {
	client := newTestClient(t)

	doc := "name: line\nnodes:\n  - {id: a, pos: [0]}\n  - {id: b, pos: [2]}\nedges:\n  - {from: a, to: b}\n"
	task, err := client.ImportGraph(doc, false)
	if err != nil {
		t.Fatalf("ImportGraph failed: %v", err)
	}
	if err := task.Wait(10*time.Millisecond, 5*time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(task.Result) == 0 {
		t.Error("completed import should carry a result")
	}

	task, err = client.ImportGraph(doc, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := task.Wait(10*time.Millisecond, 5*time.Second); err == nil {
		t.Error("importing over an existing graph without replace must fail")
	}

	if err := client.AOFRewrite(); err != nil {
		t.Errorf("AOFRewrite failed: %v", err)
	}
}

func TestClientGrids(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.CreateGrid("maze", 4, 4, false); err != nil {
		t.Fatal(err)
	}
	info, err := client.SetCells("maze", []CellUpdate{
		{X: 1, Y: 0, Blocked: true},
		{X: 1, Y: 1, Blocked: true},
		{X: 1, Y: 2, Blocked: true},
	})
	if err != nil || info.Blocked != 3 {
		t.Fatalf("SetCells: %+v, %v", info, err)
	}

	res, err := client.FindGridPath("maze", GridQuery{Start: Cell{0, 0}, End: Cell{2, 0}})
	if err != nil {
		t.Fatal(err)
	}
	// Down column 0, across row 3, up column 2.
	if res.Cost != 8 || len(res.Path) != 9 {
		t.Errorf("unexpected grid path %+v", res)
	}

	if _, err := client.CreateGrid("maze", 2, 2, false); err == nil {
		t.Error("duplicate grid must fail")
	}
	grids, _ := client.ListGrids()
	if len(grids) != 1 {
		t.Errorf("expected one grid, got %v", grids)
	}
	if err := client.DropGrid("maze"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetGrid("maze"); err == nil {
		t.Error("dropped grid must not be found")
	}
}
