package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sanonone/kektornav/pkg/core/astar"
)

const testDocument = `
name: campus
nodes:
  - {id: gate, pos: [0, 0]}
  - {id: hall, pos: [0, 3]}
  - {id: lab, pos: [4, 3], area: 2}
  - {id: park, pos: [4, 0]}
  - {id: roof, pos: [9, 9]}
edges:
  - {from: gate, to: hall, bidirectional: true}
  - {from: hall, to: lab, bidirectional: true}
  - {from: gate, to: park, cost: 10, bidirectional: true}
  - {from: park, to: lab, bidirectional: true}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	pathFlags = struct {
		heuristic string
		scale     float64
		exclude   []uint
		partial   bool
		maxNodes  int
		json      bool
	}{}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campus.yaml")
	if err := os.WriteFile(path, []byte(testDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPathCommand(t *testing.T) {
	doc := writeDocument(t)

	out, err := execute(t, "path", doc, "gate", "lab")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "gate -> hall -> lab (cost 7.000") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = execute(t, "path", doc, "gate", "roof", "--partial", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var res pathOutput
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if res.Status != astar.GoalUnreachable || len(res.Path) == 0 {
		t.Errorf("expected a partial unreachable result, got %+v", res)
	}

	if _, err := execute(t, "path", doc, "gate", "nowhere"); err == nil {
		t.Error("unknown end node must fail")
	}
	if _, err := execute(t, "path", doc, "gate", "lab", "--heuristic", "bogus"); err == nil {
		t.Error("unknown heuristic must fail")
	}
}

func TestPathCommandExcludedArea(t *testing.T) {
	doc := writeDocument(t)
	out, err := execute(t, "path", doc, "gate", "lab", "--exclude-area", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no path from gate to lab") {
		t.Errorf("an excluded goal area must block the path, got %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "kektornav "+version {
		t.Errorf("unexpected version output %q", out)
	}
}
