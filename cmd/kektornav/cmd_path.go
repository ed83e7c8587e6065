package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sanonone/kektornav/pkg/core/astar"
	"github.com/sanonone/kektornav/pkg/core/navgraph"
	"github.com/spf13/cobra"
)

var pathFlags struct {
	heuristic string
	scale     float64
	exclude   []uint
	partial   bool
	maxNodes  int
	json      bool
}

// pathOutput is the --json form of a search result.
type pathOutput struct {
	Status   astar.Status `json:"status"`
	Path     []string     `json:"path"`
	Cost     float64      `json:"cost"`
	Expanded int          `json:"expanded"`
}

func runPath(cmd *cobra.Command, args []string) error {
	docPath, startID, endID := args[0], args[1], args[2]

	doc, err := navgraph.LoadDocumentFile(docPath)
	if err != nil {
		return err
	}
	g, err := doc.Build()
	if err != nil {
		return fmt.Errorf("invalid graph document %s: %w", docPath, err)
	}
	start, err := g.Lookup(startID)
	if err != nil {
		return err
	}
	end, err := g.Lookup(endID)
	if err != nil {
		return err
	}

	kind, err := navgraph.ParseHeuristic(pathFlags.heuristic, navgraph.HeuristicEuclidean)
	if err != nil {
		return err
	}
	filter := &navgraph.Filter{
		Graph:     g,
		Heuristic: kind,
		Scale:     pathFlags.scale,
		Partial:   pathFlags.partial,
	}
	for _, area := range pathFlags.exclude {
		if area > navgraph.MaxArea {
			return fmt.Errorf("%w: %d", navgraph.ErrInvalidArea, area)
		}
		filter.ExcludedAreas |= 1 << area
	}

	policy := astar.DefaultPolicy()
	policy.MaxSearchNodes = pathFlags.maxNodes
	search := astar.New[uint32](g, policy)
	refs, status := search.FindPath(start, end, filter, nil)

	out := pathOutput{Status: status, Path: make([]string, len(refs)), Expanded: search.Stats().Expanded}
	for i, ref := range refs {
		out.Path[i] = g.ExternalID(ref)
		if i > 0 {
			out.Cost += filter.TraversalCost(refs[i-1], ref)
		}
	}

	w := cmd.OutOrStdout()
	if pathFlags.json {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}
	if len(out.Path) == 0 {
		fmt.Fprintf(w, "%s: no path from %s to %s\n", status, startID, endID)
		return nil
	}
	fmt.Fprintf(w, "%s: %s (cost %.3f, %d nodes expanded)\n", status, strings.Join(out.Path, " -> "), out.Cost, out.Expanded)
	return nil
}
