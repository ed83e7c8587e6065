package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/kektornav/pkg/core/navgraph"
	"github.com/sanonone/kektornav/pkg/engine"
)

type Service struct {
	engine *engine.Engine
}

func NewService(eng *engine.Engine) *Service {
	return &Service{engine: eng}
}

// ensureGraph creates the graph on first use with the dimension of the
// first waypoint.
func (s *Service) ensureGraph(name string, dimension int) error {
	err := s.engine.CreateGraph(name, dimension)
	if err != nil && !errors.Is(err, engine.ErrGraphExists) {
		return err
	}
	return nil
}

// --- Tool Handlers ---

func (s *Service) FindPath(ctx context.Context, req *mcp.CallToolRequest, args FindPathArgs) (*mcp.CallToolResult, FindPathResult, error) {
	q := engine.PathQuery{
		Start:     args.Start,
		End:       args.End,
		Heuristic: args.Heuristic,
		Partial:   args.Partial,
	}
	for _, area := range args.ExcludedAreas {
		if area < 0 || area > navgraph.MaxArea {
			return nil, FindPathResult{}, fmt.Errorf("%w: %d", navgraph.ErrInvalidArea, area)
		}
		q.ExcludedAreas = append(q.ExcludedAreas, uint8(area))
	}
	res, err := s.engine.FindPath(ctx, args.Graph, q)
	if err != nil {
		return nil, FindPathResult{}, err
	}

	out := FindPathResult{
		Status:   res.Status.String(),
		Path:     res.Path,
		Cost:     res.Cost,
		Expanded: res.Expanded,
	}
	if len(res.Path) == 0 {
		out.Summary = fmt.Sprintf("No path from %s to %s (%s).", args.Start, args.End, out.Status)
	} else {
		out.Summary = fmt.Sprintf("%s (cost %.2f)", strings.Join(res.Path, " -> "), res.Cost)
	}
	return nil, out, nil
}

func (s *Service) FindGridPath(ctx context.Context, req *mcp.CallToolRequest, args FindGridPathArgs) (*mcp.CallToolResult, FindGridPathResult, error) {
	res, err := s.engine.FindGridPath(ctx, args.Grid, engine.GridQuery{
		Start:   engine.Cell{args.StartX, args.StartY},
		End:     engine.Cell{args.EndX, args.EndY},
		Partial: args.Partial,
	})
	if err != nil {
		return nil, FindGridPathResult{}, err
	}
	return nil, FindGridPathResult{Status: res.Status.String(), Path: res.Path, Cost: res.Cost}, nil
}

func (s *Service) AddWaypoint(ctx context.Context, req *mcp.CallToolRequest, args AddWaypointArgs) (*mcp.CallToolResult, AddWaypointResult, error) {
	if err := s.ensureGraph(args.Graph, len(args.Pos)); err != nil {
		return nil, AddWaypointResult{}, err
	}
	if err := s.engine.AddNode(args.Graph, args.ID, args.Pos, args.Area); err != nil {
		return nil, AddWaypointResult{}, err
	}
	return nil, AddWaypointResult{ID: args.ID, Status: "saved"}, nil
}

func (s *Service) LinkWaypoints(ctx context.Context, req *mcp.CallToolRequest, args LinkWaypointsArgs) (*mcp.CallToolResult, LinkWaypointsResult, error) {
	if err := s.engine.Link(args.Graph, args.From, args.To, args.Cost, args.Bidirectional); err != nil {
		return nil, LinkWaypointsResult{}, err
	}
	return nil, LinkWaypointsResult{Status: "linked"}, nil
}

func (s *Service) ListGraphs(ctx context.Context, req *mcp.CallToolRequest, args ListGraphsArgs) (*mcp.CallToolResult, ListGraphsResult, error) {
	return nil, ListGraphsResult{
		Graphs: s.engine.ListGraphs(),
		Grids:  s.engine.ListGrids(),
	}, nil
}
