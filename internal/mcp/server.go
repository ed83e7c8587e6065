package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/kektornav/pkg/engine"
)

func NewMCPServer(eng *engine.Engine, version string) *mcp.Server {
	service := NewService(eng)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "KektorNav",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "find_path",
		Description: "Find the cheapest route between two waypoints of a navigation graph (A* search).",
	}, service.FindPath)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "find_grid_path",
		Description: "Find the cheapest route between two cells of a tile grid, avoiding blocked cells.",
	}, service.FindGridPath)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "add_waypoint",
		Description: "Add or move a waypoint. The graph is created if it does not exist yet.",
	}, service.AddWaypoint)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "link_waypoints",
		Description: "Connect two waypoints so paths can travel between them.",
	}, service.LinkWaypoints)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_graphs",
		Description: "List the navigation graphs and grids with their sizes.",
	}, service.ListGraphs)

	return s
}
