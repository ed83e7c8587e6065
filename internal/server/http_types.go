package server

import "github.com/sanonone/kektornav/pkg/engine"

// CreateGraphRequest defines the body for graph creation.
type CreateGraphRequest struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
}

// AddNodeRequest defines the body for adding or updating a waypoint.
type AddNodeRequest struct {
	ID   string    `json:"id"`
	Pos  []float64 `json:"pos,omitempty"`
	Area uint8     `json:"area,omitempty"`
}

// LinkRequest defines the body for linking and unlinking waypoints.
// Cost is ignored by unlink.
type LinkRequest struct {
	Src           string  `json:"src"`
	Dst           string  `json:"dst"`
	Cost          float32 `json:"cost,omitempty"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

// ImportRequest defines the body for an asynchronous graph import. Exactly
// one of Document (inline YAML) and Path (a file readable by the server)
// must be set.
type ImportRequest struct {
	Document string `json:"document,omitempty"`
	Path     string `json:"path,omitempty"`
	Replace  bool   `json:"replace,omitempty"`
}

// CreateGridRequest defines the body for grid creation.
type CreateGridRequest struct {
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Diagonal bool   `json:"diagonal,omitempty"`
}

// SetCellsRequest updates grid cells in order.
type SetCellsRequest struct {
	Cells []engine.CellUpdate `json:"cells"`
}

// ListNodesResponse wraps the node listing.
type ListNodesResponse struct {
	Nodes []engine.NodeInfo `json:"nodes"`
}
