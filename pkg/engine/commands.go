package engine

// AOF command names.
const (
	opCreateGraph = "create_graph"
	opDropGraph   = "drop_graph"
	opAddNode     = "add_node"
	opRemoveNode  = "remove_node"
	opLink        = "link"
	opUnlink      = "unlink"
	opCreateGrid  = "create_grid"
	opDropGrid    = "drop_grid"
	opSetCell     = "set_cell"
)

type createGraphArgs struct {
	Graph     string `json:"graph"`
	Dimension int    `json:"dimension"`
}

type nameArgs struct {
	Name string `json:"name"`
}

type addNodeArgs struct {
	Graph string    `json:"graph"`
	ID    string    `json:"id"`
	Pos   []float64 `json:"pos,omitempty"`
	Area  uint8     `json:"area,omitempty"`
}

type removeNodeArgs struct {
	Graph string `json:"graph"`
	ID    string `json:"id"`
}

type linkArgs struct {
	Graph         string  `json:"graph"`
	Src           string  `json:"src"`
	Dst           string  `json:"dst"`
	Cost          float32 `json:"cost,omitempty"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

type createGridArgs struct {
	Grid     string `json:"grid"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Diagonal bool   `json:"diagonal,omitempty"`
}

type setCellArgs struct {
	Grid string     `json:"grid"`
	Cell CellUpdate `json:"cell"`
}
