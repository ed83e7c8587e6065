package navgraph

import (
	"fmt"
	"math"

	"github.com/x448/float16"
)

// MaxCellCost is the largest terrain multiplier representable in half
// precision.
const MaxCellCost = 65504

var (
	orthogonalSteps = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalSteps   = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

	oneF16 = float16.Fromfloat32(1).Bits()
)

// Grid is a rectangular tile graph. A cell's reference is y*width + x.
// Blocked cells are not valid references. Each cell carries a terrain cost
// multiplier (>= 1) stored in half precision.
//
// Grid implements astar.Graph[uint32]. Every cell reports the full step set
// as neighbours; steps leaving the grid, entering a blocked cell or cutting a
// blocked corner come back as InvalidNode and are skipped by the search.
type Grid struct {
	width    int
	height   int
	diagonal bool
	blocked  *BitSet
	costs    []uint16
}

// NewGrid creates a width x height grid with every cell open and cost 1.
// With diagonal set, cells connect to their 8 neighbours instead of 4.
func NewGrid(width, height int, diagonal bool) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidSize, width, height)
	}
	if uint64(width)*uint64(height) >= uint64(InvalidNode) {
		return nil, fmt.Errorf("%w: %dx%d is too large", ErrInvalidSize, width, height)
	}
	cells := width * height
	costs := make([]uint16, cells)
	for i := range costs {
		costs[i] = oneF16
	}
	return &Grid{
		width:    width,
		height:   height,
		diagonal: diagonal,
		blocked:  NewBitSet(uint32(cells)),
		costs:    costs,
	}, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Diagonal reports whether diagonal steps are allowed.
func (g *Grid) Diagonal() bool { return g.diagonal }

// BlockedCount returns the number of blocked cells.
func (g *Grid) BlockedCount() int { return g.blocked.Count() }

// Ref returns the reference of cell (x, y), or InvalidNode when out of
// bounds.
func (g *Grid) Ref(x, y int) uint32 {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return InvalidNode
	}
	return uint32(y*g.width + x)
}

// Coords returns the column and row of ref.
func (g *Grid) Coords(ref uint32) (x, y int) {
	return int(ref) % g.width, int(ref) / g.width
}

func (g *Grid) inBounds(ref uint32) bool {
	return ref < uint32(g.width*g.height)
}

// SetBlocked marks cell (x, y) as blocked or open.
func (g *Grid) SetBlocked(x, y int, blocked bool) error {
	ref := g.Ref(x, y)
	if ref == InvalidNode {
		return fmt.Errorf("%w: (%d,%d) is outside the %dx%d grid", ErrOutOfBounds, x, y, g.width, g.height)
	}
	if blocked {
		g.blocked.Add(ref)
	} else {
		g.blocked.Remove(ref)
	}
	return nil
}

// Blocked reports whether cell (x, y) is blocked. Cells outside the grid
// count as blocked.
func (g *Grid) Blocked(x, y int) bool {
	ref := g.Ref(x, y)
	return ref == InvalidNode || g.blocked.Has(ref)
}

// SetCost sets the terrain multiplier of cell (x, y). Costs below 1 would
// make the distance heuristics overestimate and are rejected.
func (g *Grid) SetCost(x, y int, cost float64) error {
	if math.IsNaN(cost) || cost < 1 || cost > MaxCellCost {
		return fmt.Errorf("%w: cell cost must be in [1, %d], got %v", ErrInvalidCost, MaxCellCost, cost)
	}
	ref := g.Ref(x, y)
	if ref == InvalidNode {
		return fmt.Errorf("%w: (%d,%d) is outside the %dx%d grid", ErrOutOfBounds, x, y, g.width, g.height)
	}
	g.costs[ref] = float16.Fromfloat32(float32(cost)).Bits()
	return nil
}

// CellCost returns the terrain multiplier of ref.
func (g *Grid) CellCost(ref uint32) float64 {
	if !g.inBounds(ref) {
		return math.Inf(1)
	}
	return float64(float16.Frombits(g.costs[ref]).Float32())
}

func (g *Grid) steps() [][2]int {
	if g.diagonal {
		return diagonalSteps
	}
	return orthogonalSteps
}

// --- astar.Graph[uint32] ---

// NeighbourCount returns the size of the step set.
func (g *Grid) NeighbourCount(ref uint32) int {
	if !g.IsValidRef(ref) {
		return 0
	}
	return len(g.steps())
}

// Neighbour returns the cell reached by step i from ref, or InvalidNode when
// that step is not possible.
func (g *Grid) Neighbour(ref uint32, i int) uint32 {
	x, y := g.Coords(ref)
	step := g.steps()[i]
	nx, ny := x+step[0], y+step[1]
	if g.Blocked(nx, ny) {
		return InvalidNode
	}
	if step[0] != 0 && step[1] != 0 {
		// Diagonal steps must not clip a blocked corner.
		if g.Blocked(x+step[0], y) || g.Blocked(x, y+step[1]) {
			return InvalidNode
		}
	}
	return g.Ref(nx, ny)
}

// IsValidRef reports whether ref is an open cell of the grid.
func (g *Grid) IsValidRef(ref uint32) bool {
	return g.inBounds(ref) && !g.blocked.Has(ref)
}

// Cells calls fn for every cell that is blocked or has a non-default cost,
// in reference order, until fn returns false.
func (g *Grid) Cells(fn func(x, y int, blocked bool, cost float64) bool) {
	for i := range g.costs {
		ref := uint32(i)
		blocked := g.blocked.Has(ref)
		if !blocked && g.costs[i] == oneF16 {
			continue
		}
		x, y := g.Coords(ref)
		if !fn(x, y, blocked, g.CellCost(ref)) {
			return
		}
	}
}
