package engine

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/sanonone/kektornav/pkg/core/astar"
	"github.com/sanonone/kektornav/pkg/core/navgraph"
)

// GridInfo summarizes a tile grid.
type GridInfo struct {
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Diagonal bool   `json:"diagonal"`
	Blocked  int    `json:"blocked"`
}

// CellUpdate sets the state of one grid cell. A zero Cost means 1.
type CellUpdate struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Blocked bool    `json:"blocked,omitempty"`
	Cost    float64 `json:"cost,omitempty"`
}

type gridEntry struct {
	name     string
	mu       sync.RWMutex
	grid     *navgraph.Grid
	searches sync.Pool
}

func newGridEntry(name string, g *navgraph.Grid, policy astar.Policy) *gridEntry {
	entry := &gridEntry{name: name, grid: g}
	entry.searches.New = func() any {
		return astar.New[uint32](g, policy)
	}
	return entry
}

func (ge *gridEntry) info() GridInfo {
	return GridInfo{
		Name:     ge.name,
		Width:    ge.grid.Width(),
		Height:   ge.grid.Height(),
		Diagonal: ge.grid.Diagonal(),
		Blocked:  ge.grid.BlockedCount(),
	}
}

func (e *Engine) getGrid(name string) (*gridEntry, error) {
	ge, ok := e.grids[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGridNotFound, name)
	}
	return ge, nil
}

// CreateGrid registers a width x height grid with every cell open.
func (e *Engine) CreateGrid(name string, width, height int, diagonal bool) error {
	if err := validName(name); err != nil {
		return err
	}
	grid, err := navgraph.NewGrid(width, height, diagonal)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isClosed() {
		return ErrClosed
	}
	if _, exists := e.grids[name]; exists {
		return fmt.Errorf("%w: grid %q", ErrGraphExists, name)
	}
	e.grids[name] = newGridEntry(name, grid, e.opts.Policy)
	e.updateGraphGauges()
	return e.logCommand(opCreateGrid, createGridArgs{Grid: name, Width: width, Height: height, Diagonal: diagonal})
}

// DropGrid deletes a grid.
func (e *Engine) DropGrid(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isClosed() {
		return ErrClosed
	}
	if _, err := e.getGrid(name); err != nil {
		return err
	}
	delete(e.grids, name)
	e.updateGraphGauges()
	return e.logCommand(opDropGrid, nameArgs{Name: name})
}

// SetCell updates one cell of a grid.
func (e *Engine) SetCell(name string, cell CellUpdate) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.isClosed() {
		return ErrClosed
	}
	ge, err := e.getGrid(name)
	if err != nil {
		return err
	}
	ge.mu.Lock()
	defer ge.mu.Unlock()

	cost := cell.Cost
	if cost == 0 {
		cost = 1
	}
	// Validate the cost before touching the blocked flag so a bad update
	// changes nothing.
	if err := ge.grid.SetCost(cell.X, cell.Y, cost); err != nil {
		return err
	}
	if err := ge.grid.SetBlocked(cell.X, cell.Y, cell.Blocked); err != nil {
		return err
	}
	return e.logCommand(opSetCell, setCellArgs{Grid: name, Cell: cell})
}

// GridInfo returns the summary of one grid.
func (e *Engine) GridInfo(name string) (GridInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ge, err := e.getGrid(name)
	if err != nil {
		return GridInfo{}, err
	}
	ge.mu.RLock()
	defer ge.mu.RUnlock()
	return ge.info(), nil
}

// ListGrids returns a summary of every grid, ordered by name.
func (e *Engine) ListGrids() []GridInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]GridInfo, 0, len(e.grids))
	for _, ge := range e.grids {
		ge.mu.RLock()
		out = append(out, ge.info())
		ge.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b GridInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// emitGrid describes the current state of a grid as AOF commands.
func emitGrid(ge *gridEntry, emit func(op string, args any) error) error {
	g := ge.grid
	err := emit(opCreateGrid, createGridArgs{
		Grid:     ge.name,
		Width:    g.Width(),
		Height:   g.Height(),
		Diagonal: g.Diagonal(),
	})
	if err != nil {
		return err
	}
	g.Cells(func(x, y int, blocked bool, cost float64) bool {
		err = emit(opSetCell, setCellArgs{Grid: ge.name, Cell: CellUpdate{X: x, Y: y, Blocked: blocked, Cost: cost}})
		return err == nil
	})
	return err
}
