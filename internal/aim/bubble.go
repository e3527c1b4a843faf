package aim

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/playmatatu/arcade/internal/overlay"
	"github.com/playmatatu/arcade/internal/trajectory"
)

const (
	sideWallInset = 0.7
	topWallInset  = 0.75
	// Misses that end within this distance of the top wall snap into the
	// grid.
	topLandingBand = 1.5
	stepScale      = 1.5
)

var ErrCellOutOfRange = errors.New("cell outside the board")

// Board holds the hex bubble grid geometry.
type Board struct {
	GridW          int             `yaml:"grid_w" json:"grid_w"`
	GridH          int             `yaml:"grid_h" json:"grid_h"`
	HexSize        float64         `yaml:"hex_size" json:"hex_size"`
	HexRadius      float64         `yaml:"hex_radius" json:"hex_radius"`
	YSpacing       float64         `yaml:"y_spacing" json:"y_spacing"`
	HitRadiusScale float64         `yaml:"hit_radius_scale" json:"hit_radius_scale"`
	Cannon         trajectory.Vec2 `yaml:"cannon" json:"cannon"`
	FloorY         float64         `yaml:"floor_y" json:"floor_y"`
	MaxSteps       int             `yaml:"max_steps" json:"max_steps"`
}

// DefaultBoard returns the 11x15 bubble board with the cannon below it.
func DefaultBoard() Board {
	return Board{
		GridW:          11,
		GridH:          15,
		HexSize:        1,
		HexRadius:      0.58,
		YSpacing:       0.866,
		HitRadiusScale: 0.85,
		Cannon:         trajectory.NewVec2(5, -2),
		FloorY:         -100,
		MaxSteps:       trajectory.DefaultMaxSteps,
	}
}

func (b Board) WallLeft() float64  { return -sideWallInset }
func (b Board) WallRight() float64 { return float64(b.GridW-1) + sideWallInset }
func (b Board) WallTop() float64   { return float64(b.GridH-1)*b.YSpacing + topWallInset }

func (b Board) Bounds() trajectory.Bounds {
	return trajectory.Bounds{XMin: b.WallLeft(), XMax: b.WallRight(), YMin: b.FloorY, YMax: b.WallTop()}
}

// Cell addresses one slot of the hex grid. Odd rows are shifted half a cell
// right and hold one fewer bubble.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Grid is the set of occupied cells on a board. RowOffset flips row parity
// as new rows are pushed in from the top.
type Grid struct {
	board     Board
	rowOffset int
	occupied  map[Cell]struct{}
}

// NewGrid builds a grid from the occupied cells. Every cell must fit the
// board for its row parity.
func (b Board) NewGrid(rowOffset int, occupied []Cell) (*Grid, error) {
	g := &Grid{board: b, rowOffset: rowOffset, occupied: make(map[Cell]struct{}, len(occupied))}
	for _, c := range occupied {
		if !g.InRange(c) {
			return nil, fmt.Errorf("%w: %s", ErrCellOutOfRange, c)
		}
		g.occupied[c] = struct{}{}
	}
	return g, nil
}

func (g *Grid) RowOffset() int { return g.rowOffset }

func (g *Grid) IsRowOdd(y int) bool {
	return (y+g.rowOffset)%2 != 0
}

// rowWidth is the number of cells in row y.
func (g *Grid) rowWidth(y int) int {
	if g.IsRowOdd(y) {
		return g.board.GridW - 1
	}
	return g.board.GridW
}

func (g *Grid) InRange(c Cell) bool {
	return c.Y >= 0 && c.Y < g.board.GridH && c.X >= 0 && c.X < g.rowWidth(c.Y)
}

func (g *Grid) Occupied(c Cell) bool {
	_, ok := g.occupied[c]
	return ok
}

// Cells returns the occupied cells ordered by column, then row.
func (g *Grid) Cells() []Cell {
	cells := make([]Cell, 0, len(g.occupied))
	for c := range g.occupied {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X != cells[j].X {
			return cells[i].X < cells[j].X
		}
		return cells[i].Y < cells[j].Y
	})
	return cells
}

func (g *Grid) GridToWorld(c Cell) trajectory.Vec2 {
	x := float64(c.X)
	if g.IsRowOdd(c.Y) {
		x += 0.5
	}
	return trajectory.NewVec2(x*g.board.HexSize, float64(c.Y)*g.board.YSpacing)
}

// WorldToGrid snaps p to the nearest cell, clamped onto the board.
func (g *Grid) WorldToGrid(p trajectory.Vec2) Cell {
	gy := clampInt(roundHalfUp(p.Y/g.board.YSpacing), 0, g.board.GridH-1)
	fx := p.X / g.board.HexSize
	if g.IsRowOdd(gy) {
		fx -= 0.5
	}
	return Cell{X: clampInt(roundHalfUp(fx), 0, g.rowWidth(gy)-1), Y: gy}
}

// Neighbors returns the in-range hex neighbours of c.
func (g *Grid) Neighbors(c Cell) []Cell {
	dx := -1
	if g.IsRowOdd(c.Y) {
		dx = 1
	}
	offsets := [6][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {dx, 1}, {dx, -1}}

	out := make([]Cell, 0, len(offsets))
	for _, o := range offsets {
		n := Cell{X: c.X + o[0], Y: c.Y + o[1]}
		if g.InRange(n) {
			out = append(out, n)
		}
	}
	return out
}

// FindEmptyNeighbor returns the empty neighbour of c closest to hit.
func (g *Grid) FindEmptyNeighbor(c Cell, hit trajectory.Vec2) (Cell, bool) {
	var best Cell
	found := false
	minDist := math.Inf(1)
	for _, n := range g.Neighbors(c) {
		if g.Occupied(n) {
			continue
		}
		if d := g.GridToWorld(n).DistanceSquared(hit); d < minDist {
			minDist = d
			best = n
			found = true
		}
	}
	return best, found
}

// BubbleGuide is the predicted flight of the loaded bubble.
type BubbleGuide struct {
	Path           []trajectory.Vec2      `json:"path"`
	Reason         trajectory.Termination `json:"reason"`
	HitCell        *Cell                  `json:"hit_cell,omitempty"`
	Target         *Cell                  `json:"target,omitempty"`
	TargetPosition *trajectory.Vec2       `json:"target_position,omitempty"`
	Ghost          bool                   `json:"ghost"`
	GhostRadius    float64                `json:"ghost_radius,omitempty"`

	Result trajectory.Result `json:"-"`
}

// Guide traces a shot from the cannon toward aimTarget. It reports false
// when the aim points below the cannon.
func (b Board) Guide(g *Grid, aimTarget trajectory.Vec2) (BubbleGuide, bool) {
	start := b.Cannon
	if aimTarget.Y < start.Y {
		return BubbleGuide{}, false
	}
	d := aimTarget.Minus(start)
	if d.IsZero() {
		return BubbleGuide{}, false
	}
	vel := d.Normalize().Times(b.HexRadius * stepScale)

	cells := g.Cells()
	obstacles := make([]trajectory.Obstacle, len(cells))
	for i, c := range cells {
		obstacles[i] = trajectory.Obstacle{Position: g.GridToWorld(c), Radius: b.HexRadius, Tag: c}
	}

	res := trajectory.Simulate(start, vel, b.HexRadius, b.Bounds(), obstacles,
		trajectory.WithVariant(trajectory.VariantConstant),
		trajectory.WithHitRadiusScale(b.HitRadiusScale),
		trajectory.WithWallRestitution(1),
		trajectory.WithMaxSteps(b.MaxSteps),
	)

	guide := BubbleGuide{Path: res.Points, Reason: res.Reason, Result: res}

	var target Cell
	found := false
	if res.Hit != nil {
		hc := res.Hit.Obstacle.Tag.(Cell)
		guide.HitCell = &hc
		target, found = g.FindEmptyNeighbor(hc, res.Hit.Position)
	} else if end := res.End(); end.Y > b.WallTop()-topLandingBand {
		c := g.WorldToGrid(end)
		if !g.Occupied(c) {
			target, found = c, true
		}
	}

	if found {
		pos := g.GridToWorld(target)
		guide.Target = &target
		guide.TargetPosition = &pos
		guide.Ghost = true
		guide.GhostRadius = b.HexRadius
	}
	return guide, true
}

// Draw starts a new frame on a and renders the guide into it.
func (bg BubbleGuide) Draw(a *overlay.AimAssist) {
	a.BeginFrame()
	a.DrawLine(bg.Path, overlay.StyleGuide)
	if bg.Ghost && bg.TargetPosition != nil {
		a.DrawGhost(*bg.TargetPosition, bg.GhostRadius, overlay.StyleGhost)
	}
}

func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
