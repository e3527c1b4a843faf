package aim

import (
	"testing"

	"github.com/playmatatu/arcade/internal/overlay"
	"github.com/playmatatu/arcade/internal/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGrid(t *testing.T, b Board, rowOffset int, cells ...Cell) *Grid {
	t.Helper()
	g, err := b.NewGrid(rowOffset, cells)
	require.NoError(t, err)
	return g
}

func TestBoardWalls(t *testing.T) {
	b := DefaultBoard()

	assert.Equal(t, -0.7, b.WallLeft())
	assert.InDelta(t, 10.7, b.WallRight(), 1e-12)
	assert.InDelta(t, 14*0.866+0.75, b.WallTop(), 1e-12)
	assert.Equal(t, -100.0, b.Bounds().YMin)
}

func TestNewGridRejectsOutOfRangeCells(t *testing.T) {
	b := DefaultBoard()

	_, err := b.NewGrid(0, []Cell{{X: 10, Y: 1}})
	assert.ErrorIs(t, err, ErrCellOutOfRange)

	_, err = b.NewGrid(0, []Cell{{X: 0, Y: 15}})
	assert.ErrorIs(t, err, ErrCellOutOfRange)

	// Row 1 is even once the offset flips parity.
	_, err = b.NewGrid(1, []Cell{{X: 10, Y: 1}})
	assert.NoError(t, err)
}

func TestRowParityAndMapping(t *testing.T) {
	b := DefaultBoard()
	g := newGrid(t, b, 0)

	assert.False(t, g.IsRowOdd(0))
	assert.True(t, g.IsRowOdd(1))
	assert.Equal(t, trajectory.NewVec2(3.5, 0.866), g.GridToWorld(Cell{X: 3, Y: 1}))
	assert.Equal(t, Cell{X: 3, Y: 1}, g.WorldToGrid(trajectory.NewVec2(3.5, 0.866)))

	shifted := newGrid(t, b, 1)
	assert.True(t, shifted.IsRowOdd(0))
	assert.Equal(t, trajectory.NewVec2(3.5, 0), shifted.GridToWorld(Cell{X: 3, Y: 0}))
}

func TestWorldToGridClamps(t *testing.T) {
	g := newGrid(t, DefaultBoard(), 0)

	assert.Equal(t, Cell{X: 0, Y: 0}, g.WorldToGrid(trajectory.NewVec2(-5, -5)))
	assert.Equal(t, Cell{X: 10, Y: 14}, g.WorldToGrid(trajectory.NewVec2(100, 100)))
	// Odd rows are one cell narrower.
	assert.Equal(t, Cell{X: 9, Y: 13}, g.WorldToGrid(trajectory.NewVec2(100, 13*0.866)))
}

func TestNeighbors(t *testing.T) {
	g := newGrid(t, DefaultBoard(), 0)

	assert.Equal(t, []Cell{{X: 1, Y: 0}, {X: 0, Y: 1}}, g.Neighbors(Cell{X: 0, Y: 0}))
	assert.Equal(t,
		[]Cell{{X: 8, Y: 1}, {X: 9, Y: 2}, {X: 9, Y: 0}, {X: 10, Y: 2}, {X: 10, Y: 0}},
		g.Neighbors(Cell{X: 9, Y: 1}))
}

func TestFindEmptyNeighbor(t *testing.T) {
	b := DefaultBoard()
	g := newGrid(t, b, 0, Cell{X: 5, Y: 14}, Cell{X: 6, Y: 14})

	// Hit from the lower left of (5,14) lands in the odd row below.
	c, ok := g.FindEmptyNeighbor(Cell{X: 5, Y: 14}, trajectory.NewVec2(4.4, 11.5))
	require.True(t, ok)
	assert.Equal(t, Cell{X: 4, Y: 13}, c)

	full := newGrid(t, b, 0, Cell{X: 0, Y: 0}, Cell{X: 1, Y: 0}, Cell{X: 0, Y: 1})
	_, ok = full.FindEmptyNeighbor(Cell{X: 0, Y: 0}, trajectory.NewVec2(0, 0))
	assert.False(t, ok)
}

func TestBubbleGuideRejectsDownwardAim(t *testing.T) {
	b := DefaultBoard()
	g := newGrid(t, b, 0)

	_, ok := b.Guide(g, trajectory.NewVec2(5, -3))
	assert.False(t, ok)

	_, ok = b.Guide(g, b.Cannon)
	assert.False(t, ok)
}

func TestBubbleGuideHitSnapsToEmptyNeighbor(t *testing.T) {
	b := DefaultBoard()
	g := newGrid(t, b, 0, Cell{X: 5, Y: 14})

	guide, ok := b.Guide(g, trajectory.NewVec2(5, 10))
	require.True(t, ok)

	assert.Equal(t, trajectory.TerminatedObstacle, guide.Reason)
	require.NotNil(t, guide.HitCell)
	assert.Equal(t, Cell{X: 5, Y: 14}, *guide.HitCell)

	// Contact happens at 85% of the combined radii.
	hit := guide.Path[len(guide.Path)-1]
	assert.Equal(t, 5.0, hit.X)
	assert.InDelta(t, 14*0.866-2*0.58*0.85, hit.Y, 1e-9)

	require.True(t, guide.Ghost)
	assert.Equal(t, Cell{X: 5, Y: 13}, *guide.Target)
	assert.Equal(t, 5.5, guide.TargetPosition.X)
	assert.InDelta(t, 13*0.866, guide.TargetPosition.Y, 1e-12)
}

func TestBubbleGuideMissLandsAtTop(t *testing.T) {
	b := DefaultBoard()
	// Enough steps to reach the top wall and no further.
	b.MaxSteps = 17
	g := newGrid(t, b, 0)

	guide, ok := b.Guide(g, trajectory.NewVec2(5, 10))
	require.True(t, ok)

	assert.Nil(t, guide.HitCell)
	assert.Equal(t, trajectory.TerminatedMaxSteps, guide.Reason)
	require.True(t, guide.Ghost)
	assert.Equal(t, Cell{X: 5, Y: 14}, *guide.Target)
}

func TestBubbleGuideMissBelowBandHasNoTarget(t *testing.T) {
	b := DefaultBoard()
	b.MaxSteps = 3
	g := newGrid(t, b, 0)

	guide, ok := b.Guide(g, trajectory.NewVec2(5, 10))
	require.True(t, ok)

	assert.False(t, guide.Ghost)
	assert.Nil(t, guide.Target)
}

func TestBubbleGuideDraw(t *testing.T) {
	b := DefaultBoard()
	g := newGrid(t, b, 0, Cell{X: 5, Y: 14})
	a := overlay.New()

	guide, _ := b.Guide(g, trajectory.NewVec2(5, 10))
	guide.Draw(a)
	snap := a.Frame()

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, overlay.StyleGuide, snap.Lines[0].Style)
	require.Len(t, snap.Ghosts, 1)
	assert.Equal(t, 0.58, snap.Ghosts[0].Radius)
}
