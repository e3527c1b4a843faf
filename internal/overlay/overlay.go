package overlay

import "github.com/playmatatu/arcade/internal/trajectory"

// Style names how a client should render a line, ghost or highlight.
type Style string

const (
	StyleGuide     Style = "guide"
	StyleGuideDash Style = "guide_dashed"
	StyleTarget    Style = "target_solid"
	StyleDeflect   Style = "deflect"
	StyleGhost     Style = "ghost"
	StylePocketHit Style = "pocket_green"
)

// Line is one pooled polyline slot.
type Line struct {
	Points  []trajectory.Vec2 `json:"points"`
	Style   Style             `json:"style"`
	visible bool
}

// Ghost is one pooled preview marker slot.
type Ghost struct {
	Position trajectory.Vec2 `json:"position"`
	Radius   float64         `json:"radius"`
	Style    Style           `json:"style"`
	visible  bool
}

// Highlight marks an external object (a pocket, a grid cell) by ID.
type Highlight struct {
	ID    string `json:"id"`
	Style Style  `json:"style"`
}

// Snapshot is the visible part of the pool for one frame.
type Snapshot struct {
	Lines      []Line      `json:"lines"`
	Ghosts     []Ghost     `json:"ghosts"`
	Highlights []Highlight `json:"highlights"`
}

// AimAssist is a frame-scoped pool of guide lines and ghost markers. Slots
// are reused across frames so a client aiming every frame does not grow the
// pool past its peak usage. An AimAssist must not be shared between
// goroutines.
type AimAssist struct {
	lines        []*Line
	ghosts       []*Ghost
	highlights   []Highlight
	activeLines  int
	activeGhosts int
	visible      bool
}

func New() *AimAssist {
	return &AimAssist{}
}

// BeginFrame hides every slot and makes the pool visible again.
func (a *AimAssist) BeginFrame() {
	a.visible = true
	a.activeLines, a.activeGhosts = 0, 0
	for _, l := range a.lines {
		l.visible = false
	}
	for _, g := range a.ghosts {
		g.visible = false
	}
	a.highlights = a.highlights[:0]
}

// DrawLine claims the next line slot. The points are copied into the slot's
// own backing array.
func (a *AimAssist) DrawLine(points []trajectory.Vec2, style Style) *Line {
	var line *Line
	if a.activeLines < len(a.lines) {
		line = a.lines[a.activeLines]
	} else {
		line = &Line{}
		a.lines = append(a.lines, line)
	}
	line.Points = append(line.Points[:0], points...)
	line.Style = style
	line.visible = true
	a.activeLines++
	return line
}

// DrawGhost claims the next ghost slot.
func (a *AimAssist) DrawGhost(pos trajectory.Vec2, radius float64, style Style) *Ghost {
	var ghost *Ghost
	if a.activeGhosts < len(a.ghosts) {
		ghost = a.ghosts[a.activeGhosts]
	} else {
		ghost = &Ghost{}
		a.ghosts = append(a.ghosts, ghost)
	}
	ghost.Position = pos
	ghost.Radius = radius
	ghost.Style = style
	ghost.visible = true
	a.activeGhosts++
	return ghost
}

func (a *AimAssist) Highlight(id string, style Style) {
	a.highlights = append(a.highlights, Highlight{ID: id, Style: style})
}

// Clear hides the whole pool until the next BeginFrame.
func (a *AimAssist) Clear() {
	a.BeginFrame()
	a.visible = false
}

// PoolSize reports how many line and ghost slots have been allocated.
func (a *AimAssist) PoolSize() (lines, ghosts int) {
	return len(a.lines), len(a.ghosts)
}

// Frame copies the visible slots into a Snapshot safe to hand to another
// goroutine.
func (a *AimAssist) Frame() Snapshot {
	snap := Snapshot{
		Lines:      []Line{},
		Ghosts:     []Ghost{},
		Highlights: []Highlight{},
	}
	if !a.visible {
		return snap
	}
	for _, l := range a.lines[:a.activeLines] {
		pts := make([]trajectory.Vec2, len(l.Points))
		copy(pts, l.Points)
		snap.Lines = append(snap.Lines, Line{Points: pts, Style: l.Style})
	}
	for _, g := range a.ghosts[:a.activeGhosts] {
		snap.Ghosts = append(snap.Ghosts, Ghost{Position: g.Position, Radius: g.Radius, Style: g.Style})
	}
	snap.Highlights = append(snap.Highlights, a.highlights...)
	return snap
}
