package aim

import (
	"math"
	"strconv"

	"github.com/playmatatu/arcade/internal/overlay"
	"github.com/playmatatu/arcade/internal/trajectory"
)

const (
	maxDragDistance = 5.0
	dragPowerScale  = 0.15
	targetLineLen   = 10.0
	deflectLineLen  = 2.5
	// Final speed below which the resting cue position gets a ghost.
	restSpeed   = 0.01
	pocketInset = 0.2
)

// Table holds the billiards table geometry and physics.
type Table struct {
	Width                 float64 `yaml:"width" json:"width"`
	Height                float64 `yaml:"height" json:"height"`
	BallRadius            float64 `yaml:"ball_radius" json:"ball_radius"`
	Friction              float64 `yaml:"friction" json:"friction"`
	CushionRestitution    float64 `yaml:"cushion_restitution" json:"cushion_restitution"`
	PocketRadius          float64 `yaml:"pocket_radius" json:"pocket_radius"`
	PocketHighlightDistSq float64 `yaml:"pocket_highlight_dist_sq" json:"pocket_highlight_dist_sq"`
	MaxSteps              int     `yaml:"max_steps" json:"max_steps"`
}

// DefaultTable returns the 12x22 snooker table.
func DefaultTable() Table {
	return Table{
		Width:                 12,
		Height:                22,
		BallRadius:            0.4,
		Friction:              0.985,
		CushionRestitution:    0.8,
		PocketRadius:          0.7,
		PocketHighlightDistSq: 2.0,
		MaxSteps:              trajectory.DefaultMaxSteps,
	}
}

// Pocket is one of the six table pockets.
type Pocket struct {
	ID       int             `json:"id"`
	Position trajectory.Vec2 `json:"position"`
	Radius   float64         `json:"radius"`
}

// Ball is a ball on the table. Pocketed balls are not obstacles.
type Ball struct {
	ID       string          `json:"id"`
	Position trajectory.Vec2 `json:"position"`
	Pocketed bool            `json:"pocketed,omitempty"`
}

// SnookerGuide is everything the client draws while a shot is being aimed.
type SnookerGuide struct {
	Path          []trajectory.Vec2      `json:"path"`
	Reason        trajectory.Termination `json:"reason"`
	FinalVelocity trajectory.Vec2        `json:"final_velocity"`
	Ghost         *trajectory.Vec2       `json:"ghost,omitempty"`
	GhostRadius   float64                `json:"ghost_radius,omitempty"`
	HitBallID     string                 `json:"hit_ball_id,omitempty"`
	HitPosition   *trajectory.Vec2       `json:"hit_position,omitempty"`
	TargetLine    []trajectory.Vec2      `json:"target_line,omitempty"`
	DeflectLine   []trajectory.Vec2      `json:"deflect_line,omitempty"`
	Pockets       []int                  `json:"pockets,omitempty"`

	Result trajectory.Result `json:"-"`
}

func (t Table) Bounds() trajectory.Bounds {
	return trajectory.Bounds{
		XMin: -t.Width / 2,
		XMax: t.Width / 2,
		YMin: -t.Height / 2,
		YMax: t.Height / 2,
	}
}

// Pockets lists the corner and middle pockets, bottom row first.
func (t Table) Pockets() []Pocket {
	px := t.Width/2 - pocketInset
	py := t.Height/2 - pocketInset
	coords := [][2]float64{{-px, -py}, {px, -py}, {-px, 0}, {px, 0}, {-px, py}, {px, py}}

	pockets := make([]Pocket, len(coords))
	for i, c := range coords {
		pockets[i] = Pocket{ID: i, Position: trajectory.NewVec2(c[0], c[1]), Radius: t.PocketRadius}
	}
	return pockets
}

// AimFromDrag converts a pull-back drag into a shot. The cue travels away
// from the mouse and power grows with drag distance up to a cap.
func AimFromDrag(cue, mouse trajectory.Vec2) (angle, power float64) {
	d := cue.Minus(mouse)
	angle = math.Atan2(d.Y, d.X)
	power = math.Min(d.Magnitude(), maxDragDistance) * dragPowerScale
	return angle, power
}

// ShotVelocity is the per-step velocity for angle and power.
func ShotVelocity(angle, power float64) trajectory.Vec2 {
	return trajectory.NewVec2(math.Cos(angle)*power, math.Sin(angle)*power)
}

// ClipToTable shortens the segment p1->p2 so p2 stays inside the area a ball
// centre can reach.
func (t Table) ClipToTable(p1, p2 trajectory.Vec2) trajectory.Vec2 {
	r := t.BallRadius
	minX, maxX := -t.Width/2+r, t.Width/2-r
	minY, maxY := -t.Height/2+r, t.Height/2-r
	dir := p2.Minus(p1)

	s := 1.0
	if p2.X > maxX {
		s = math.Min(s, (maxX-p1.X)/dir.X)
	} else if p2.X < minX {
		s = math.Min(s, (minX-p1.X)/dir.X)
	}
	if p2.Y > maxY {
		s = math.Min(s, (maxY-p1.Y)/dir.Y)
	} else if p2.Y < minY {
		s = math.Min(s, (minY-p1.Y)/dir.Y)
	}
	if s < 0 {
		s = 0
	}
	return p1.Plus(dir.Times(s))
}

func (t Table) simOptions() []trajectory.Option {
	return []trajectory.Option{
		trajectory.WithVariant(trajectory.VariantDamped),
		trajectory.WithFriction(t.Friction),
		trajectory.WithWallRestitution(t.CushionRestitution),
		trajectory.WithMaxSteps(t.MaxSteps),
	}
}

// Guide predicts the cue ball path for a shot and, when it strikes a ball,
// where that ball and the cue go next. balls may include the cue, matched by
// its non-empty ID. Balls without an ID are always obstacles.
func (t Table) Guide(cue Ball, balls []Ball, angle, power float64) SnookerGuide {
	obstacles := make([]trajectory.Obstacle, 0, len(balls))
	for _, b := range balls {
		if b.Pocketed || (b.ID != "" && b.ID == cue.ID) {
			continue
		}
		obstacles = append(obstacles, trajectory.Obstacle{Position: b.Position, Radius: t.BallRadius, Tag: b.ID})
	}

	res := trajectory.Simulate(cue.Position, ShotVelocity(angle, power), t.BallRadius, t.Bounds(), obstacles, t.simOptions()...)

	g := SnookerGuide{
		Path:          res.Points,
		Reason:        res.Reason,
		FinalVelocity: res.FinalVelocity,
		Result:        res,
	}

	if res.Hit != nil || res.FinalVelocity.Magnitude() < restSpeed {
		end := res.End()
		g.Ghost = &end
		g.GhostRadius = t.BallRadius
	}

	if res.Hit == nil {
		return g
	}

	hit := res.Hit
	g.HitBallID, _ = hit.Obstacle.Tag.(string)
	hitPos := hit.Position
	g.HitPosition = &hitPos

	push := hit.Normal.Invert()
	tStart := hit.Obstacle.Position
	tEnd := t.ClipToTable(tStart, tStart.Plus(push.Times(targetLineLen)))
	g.TargetLine = []trajectory.Vec2{tStart, tEnd}

	tangent := trajectory.NewVec2(-push.Y, push.X)
	dEnd := t.ClipToTable(hitPos, hitPos.Plus(tangent.Times(deflectLineLen)))
	g.DeflectLine = []trajectory.Vec2{hitPos, dEnd}

	for _, p := range t.Pockets() {
		if tEnd.DistanceSquared(p.Position) < t.PocketHighlightDistSq {
			g.Pockets = append(g.Pockets, p.ID)
		}
	}
	return g
}

// PocketHighlightID is the overlay highlight ID for a pocket.
func PocketHighlightID(id int) string {
	return "pocket-" + strconv.Itoa(id)
}

// Draw starts a new frame on a and renders the guide into it.
func (g SnookerGuide) Draw(a *overlay.AimAssist) {
	a.BeginFrame()
	a.DrawLine(g.Path, overlay.StyleGuideDash)
	if g.Ghost != nil {
		a.DrawGhost(*g.Ghost, g.GhostRadius, overlay.StyleGhost)
	}
	if len(g.TargetLine) > 0 {
		a.DrawLine(g.TargetLine, overlay.StyleTarget)
	}
	if len(g.DeflectLine) > 0 {
		a.DrawLine(g.DeflectLine, overlay.StyleDeflect)
	}
	for _, id := range g.Pockets {
		a.Highlight(PocketHighlightID(id), overlay.StylePocketHit)
	}
}
