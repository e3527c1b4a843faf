package guide

import (
	"errors"
	"fmt"
	"math"

	"github.com/playmatatu/arcade/internal/aim"
	"github.com/playmatatu/arcade/internal/overlay"
	"github.com/playmatatu/arcade/internal/shots"
	"github.com/playmatatu/arcade/internal/trajectory"
)

var (
	// ErrInvalidRequest wraps every caller error found while validating a
	// request. Handlers map it to 400.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoShot means the aim does not launch anything, e.g. a bubble aimed
	// below the cannon.
	ErrNoShot             = errors.New("aim does not produce a shot")
	ErrStorageUnavailable = errors.New("shot storage unavailable")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Limits caps what a single request may ask the simulator to do. Zero means
// unlimited.
type Limits struct {
	MaxSimSteps  int
	MaxObstacles int
}

func (l Limits) checkObstacles(n int) error {
	if l.MaxObstacles > 0 && n > l.MaxObstacles {
		return invalidf("%d obstacles exceeds the limit of %d", n, l.MaxObstacles)
	}
	return nil
}

// SimulateRequest is direct access to the trajectory simulator.
type SimulateRequest struct {
	Start           trajectory.Vec2       `json:"start"`
	Velocity        trajectory.Vec2       `json:"velocity"`
	Radius          float64               `json:"radius"`
	Bounds          trajectory.Bounds     `json:"bounds"`
	Obstacles       []trajectory.Obstacle `json:"obstacles"`
	Variant         string                `json:"variant,omitempty"`
	HitRadiusScale  *float64              `json:"hit_radius_scale,omitempty"`
	WallRestitution *float64              `json:"wall_restitution,omitempty"`
	Friction        *float64              `json:"friction,omitempty"`
	MaxSteps        int                   `json:"max_steps,omitempty"`
	SampleEvery     int                   `json:"sample_every,omitempty"`
}

// Validate checks the preconditions the simulator leaves to its callers.
func (r SimulateRequest) Validate(l Limits) error {
	if !(r.Radius > 0) {
		return invalidf("radius must be positive")
	}
	if !(r.Bounds.XMin < r.Bounds.XMax) || !(r.Bounds.YMin < r.Bounds.YMax) {
		return invalidf("bounds must satisfy x_min < x_max and y_min < y_max")
	}
	if r.HitRadiusScale != nil && !(*r.HitRadiusScale > 0) {
		return invalidf("hit_radius_scale must be positive")
	}
	if r.MaxSteps < 0 {
		return invalidf("max_steps must not be negative")
	}
	if l.MaxSimSteps > 0 && r.MaxSteps > l.MaxSimSteps {
		return invalidf("max_steps %d exceeds the limit of %d", r.MaxSteps, l.MaxSimSteps)
	}
	if r.SampleEvery < 0 {
		return invalidf("sample_every must not be negative")
	}
	if err := l.checkObstacles(len(r.Obstacles)); err != nil {
		return err
	}
	for i, o := range r.Obstacles {
		if o.Radius < 0 {
			return invalidf("obstacle %d has a negative radius", i)
		}
	}
	if _, err := trajectory.ParseVariant(r.Variant); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (r SimulateRequest) options() []trajectory.Option {
	variant, _ := trajectory.ParseVariant(r.Variant)
	opts := []trajectory.Option{
		trajectory.WithVariant(variant),
		trajectory.WithMaxSteps(r.MaxSteps),
		trajectory.WithSampleEvery(r.SampleEvery),
	}
	if r.HitRadiusScale != nil {
		opts = append(opts, trajectory.WithHitRadiusScale(*r.HitRadiusScale))
	}
	if r.WallRestitution != nil {
		opts = append(opts, trajectory.WithWallRestitution(*r.WallRestitution))
	}
	if r.Friction != nil {
		opts = append(opts, trajectory.WithFriction(*r.Friction))
	}
	return opts
}

// SnookerRequest aims the cue ball either with an explicit angle and power
// or with a pull-back drag point.
type SnookerRequest struct {
	Cue   aim.Ball         `json:"cue"`
	Balls []aim.Ball       `json:"balls"`
	Angle *float64         `json:"angle,omitempty"`
	Power *float64         `json:"power,omitempty"`
	Drag  *trajectory.Vec2 `json:"drag,omitempty"`
}

func (r SnookerRequest) validate(t aim.Table, l Limits) error {
	if r.Drag == nil && (r.Angle == nil || r.Power == nil) {
		return invalidf("either drag or angle and power are required")
	}
	if r.Drag == nil && *r.Power < 0 {
		return invalidf("power must not be negative")
	}
	b := t.Bounds()
	p := r.Cue.Position
	if p.X < b.XMin || p.X > b.XMax || p.Y < b.YMin || p.Y > b.YMax {
		return invalidf("cue ball is off the table")
	}
	if err := l.checkObstacles(len(r.Balls)); err != nil {
		return err
	}

	// The cue is told apart from the other balls by ID, so every ball needs
	// its own. The cue itself may appear in balls.
	if r.Cue.ID == "" {
		return invalidf("cue ball needs an id")
	}
	seen := make(map[string]struct{}, len(r.Balls))
	for i, ball := range r.Balls {
		if ball.ID == "" {
			return invalidf("ball %d needs an id", i)
		}
		if _, dup := seen[ball.ID]; dup {
			return invalidf("duplicate ball id %q", ball.ID)
		}
		seen[ball.ID] = struct{}{}
	}
	return nil
}

func (r SnookerRequest) shot() (angle, power float64) {
	if r.Drag != nil {
		return aim.AimFromDrag(r.Cue.Position, *r.Drag)
	}
	return *r.Angle, *r.Power
}

// BubbleRequest aims the cannon at a point above it.
type BubbleRequest struct {
	RowOffset int             `json:"row_offset"`
	Cells     []aim.Cell      `json:"cells"`
	Aim       trajectory.Vec2 `json:"aim"`
}

func (r BubbleRequest) grid(b aim.Board, l Limits) (*aim.Grid, error) {
	if err := l.checkObstacles(len(r.Cells)); err != nil {
		return nil, err
	}
	if math.IsNaN(r.Aim.X) || math.IsNaN(r.Aim.Y) {
		return nil, invalidf("aim must be a number")
	}
	g, err := b.NewGrid(r.RowOffset, r.Cells)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return g, nil
}

// CommitRequest fixes the current aim as a shot. Exactly the input that
// matches Game is used.
type CommitRequest struct {
	Game    shots.Game      `json:"game"`
	Snooker *SnookerRequest `json:"snooker,omitempty"`
	Bubble  *BubbleRequest  `json:"bubble,omitempty"`
}

type SnookerResponse struct {
	Guide   aim.SnookerGuide `json:"guide"`
	Overlay overlay.Snapshot `json:"overlay"`
	Cached  bool             `json:"cached"`
}

// BubbleResponse carries a nil Guide when the aim points below the cannon.
type BubbleResponse struct {
	Guide   *aim.BubbleGuide `json:"guide"`
	Overlay overlay.Snapshot `json:"overlay"`
	Cached  bool             `json:"cached"`
}
