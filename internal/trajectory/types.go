package trajectory

import "fmt"

const (
	DefaultMaxSteps    = 800
	DefaultSampleEvery = 5

	// StopEpsilon is the per-component speed below which a trajectory ends.
	StopEpsilon = 0.001
	// BounceNudge is the fraction of the reflected velocity applied after a
	// wall impact so the same wall is not detected again on the next step.
	BounceNudge = 0.001
	// MinSweepLengthSq is the squared step length below which obstacle
	// sweeps are skipped.
	MinSweepLengthSq = 0.000001
	// prefilterSlack pads the obstacle bounding prefilter.
	prefilterSlack = 2.0
)

// Bounds is an axis-aligned arena rectangle.
type Bounds struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Obstacle is a static circle. Tag is the caller's own reference and is
// handed back untouched in the HitRecord.
type Obstacle struct {
	Position Vec2    `json:"position"`
	Radius   float64 `json:"radius"`
	Tag      any     `json:"tag,omitempty"`
}

// Axis identifies which wall pair a wall impact belongs to.
type Axis int

const (
	AxisNone Axis = iota
	AxisX
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "none"
	}
}

// HitRecord describes the obstacle that ended a trajectory.
type HitRecord struct {
	Position Vec2     `json:"position"`
	Normal   Vec2     `json:"normal"` // obstacle centre to impact point, unit length
	Obstacle Obstacle `json:"obstacle"`
}

// Termination says why Simulate stopped.
type Termination string

const (
	TerminatedObstacle Termination = "obstacle"
	TerminatedStopped  Termination = "stopped"
	TerminatedMaxSteps Termination = "max_steps"
)

// Result is the output of one Simulate call.
type Result struct {
	Points        []Vec2      `json:"points"`
	Hit           *HitRecord  `json:"hit"`
	FinalVelocity Vec2        `json:"final_velocity"`
	Steps         int         `json:"steps"`
	Reason        Termination `json:"reason"`
}

// End returns the last point of the polyline.
func (r Result) End() Vec2 {
	if len(r.Points) == 0 {
		return Vec2{}
	}
	return r.Points[len(r.Points)-1]
}

// ForceHook adjusts velocity once per step, after collision handling.
type ForceHook func(v Vec2, cfg Config) Vec2

// Identity leaves velocity unchanged: projectiles keep their speed until
// they bounce.
func Identity(v Vec2, _ Config) Vec2 {
	return v
}

// Damped applies rolling friction by scaling velocity by cfg.Friction.
func Damped(v Vec2, cfg Config) Vec2 {
	return v.Times(cfg.Friction)
}

// Variant names one of the built-in force hooks.
type Variant string

const (
	VariantConstant Variant = "constant"
	VariantDamped   Variant = "damped"
)

// Hook returns the force hook for the variant. Unknown variants behave as
// constant speed.
func (v Variant) Hook() ForceHook {
	if v == VariantDamped {
		return Damped
	}
	return Identity
}

// ParseVariant accepts "constant", "damped" or the empty string (constant).
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantConstant:
		return VariantConstant, nil
	case VariantDamped:
		return VariantDamped, nil
	}
	return "", fmt.Errorf("unknown trajectory variant %q", s)
}

// Config holds the tunables of one simulation. Values outside their sane
// range (restitution or friction outside [0, 1]) are not rejected.
type Config struct {
	HitRadiusScale  float64
	WallRestitution float64
	Friction        float64
	MaxSteps        int
	SampleEvery     int
	Force           ForceHook
}

// DefaultConfig returns the constant-speed configuration with elastic walls.
func DefaultConfig() Config {
	return Config{
		HitRadiusScale:  1.0,
		WallRestitution: 1.0,
		Friction:        1.0,
		MaxSteps:        DefaultMaxSteps,
		SampleEvery:     DefaultSampleEvery,
		Force:           Identity,
	}
}

// Option mutates a Config before a simulation runs.
type Option func(*Config)

// WithHitRadiusScale inflates the combined radius used for obstacle tests.
func WithHitRadiusScale(s float64) Option {
	return func(c *Config) { c.HitRadiusScale = s }
}

func WithWallRestitution(r float64) Option {
	return func(c *Config) { c.WallRestitution = r }
}

func WithFriction(f float64) Option {
	return func(c *Config) { c.Friction = f }
}

func WithMaxSteps(n int) Option {
	return func(c *Config) { c.MaxSteps = n }
}

func WithSampleEvery(n int) Option {
	return func(c *Config) { c.SampleEvery = n }
}

func WithForce(f ForceHook) Option {
	return func(c *Config) { c.Force = f }
}

func WithVariant(v Variant) Option {
	return func(c *Config) { c.Force = v.Hook() }
}

func resolveConfig(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = DefaultSampleEvery
	}
	if cfg.Force == nil {
		cfg.Force = Identity
	}
	return cfg
}
