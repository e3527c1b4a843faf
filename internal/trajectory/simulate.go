package trajectory

import "math"

// Simulate predicts the path of a circle of the given radius launched from
// start with the given per-step velocity inside bounds.
//
// Each step clips the move to the earliest wall, sweeps the clipped segment
// against the obstacles, then either stops on the obstacle, reflects off the
// wall, or moves the full step. The configured force hook runs after that.
// The loop ends on an obstacle hit, when both velocity components drop below
// StopEpsilon, or after MaxSteps.
//
// Points always starts at start and ends at the terminal position. Wall and
// obstacle impacts are always included, and plain steps are sampled every
// SampleEvery iterations. Simulate never keeps a reference to obstacles.
func Simulate(start, velocity Vec2, radius float64, bounds Bounds, obstacles []Obstacle, opts ...Option) Result {
	cfg := resolveConfig(opts)

	cur := start
	v := velocity
	points := make([]Vec2, 1, cfg.MaxSteps/cfg.SampleEvery+8)
	points[0] = start

	res := Result{Reason: TerminatedMaxSteps}

	for i := 0; i < cfg.MaxSteps; i++ {
		res.Steps = i + 1

		tw, axis := TimeToWall(cur, v, radius, bounds)
		step := cur.Plus(v)
		if tw < 1 {
			step = cur.Plus(v.Times(tw))
		}

		to, idx := TimeToObstacle(cur, step, radius, obstacles, cfg.HitRadiusScale)
		if idx >= 0 {
			cur = cur.Plus(step.Minus(cur).Times(to))
			points = append(points, cur)
			obj := obstacles[idx]
			res.Hit = &HitRecord{
				Position: cur,
				Normal:   cur.Minus(obj.Position).Normalize(),
				Obstacle: obj,
			}
			res.Reason = TerminatedObstacle
			break
		}

		if tw < 1 {
			cur = step
			points = append(points, cur)
			if axis == AxisX {
				v.X *= -cfg.WallRestitution
			} else {
				v.Y *= -cfg.WallRestitution
			}
			cur = cur.Plus(v.Times(BounceNudge))
		} else {
			cur = step
		}

		v = cfg.Force(v, cfg)
		if math.Abs(v.X) < StopEpsilon && math.Abs(v.Y) < StopEpsilon {
			res.Reason = TerminatedStopped
			break
		}

		if i%cfg.SampleEvery == 0 {
			points = append(points, cur)
		}
	}

	if points[len(points)-1] != cur {
		points = append(points, cur)
	}

	res.Points = points
	res.FinalVelocity = v
	return res
}
