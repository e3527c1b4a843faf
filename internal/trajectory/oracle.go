package trajectory

import "math"

// TimeToWall returns the fraction of one step (pos → pos+vel) at which a
// circle of the given radius first touches an arena wall, and which axis that
// wall is on. It returns (1, AxisNone) when no wall is reached within the step.
//
// Walls are offset inward by radius. A wall is only tested when the velocity
// points at it. A circle already past a wall it is still moving into gets
// t = 0 so the caller reflects it immediately.
//
// Note: the reference physics discards a negative t instead of clamping it.
// That lets a circle nudged past a corner keep moving out of the arena, so
// keep the clamp.
func TimeToWall(pos, vel Vec2, radius float64, b Bounds) (float64, Axis) {
	tMin, axis := 1.0, AxisNone

	consider := func(t float64, a Axis) {
		if t < 0 {
			t = 0
		}
		if t < tMin {
			tMin, axis = t, a
		}
	}

	if vel.X < 0 {
		consider((b.XMin+radius-pos.X)/vel.X, AxisX)
	}
	if vel.X > 0 {
		consider((b.XMax-radius-pos.X)/vel.X, AxisX)
	}
	if vel.Y < 0 {
		consider((b.YMin+radius-pos.Y)/vel.Y, AxisY)
	}
	if vel.Y > 0 {
		consider((b.YMax-radius-pos.Y)/vel.Y, AxisY)
	}

	return tMin, axis
}

// TimeToObstacle sweeps a circle of the given radius along the segment
// cur → end and returns the earliest fraction t in [0, 1] at which it touches
// one of the obstacles, together with that obstacle's index. It returns
// (1, -1) when nothing is hit or the segment is too short to sweep.
//
// The contact radius for each obstacle is (radius + obstacle radius) scaled
// by hitRadiusScale.
func TimeToObstacle(cur, end Vec2, radius float64, obstacles []Obstacle, hitRadiusScale float64) (float64, int) {
	bestT, bestIdx := 1.0, -1

	d := end.Minus(cur)
	a := d.MagnitudeSquared()
	if a < MinSweepLengthSq {
		return bestT, bestIdx
	}
	reach := math.Sqrt(a)

	for i := range obstacles {
		obj := &obstacles[i]
		rSum := (radius + obj.Radius) * hitRadiusScale

		// Bounding prefilter on the segment end point.
		limit := reach + rSum + prefilterSlack
		if end.DistanceSquared(obj.Position) > limit*limit {
			continue
		}

		o := cur.Minus(obj.Position)
		b := 2 * o.Dot(d)
		c := o.MagnitudeSquared() - rSum*rSum

		disc := b*b - 4*a*c
		if disc < 0 {
			continue
		}

		t := (-b - math.Sqrt(disc)) / (2 * a)
		if t >= 0 && t <= 1 && t < bestT {
			bestT, bestIdx = t, i
		}
	}

	return bestT, bestIdx
}
