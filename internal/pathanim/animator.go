package pathanim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/playmatatu/arcade/internal/trajectory"
)

// track is one object walking along a polyline at constant speed.
type track struct {
	path       []trajectory.Vec2
	speed      float64
	segment    int
	progress   float64
	position   trajectory.Vec2
	onComplete func(id string)
}

// Animator moves objects along precomputed trajectories so the committed shot
// follows exactly the path the guide displayed. It is not safe for concurrent
// use.
type Animator struct {
	tracks map[string]*track
}

func New() *Animator {
	return &Animator{tracks: make(map[string]*track)}
}

// Add starts id along path at speed units per Update. A path with fewer than
// two points completes on the next Update. Adding an id that is already
// animating replaces it.
func (a *Animator) Add(id string, path []trajectory.Vec2, speed float64, onComplete func(id string)) {
	p := make([]trajectory.Vec2, len(path))
	copy(p, path)
	t := &track{path: p, speed: speed, onComplete: onComplete}
	if len(p) > 0 {
		t.position = p[0]
	}
	a.tracks[id] = t
}

// Update advances every track by one tick. Completed tracks are removed
// before their callbacks run, in id order.
func (a *Animator) Update() {
	var done []string
	for id, t := range a.tracks {
		if t.advance() {
			done = append(done, id)
		}
	}
	sort.Strings(done)
	for _, id := range done {
		t := a.tracks[id]
		delete(a.tracks, id)
		if t.onComplete != nil {
			t.onComplete(id)
		}
	}
}

// Position reports where id currently is.
func (a *Animator) Position(id string) (trajectory.Vec2, bool) {
	t, ok := a.tracks[id]
	if !ok {
		return trajectory.Vec2{}, false
	}
	return t.position, true
}

func (a *Animator) Active() int {
	return len(a.tracks)
}

// Clear drops every track without running callbacks.
func (a *Animator) Clear() {
	a.tracks = make(map[string]*track)
}

// advance moves the track forward by speed and reports whether it reached
// the end of its path.
func (t *track) advance() bool {
	if t.segment >= len(t.path)-1 {
		return true
	}

	from := t.path[t.segment]
	to := t.path[t.segment+1]
	length := to.Minus(from).Magnitude()
	if length == 0 {
		t.segment++
		t.progress = 0
		t.position = to
		return t.segment >= len(t.path)-1
	}

	t.progress += t.speed / length
	if t.progress >= 1 {
		t.segment++
		t.progress = 0
		t.position = to
		return t.segment >= len(t.path)-1
	}

	t.position = from.Plus(to.Minus(from).Times(t.progress))
	return false
}

// MaxFrames bounds the number of frames Sample will produce.
const MaxFrames = 100000

// ErrTooManyFrames is returned by Sample when walking the path at the given
// speed would take more than MaxFrames ticks.
var ErrTooManyFrames = errors.New("path needs too many frames")

// Length returns the total length of the polyline.
func Length(path []trajectory.Vec2) float64 {
	var l float64
	for i := 1; i < len(path); i++ {
		l += path[i].Minus(path[i-1]).Magnitude()
	}
	return l
}

// Sample walks path at speed and returns the position after every tick, the
// final entry being the end of the path. It produces the same frames an
// Animator would for a single track.
func Sample(path []trajectory.Vec2, speed float64) ([]trajectory.Vec2, error) {
	if len(path) == 0 {
		return nil, nil
	}
	frames := []trajectory.Vec2{path[0]}
	if speed <= 0 {
		return append(frames, path[len(path)-1]), nil
	}

	// Each segment costs at most one tick beyond its length over speed.
	n := Length(path)/speed + float64(len(path))
	if !(n <= MaxFrames) {
		return nil, fmt.Errorf("%w: %d points at speed %g", ErrTooManyFrames, len(path), speed)
	}

	t := &track{path: path, speed: speed, position: path[0]}
	frames = make([]trajectory.Vec2, 1, int(n)+1)
	frames[0] = path[0]
	for !t.advance() {
		frames = append(frames, t.position)
	}
	if last := path[len(path)-1]; frames[len(frames)-1] != last {
		frames = append(frames, last)
	}
	return frames, nil
}
