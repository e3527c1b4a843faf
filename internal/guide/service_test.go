package guide

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/playmatatu/arcade/internal/aim"
	"github.com/playmatatu/arcade/internal/cache"
	"github.com/playmatatu/arcade/internal/overlay"
	"github.com/playmatatu/arcade/internal/preset"
	"github.com/playmatatu/arcade/internal/shots"
	"github.com/playmatatu/arcade/internal/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	shots map[uuid.UUID]*shots.Shot
}

func newMemStore() *memStore {
	return &memStore{shots: make(map[uuid.UUID]*shots.Shot)}
}

func (m *memStore) Record(_ context.Context, s *shots.Shot) error {
	m.shots[s.ID] = s
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*shots.Shot, error) {
	s, ok := m.shots[id]
	if !ok {
		return nil, shots.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListBySession(_ context.Context, sessionID string, limit int) ([]*shots.Shot, error) {
	var out []*shots.Shot
	for _, s := range m.shots {
		if s.SessionID == sessionID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	published []*shots.Shot
}

func (p *recordingPublisher) Publish(_ context.Context, s *shots.Shot) error {
	p.published = append(p.published, s)
	return nil
}

func newTestService(t *testing.T, store ShotStore, events ShotPublisher) *Service {
	t.Helper()
	p, err := preset.Defaults()
	require.NoError(t, err)
	return NewService(preset.NewRegistry(p), cache.NewGuideCache(nil, 0), store, events, Limits{MaxSimSteps: 1000, MaxObstacles: 4})
}

func ptr(f float64) *float64 { return &f }

func validSimulateRequest() SimulateRequest {
	return SimulateRequest{
		Start:     trajectory.NewVec2(0.5, 0),
		Velocity:  trajectory.NewVec2(1, 0),
		Radius:    0.5,
		Bounds:    trajectory.Bounds{XMin: -10, XMax: 10, YMin: -10, YMax: 10},
		Obstacles: []trajectory.Obstacle{{Position: trajectory.NewVec2(5, 0), Radius: 0.5, Tag: "target"}},
	}
}

func TestSimulateRequestValidation(t *testing.T) {
	limits := Limits{MaxSimSteps: 1000, MaxObstacles: 1}

	cases := map[string]func(r *SimulateRequest){
		"zero radius":       func(r *SimulateRequest) { r.Radius = 0 },
		"inverted x bounds": func(r *SimulateRequest) { r.Bounds.XMin, r.Bounds.XMax = 10, -10 },
		"flat y bounds":     func(r *SimulateRequest) { r.Bounds.YMax = r.Bounds.YMin },
		"zero hit scale":    func(r *SimulateRequest) { r.HitRadiusScale = ptr(0) },
		"too many steps":    func(r *SimulateRequest) { r.MaxSteps = 1001 },
		"negative steps":    func(r *SimulateRequest) { r.MaxSteps = -1 },
		"too many obstacles": func(r *SimulateRequest) {
			r.Obstacles = append(r.Obstacles, trajectory.Obstacle{Radius: 1})
		},
		"negative obstacle radius": func(r *SimulateRequest) { r.Obstacles[0].Radius = -1 },
		"unknown variant":          func(r *SimulateRequest) { r.Variant = "bouncy" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := validSimulateRequest()
			mutate(&r)
			assert.ErrorIs(t, r.Validate(limits), ErrInvalidRequest)
		})
	}

	assert.NoError(t, validSimulateRequest().Validate(limits))
}

func TestServiceSimulate(t *testing.T) {
	svc := newTestService(t, nil, nil)

	res, err := svc.Simulate(validSimulateRequest())
	require.NoError(t, err)

	assert.Equal(t, trajectory.TerminatedObstacle, res.Reason)
	require.NotNil(t, res.Hit)
	assert.InDelta(t, 4.0, res.Hit.Position.X, 1e-9)
	assert.Equal(t, "target", res.Hit.Obstacle.Tag)
	assert.Equal(t, res.Hit.Position, res.End())

	bad := validSimulateRequest()
	bad.Radius = -1
	_, err = svc.Simulate(bad)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func straightSnooker() SnookerRequest {
	return SnookerRequest{
		Cue:   aim.Ball{ID: "cue", Position: trajectory.NewVec2(0, -5)},
		Balls: []aim.Ball{{ID: "red", Position: trajectory.NewVec2(0, 0)}},
		Angle: ptr(math.Pi / 2),
		Power: ptr(0.6),
	}
}

func TestServiceSnooker(t *testing.T) {
	svc := newTestService(t, nil, nil)
	a := overlay.New()

	resp, err := svc.Snooker(context.Background(), straightSnooker(), a)
	require.NoError(t, err)

	assert.False(t, resp.Cached)
	assert.Equal(t, "red", resp.Guide.HitBallID)
	require.Len(t, resp.Overlay.Lines, 3)
	assert.Equal(t, resp.Guide.Path, resp.Overlay.Lines[0].Points)
	assert.Len(t, resp.Overlay.Ghosts, 1)
}

func TestServiceSnookerDrag(t *testing.T) {
	svc := newTestService(t, nil, nil)

	drag := trajectory.NewVec2(0, -9)
	req := SnookerRequest{
		Cue:   aim.Ball{ID: "cue", Position: trajectory.NewVec2(0, -5)},
		Balls: []aim.Ball{{ID: "red", Position: trajectory.NewVec2(0, 0)}},
		Drag:  &drag,
	}

	resp, err := svc.Snooker(context.Background(), req, overlay.New())
	require.NoError(t, err)
	assert.Equal(t, "red", resp.Guide.HitBallID)
	require.NotNil(t, resp.Guide.HitPosition)
	assert.InDelta(t, -0.8, resp.Guide.HitPosition.Y, 1e-9)
}

func TestServiceSnookerValidation(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	noAim := straightSnooker()
	noAim.Power = nil
	_, err := svc.Snooker(ctx, noAim, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)

	offTable := straightSnooker()
	offTable.Cue.Position = trajectory.NewVec2(0, 20)
	_, err = svc.Snooker(ctx, offTable, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)

	negative := straightSnooker()
	negative.Power = ptr(-1)
	_, err = svc.Snooker(ctx, negative, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)

	crowded := straightSnooker()
	for i := 0; i < 5; i++ {
		crowded.Balls = append(crowded.Balls, aim.Ball{ID: fmt.Sprintf("red-%d", i)})
	}
	_, err = svc.Snooker(ctx, crowded, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestServiceSnookerRequiresBallIDs(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	anonymous := straightSnooker()
	anonymous.Cue.ID = ""
	anonymous.Balls[0].ID = ""
	_, err := svc.Snooker(ctx, anonymous, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)

	noCueID := straightSnooker()
	noCueID.Cue.ID = ""
	_, err = svc.Snooker(ctx, noCueID, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)

	unnamedBall := straightSnooker()
	unnamedBall.Balls = append(unnamedBall.Balls, aim.Ball{Position: trajectory.NewVec2(3, 3)})
	_, err = svc.Snooker(ctx, unnamedBall, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)

	duplicate := straightSnooker()
	duplicate.Balls = append(duplicate.Balls, aim.Ball{ID: "red", Position: trajectory.NewVec2(3, 3)})
	_, err = svc.Snooker(ctx, duplicate, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// Listing the cue among the balls is fine; it is not an obstacle.
	withCue := straightSnooker()
	withCue.Balls = append(withCue.Balls, withCue.Cue)
	resp, err := svc.Snooker(ctx, withCue, overlay.New())
	require.NoError(t, err)
	assert.Equal(t, "red", resp.Guide.HitBallID)
}

func TestServiceBubble(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	req := BubbleRequest{Cells: []aim.Cell{{X: 5, Y: 14}}, Aim: trajectory.NewVec2(5, 10)}
	resp, err := svc.Bubble(ctx, req, overlay.New())
	require.NoError(t, err)
	require.NotNil(t, resp.Guide)
	assert.Equal(t, aim.Cell{X: 5, Y: 13}, *resp.Guide.Target)
	assert.Len(t, resp.Overlay.Lines, 1)
	assert.Len(t, resp.Overlay.Ghosts, 1)

	// Aiming below the cannon clears whatever the pool showed last frame.
	a := overlay.New()
	_, err = svc.Bubble(ctx, req, a)
	require.NoError(t, err)
	down := BubbleRequest{Aim: trajectory.NewVec2(5, -5)}
	resp, err = svc.Bubble(ctx, down, a)
	require.NoError(t, err)
	assert.Nil(t, resp.Guide)
	assert.Empty(t, resp.Overlay.Lines)
	assert.Empty(t, resp.Overlay.Ghosts)

	_, err = svc.Bubble(ctx, BubbleRequest{Cells: []aim.Cell{{X: 99, Y: 0}}}, overlay.New())
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCommitRequiresStore(t *testing.T) {
	svc := newTestService(t, nil, nil)

	s := straightSnooker()
	_, err := svc.Commit(context.Background(), "session-1", CommitRequest{Game: shots.GameSnooker, Snooker: &s})
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	// Caller errors still win over a missing store.
	_, err = svc.Commit(context.Background(), "session-1", CommitRequest{Game: "darts"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCommitSnooker(t *testing.T) {
	store := newMemStore()
	events := &recordingPublisher{}
	svc := newTestService(t, store, events)
	ctx := context.Background()

	s := straightSnooker()
	guide, err := svc.Snooker(ctx, s, overlay.New())
	require.NoError(t, err)

	shot, err := svc.Commit(ctx, "session-1", CommitRequest{Game: shots.GameSnooker, Snooker: &s})
	require.NoError(t, err)

	assert.Equal(t, guide.Guide.Path, shot.Path)
	assert.Equal(t, trajectory.TerminatedObstacle, shot.Reason)
	require.NotNil(t, shot.Hit)
	assert.Equal(t, "red", shot.Hit.Target)
	assert.Contains(t, store.shots, shot.ID)
	require.Len(t, events.published, 1)
	assert.Equal(t, shot.ID, events.published[0].ID)

	got, err := svc.Shot(ctx, "session-1", shot.ID)
	require.NoError(t, err)
	assert.Equal(t, shot, got)

	_, err = svc.Shot(ctx, "session-2", shot.ID)
	assert.ErrorIs(t, err, shots.ErrNotFound)

	list, err := svc.SessionShots(ctx, "session-1", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCommitBubble(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	b := BubbleRequest{Cells: []aim.Cell{{X: 5, Y: 14}}, Aim: trajectory.NewVec2(5, 10)}
	shot, err := svc.Commit(ctx, "session-1", CommitRequest{Game: shots.GameBubble, Bubble: &b})
	require.NoError(t, err)
	require.NotNil(t, shot.Hit)
	assert.Equal(t, "5,14", shot.Hit.Target)

	down := BubbleRequest{Aim: trajectory.NewVec2(5, -5)}
	_, err = svc.Commit(ctx, "session-1", CommitRequest{Game: shots.GameBubble, Bubble: &down})
	assert.ErrorIs(t, err, ErrNoShot)
	assert.True(t, IsCallerError(err))

	_, err = svc.Commit(ctx, "session-1", CommitRequest{Game: shots.GameBubble})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestReplay(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	s := straightSnooker()
	shot, err := svc.Commit(ctx, "session-1", CommitRequest{Game: shots.GameSnooker, Snooker: &s})
	require.NoError(t, err)

	_, _, err = svc.Replay(ctx, "session-1", shot.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, frames, err := svc.Replay(ctx, "session-1", shot.ID, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, frames)
	assert.Equal(t, shot.Path[0], frames[0])
	assert.Equal(t, shot.Path[len(shot.Path)-1], frames[len(frames)-1])

	_, _, err = svc.Replay(ctx, "session-1", uuid.New(), 1)
	assert.ErrorIs(t, err, shots.ErrNotFound)
}

func TestStatus(t *testing.T) {
	st := newTestService(t, nil, nil).Status()
	assert.Equal(t, Status{}, st)

	st = newTestService(t, newMemStore(), nil).Status()
	assert.True(t, st.ShotStorage)
	assert.False(t, st.GuideCache)
}

func TestReplayBoundsFrameCount(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	long := &shots.Shot{
		ID:        uuid.New(),
		SessionID: "session-1",
		Game:      shots.GameSnooker,
		Path:      []trajectory.Vec2{{X: 0, Y: 0}, {X: 5000, Y: 0}},
	}
	require.NoError(t, store.Record(ctx, long))

	for _, speed := range []float64{1e-9, MinReplaySpeed / 2, math.NaN()} {
		_, _, err := svc.Replay(ctx, "session-1", long.ID, speed)
		assert.ErrorIs(t, err, ErrInvalidRequest, "speed %g", speed)
	}

	// 5000 units at the slowest speed is past the frame cap.
	_, _, err := svc.Replay(ctx, "session-1", long.ID, MinReplaySpeed)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, frames, err := svc.Replay(ctx, "session-1", long.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5001, len(frames), 1)
}
