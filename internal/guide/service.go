package guide

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/playmatatu/arcade/internal/aim"
	"github.com/playmatatu/arcade/internal/cache"
	"github.com/playmatatu/arcade/internal/logger"
	"github.com/playmatatu/arcade/internal/overlay"
	"github.com/playmatatu/arcade/internal/pathanim"
	"github.com/playmatatu/arcade/internal/preset"
	"github.com/playmatatu/arcade/internal/shots"
	"github.com/playmatatu/arcade/internal/trajectory"
	"go.uber.org/zap"
)

// ShotStore persists committed shots.
type ShotStore interface {
	Record(ctx context.Context, s *shots.Shot) error
	Get(ctx context.Context, id uuid.UUID) (*shots.Shot, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*shots.Shot, error)
}

// ShotPublisher announces committed shots to other server instances.
type ShotPublisher interface {
	Publish(ctx context.Context, s *shots.Shot) error
}

// Service computes aim guides against the live presets and commits shots.
// It is shared by the HTTP handlers and the WebSocket hub. A nil store
// disables commits and a nil publisher skips shot events.
type Service struct {
	presets *preset.Registry
	cache   *cache.GuideCache
	store   ShotStore
	events  ShotPublisher
	limits  Limits
	log     *zap.Logger
}

func NewService(presets *preset.Registry, gc *cache.GuideCache, store ShotStore, events ShotPublisher, limits Limits) *Service {
	return &Service{
		presets: presets,
		cache:   gc,
		store:   store,
		events:  events,
		limits:  limits,
		log:     logger.Named("guide"),
	}
}

func (s *Service) Presets() *preset.Registry {
	return s.presets
}

func (s *Service) Limits() Limits {
	return s.limits
}

// Status summarises which optional backends the service is running with.
type Status struct {
	PresetVersion uint64 `json:"preset_version"`
	ShotStorage   bool   `json:"shot_storage"`
	GuideCache    bool   `json:"guide_cache"`
}

func (s *Service) Status() Status {
	return Status{
		PresetVersion: s.presets.Version(),
		ShotStorage:   s.store != nil,
		GuideCache:    s.cache.Enabled(),
	}
}

// Simulate runs the raw simulator after validating req.
func (s *Service) Simulate(req SimulateRequest) (trajectory.Result, error) {
	if err := req.Validate(s.limits); err != nil {
		return trajectory.Result{}, err
	}
	return trajectory.Simulate(req.Start, req.Velocity, req.Radius, req.Bounds, req.Obstacles, req.options()...), nil
}

// Snooker computes the billiards guide for req and draws it into a.
func (s *Service) Snooker(ctx context.Context, req SnookerRequest, a *overlay.AimAssist) (SnookerResponse, error) {
	version := s.presets.Version()
	table := s.presets.Snooker()
	if err := req.validate(table, s.limits); err != nil {
		return SnookerResponse{}, err
	}

	var g aim.SnookerGuide
	key, hit := s.lookup(ctx, string(shots.GameSnooker), version, req, &g)
	if !hit {
		angle, power := req.shot()
		g = table.Guide(req.Cue, req.Balls, angle, power)
		s.save(ctx, key, g)
	}

	g.Draw(a)
	return SnookerResponse{Guide: g, Overlay: a.Frame(), Cached: hit}, nil
}

// Bubble computes the bubble-shooter guide for req and draws it into a.
func (s *Service) Bubble(ctx context.Context, req BubbleRequest, a *overlay.AimAssist) (BubbleResponse, error) {
	version := s.presets.Version()
	board := s.presets.Bubble()
	grid, err := req.grid(board, s.limits)
	if err != nil {
		return BubbleResponse{}, err
	}

	var g *aim.BubbleGuide
	key, hit := s.lookup(ctx, string(shots.GameBubble), version, req, &g)
	if !hit {
		if bg, ok := board.Guide(grid, req.Aim); ok {
			g = &bg
		}
		s.save(ctx, key, g)
	}

	if g == nil {
		a.BeginFrame()
	} else {
		g.Draw(a)
	}
	return BubbleResponse{Guide: g, Overlay: a.Frame(), Cached: hit}, nil
}

// lookup reads a cached guide. Cache failures are logged and treated as a
// miss so a Redis outage only costs recomputation.
func (s *Service) lookup(ctx context.Context, game string, version uint64, req, out any) (string, bool) {
	if !s.cache.Enabled() {
		return "", false
	}
	key, err := cache.Key(game, version, req)
	if err != nil {
		s.log.Warn("cache key failed", zap.String("game", game), zap.Error(err))
		return "", false
	}
	hit, err := s.cache.Get(ctx, key, out)
	if err != nil {
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return key, false
	}
	return key, hit
}

func (s *Service) save(ctx context.Context, key string, v any) {
	if key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Commit re-simulates the aim in req, records the shot for sessionID and
// publishes it. The stored polyline is the one the player was shown.
func (s *Service) Commit(ctx context.Context, sessionID string, req CommitRequest) (*shots.Shot, error) {
	var (
		input any
		res   trajectory.Result
	)

	switch req.Game {
	case shots.GameSnooker:
		if req.Snooker == nil {
			return nil, invalidf("snooker input is required")
		}
		table := s.presets.Snooker()
		if err := req.Snooker.validate(table, s.limits); err != nil {
			return nil, err
		}
		angle, power := req.Snooker.shot()
		input, res = req.Snooker, table.Guide(req.Snooker.Cue, req.Snooker.Balls, angle, power).Result

	case shots.GameBubble:
		if req.Bubble == nil {
			return nil, invalidf("bubble input is required")
		}
		board := s.presets.Bubble()
		grid, err := req.Bubble.grid(board, s.limits)
		if err != nil {
			return nil, err
		}
		g, ok := board.Guide(grid, req.Bubble.Aim)
		if !ok {
			return nil, ErrNoShot
		}
		input, res = req.Bubble, g.Result

	default:
		return nil, invalidf("unknown game %q", req.Game)
	}

	if s.store == nil {
		return nil, ErrStorageUnavailable
	}

	shot, err := shots.New(sessionID, req.Game, input, res)
	if err != nil {
		return nil, err
	}
	if err := s.store.Record(ctx, shot); err != nil {
		return nil, err
	}

	s.log.Info("shot committed",
		zap.String("shot_id", shot.ID.String()),
		zap.String("session_id", sessionID),
		zap.String("game", string(shot.Game)),
		zap.String("reason", string(shot.Reason)),
		zap.Int("points", len(shot.Path)),
	)

	if s.events != nil {
		if err := s.events.Publish(ctx, shot); err != nil {
			s.log.Warn("publish shot failed", zap.String("shot_id", shot.ID.String()), zap.Error(err))
		}
	}
	return shot, nil
}

// Shot returns a shot owned by sessionID. Shots of other sessions are
// reported as not found.
func (s *Service) Shot(ctx context.Context, sessionID string, id uuid.UUID) (*shots.Shot, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	shot, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shot.SessionID != sessionID {
		return nil, shots.ErrNotFound
	}
	return shot, nil
}

// MinReplaySpeed is the slowest replay speed accepted, in units per tick.
const MinReplaySpeed = 0.01

// Replay walks a stored shot at speed units per tick.
func (s *Service) Replay(ctx context.Context, sessionID string, id uuid.UUID, speed float64) (*shots.Shot, []trajectory.Vec2, error) {
	if !(speed >= MinReplaySpeed) {
		return nil, nil, invalidf("speed must be at least %g", MinReplaySpeed)
	}
	shot, err := s.Shot(ctx, sessionID, id)
	if err != nil {
		return nil, nil, err
	}
	frames, err := shots.Replay(shot, speed)
	if errors.Is(err, pathanim.ErrTooManyFrames) {
		return nil, nil, invalidf("shot %s is too long to replay at speed %g", id, speed)
	}
	if err != nil {
		return nil, nil, err
	}
	return shot, frames, nil
}

func (s *Service) SessionShots(ctx context.Context, sessionID string, limit int) ([]*shots.Shot, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	list, err := s.store.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list shots for session %s: %w", sessionID, err)
	}
	return list, nil
}

// IsCallerError reports whether err should be shown to the caller as a bad
// request.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrNoShot)
}
