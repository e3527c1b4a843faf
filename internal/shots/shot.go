package shots

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playmatatu/arcade/internal/pathanim"
	"github.com/playmatatu/arcade/internal/trajectory"
)

type Game string

const (
	GameSnooker Game = "snooker"
	GameBubble  Game = "bubble"
)

var ErrNotFound = errors.New("shot not found")

// Hit is the stored form of the obstacle a shot ended on.
type Hit struct {
	Position trajectory.Vec2 `json:"position"`
	Normal   trajectory.Vec2 `json:"normal"`
	Target   string          `json:"target"`
}

// Shot is a committed aim. Path is the predicted polyline the client
// animates, so replays reproduce exactly what the player was shown.
type Shot struct {
	ID        uuid.UUID              `json:"id"`
	SessionID string                 `json:"session_id"`
	Game      Game                   `json:"game"`
	Input     json.RawMessage        `json:"input"`
	Path      []trajectory.Vec2      `json:"path"`
	Hit       *Hit                   `json:"hit,omitempty"`
	Reason    trajectory.Termination `json:"reason"`
	CreatedAt time.Time              `json:"created_at"`
}

// New builds a shot from a finished simulation. input is the request that
// produced it and is stored verbatim as JSON.
func New(sessionID string, game Game, input any, res trajectory.Result) (*Shot, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode shot input: %w", err)
	}

	s := &Shot{
		ID:        uuid.New(),
		SessionID: sessionID,
		Game:      game,
		Input:     raw,
		Path:      res.Points,
		Reason:    res.Reason,
	}
	if res.Hit != nil {
		s.Hit = &Hit{
			Position: res.Hit.Position,
			Normal:   res.Hit.Normal,
			Target:   fmt.Sprint(res.Hit.Obstacle.Tag),
		}
	}
	return s, nil
}

// Replay returns the per-tick positions of the shot walked at speed units
// per tick.
func Replay(s *Shot, speed float64) ([]trajectory.Vec2, error) {
	return pathanim.Sample(s.Path, speed)
}
