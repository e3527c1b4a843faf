package shots

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channel carries shot_committed events between server instances.
const Channel = "shot_events"

const EventShotCommitted = "shot_committed"

// Event is the payload published on Channel. Source names the server
// instance that committed the shot.
type Event struct {
	Type      string `json:"type"`
	Source    string `json:"source"`
	SessionID string `json:"session_id"`
	Shot      *Shot  `json:"shot"`
}

// Publisher announces committed shots. A Publisher without a Redis client
// drops events.
type Publisher struct {
	rdb    *redis.Client
	source string
}

func NewPublisher(rdb *redis.Client, source string) *Publisher {
	return &Publisher{rdb: rdb, source: source}
}

func (p *Publisher) Publish(ctx context.Context, s *Shot) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Event{Type: EventShotCommitted, Source: p.source, SessionID: s.SessionID, Shot: s})
	if err != nil {
		return fmt.Errorf("encode shot event: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish shot %s: %w", s.ID, err)
	}
	return nil
}

// DecodeEvent parses a payload received on Channel.
func DecodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode shot event: %w", err)
	}
	if ev.Type != EventShotCommitted || ev.Shot == nil {
		return Event{}, fmt.Errorf("unexpected shot event type %q", ev.Type)
	}
	return ev, nil
}
