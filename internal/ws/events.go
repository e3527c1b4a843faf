package ws

import (
	"context"

	"github.com/playmatatu/arcade/internal/shots"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SubscribeShotEvents relays shot_committed events published by other
// server instances to the local clients of the same session. It blocks
// until ctx is cancelled. Without Redis there is nothing to relay.
func (h *Hub) SubscribeShotEvents(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		h.log.Info("redis client not set; shot event subscriber not started")
		return nil
	}

	pubsub := rdb.Subscribe(ctx, shots.Channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.log.Info("shot event subscriber started", zap.String("channel", shots.Channel))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := shots.DecodeEvent(msg.Payload)
			if err != nil {
				h.log.Warn("invalid shot event", zap.Error(err))
				continue
			}
			h.relay(ev)
		}
	}
}

// relay forwards ev unless this instance published it; local commits are
// broadcast directly.
func (h *Hub) relay(ev shots.Event) bool {
	if ev.Source == h.source {
		return false
	}
	if h.SessionClients(ev.SessionID) == 0 {
		return false
	}
	h.BroadcastToSession(ev.SessionID, ServerMessage{Type: TypeShotCommitted, Game: ev.Shot.Game, Data: ev.Shot})
	return true
}
