package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/arcade/internal/guide"
	"github.com/playmatatu/arcade/internal/overlay"
	"github.com/playmatatu/arcade/internal/shots"
	"go.uber.org/zap"
)

// Client message types.
const (
	TypeAimSnooker = "aim_snooker"
	TypeAimBubble  = "aim_bubble"
	TypeCommit     = "commit"
	TypePing       = "ping"
)

// Server message types.
const (
	TypeAimGuide      = "aim_guide"
	TypeShotCommitted = "shot_committed"
	TypeError         = "error"
	TypePong          = "pong"
)

// WSMessage is a message from the client. Seq is echoed on the direct reply
// so clients can drop stale guides.
type WSMessage struct {
	Type string          `json:"type"`
	Seq  int64           `json:"seq,omitempty"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage is a message to the client.
type ServerMessage struct {
	Type    string     `json:"type"`
	Seq     int64      `json:"seq,omitempty"`
	Game    shots.Game `json:"game,omitempty"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Client is one WebSocket connection. Its overlay pool is reused for every
// guide it is sent and is only touched from readPump.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	id        string
	sessionID string
	send      chan []byte
	assist    *overlay.AimAssist
	log       *zap.Logger
}

// readPump reads client messages until the connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected close", zap.Error(err))
			} else {
				c.log.Debug("read ended", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError(0, "Invalid message")
			continue
		}

		c.handleMessage(context.Background(), msg)
	}
}

// writePump writes queued messages and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Unregistered. Best effort close frame.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}

		case <-c.hub.done:
			return
		}
	}
}

// handleMessage answers one client message.
func (c *Client) handleMessage(ctx context.Context, msg WSMessage) {
	svc := c.hub.svc

	switch msg.Type {
	case TypePing:
		c.sendJSON(ServerMessage{Type: TypePong, Seq: msg.Seq})

	case TypeAimSnooker:
		var req guide.SnookerRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(msg.Seq, "Invalid aim data")
			return
		}
		resp, err := svc.Snooker(ctx, req, c.assist)
		if err != nil {
			c.sendServiceError(msg.Seq, err)
			return
		}
		c.sendJSON(ServerMessage{Type: TypeAimGuide, Seq: msg.Seq, Game: shots.GameSnooker, Data: resp})

	case TypeAimBubble:
		var req guide.BubbleRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(msg.Seq, "Invalid aim data")
			return
		}
		resp, err := svc.Bubble(ctx, req, c.assist)
		if err != nil {
			c.sendServiceError(msg.Seq, err)
			return
		}
		c.sendJSON(ServerMessage{Type: TypeAimGuide, Seq: msg.Seq, Game: shots.GameBubble, Data: resp})

	case TypeCommit:
		var req guide.CommitRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(msg.Seq, "Invalid commit data")
			return
		}
		shot, err := svc.Commit(ctx, c.sessionID, req)
		if err != nil {
			c.sendServiceError(msg.Seq, err)
			return
		}
		// Every tab of the session sees the shot, including this one.
		c.hub.BroadcastToSession(c.sessionID, ServerMessage{Type: TypeShotCommitted, Game: shot.Game, Data: shot})

	default:
		c.sendError(msg.Seq, "Unknown message type")
	}
}

func (c *Client) sendServiceError(seq int64, err error) {
	switch {
	case guide.IsCallerError(err):
		c.sendError(seq, err.Error())
	case errors.Is(err, guide.ErrStorageUnavailable):
		c.sendError(seq, "shot storage unavailable")
	default:
		c.log.Error("request failed", zap.Error(err))
		c.sendError(seq, "internal error")
	}
}

func (c *Client) sendError(seq int64, message string) {
	c.sendJSON(ServerMessage{Type: TypeError, Seq: seq, Message: message})
}

// sendJSON queues a direct reply. Replies are dropped when the client is not
// draining its buffer.
func (c *Client) sendJSON(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal reply", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("send buffer full, dropping reply", zap.String("type", msg.Type))
	}
}
