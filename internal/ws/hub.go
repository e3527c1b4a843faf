package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/arcade/internal/guide"
	"github.com/playmatatu/arcade/internal/logger"
	"github.com/playmatatu/arcade/internal/overlay"
	"go.uber.org/zap"
)

// Origins are checked by middleware.WebSocketCORSCheck before the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const sendBuffer = 256

// Hub tracks the connected aiming clients, grouped by session. A session may
// have several connections open at once (one per tab).
type Hub struct {
	svc    *guide.Service
	source string
	log    *zap.Logger

	clients    map[string]*Client            // clientID -> Client
	sessions   map[string]map[string]*Client // sessionID -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub serving guides from svc. source identifies this
// server instance in shot events.
func NewHub(svc *guide.Service, source string) *Hub {
	return &Hub{
		svc:        svc,
		source:     source,
		log:        logger.Named("ws"),
		clients:    make(map[string]*Client),
		sessions:   make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.add(c)
			h.log.Info("client connected", zap.String("client_id", c.id), zap.String("session_id", c.sessionID))

		case c := <-h.unregister:
			if h.remove(c) {
				h.log.Info("client disconnected", zap.String("client_id", c.id), zap.String("session_id", c.sessionID))
			}

		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				if c.conn != nil {
					c.conn.Close()
				}
			}
			h.mu.Unlock()
			h.log.Info("hub stopped")
			return nil
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	room, ok := h.sessions[c.sessionID]
	if !ok {
		room = make(map[string]*Client)
		h.sessions[c.sessionID] = room
	}
	room[c.id] = c
}

// remove drops c and closes its send channel. It reports false if c was not
// registered.
func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.id]; !ok || cur != c {
		return false
	}
	delete(h.clients, c.id)
	if room, ok := h.sessions[c.sessionID]; ok {
		delete(room, c.id)
		if len(room) == 0 {
			delete(h.sessions, c.sessionID)
		}
	}
	close(c.send)
	return true
}

// SessionClients returns how many connections the session has open.
func (h *Hub) SessionClients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// BroadcastToSession sends a message to every connection of a session.
func (h *Hub) BroadcastToSession(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.sessions[sessionID] {
		select {
		case client.send <- data:
		default:
			h.log.Warn("send buffer full, dropping message",
				zap.String("client_id", client.id),
				zap.String("session_id", sessionID),
			)
		}
	}
}

// Serve upgrades the request and runs a client for sessionID until the
// connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := h.newClient(conn, sessionID)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) newClient(conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		hub:       h,
		conn:      conn,
		id:        uuid.NewString(),
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
		assist:    overlay.New(),
		log:       h.log.With(zap.String("session_id", sessionID)),
	}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 65536
)
