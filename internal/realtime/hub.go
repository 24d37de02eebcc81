package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/clipnest/messaging/pkg/middleware"
	"github.com/clipnest/messaging/pkg/response"
)

// Envelope is the frame pushed to websocket clients
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Hub tracks live websocket connections keyed by user identity and pushes
// event envelopes to them. It satisfies the messaging engine's Notifier
// contract: delivery is fire-and-forget and never blocks the caller.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}

	upgrader websocket.Upgrader
}

// NewHub creates a new realtime hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is enforced by the deployment, not here
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Deliver pushes an event to every live connection of the target user.
// Connections with a full send queue are skipped; the persisted entity is
// the source of truth and a missed push is only a latency problem.
func (h *Hub) Deliver(userID int64, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Printf("realtime: failed to marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			log.Printf("realtime: dropping %s event for user %d, send queue full", event, userID)
		}
	}
}

// ServeWS handles GET /ws, upgrading the connection and registering it under
// the authenticated user's identity
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade failed for user %d: %v", userID, err)
		return
	}

	client := &Client{
		hub:    h,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
	}

	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[c.userID]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.send)
			if len(conns) == 0 {
				delete(h.clients, c.userID)
			}
		}
	}
}

// ConnectionCount reports the number of live connections for a user
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
