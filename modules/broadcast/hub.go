package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Client represents one user's WebSocket connection. A user has at most
// one registered connection; a newer one replaces the older.
type Client struct {
	UserID   string
	Username string
	Conn     *websocket.Conn

	// writeMu serializes writes: the hub loop and the reader goroutine
	// both send on the same connection.
	writeMu sync.Mutex
}

// Envelope is the wire format for every server-to-client event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Send marshals and writes one event to the client.
func (c *Client) Send(event string, data any) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[hub] Failed to marshal %s event: %v", event, err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("[hub] Failed to send %s to user %s: %v", event, c.UserID, err)
	}
}

// Hub is the connection registry and room membership manager. Rooms are
// named sets of user IDs; registering a connection automatically joins
// the user's personal room.
type Hub struct {
	clients map[string]*Client         // userID -> connection
	rooms   map[string]map[string]bool // room -> set of userIDs
	emit    chan *emission
	done    chan struct{}
	mu      sync.RWMutex
}

type emission struct {
	room   string
	except string
	event  string
	data   any
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]bool),
		emit:    make(chan *emission, 256),
		done:    make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case e := <-h.emit:
			h.handleEmit(e)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to the hub and joins its personal room. A user
// reconnecting replaces and closes the previous connection.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[client.UserID]; ok && old.Conn != client.Conn {
		_ = old.Conn.Close()
	}
	h.clients[client.UserID] = client
	h.joinLocked(client.UserID, UserRoom(client.UserID))
	log.Printf("[hub] User %s (%s) connected", client.UserID, client.Username)
}

// Unregister removes a client and its room memberships and reports
// whether it did. A stale connection that was already replaced leaves the
// newer one untouched and returns false, so callers know the user is
// still connected and skip their own disconnect side effects.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.clients[client.UserID]
	if !ok || current.Conn != client.Conn {
		return false
	}
	delete(h.clients, client.UserID)
	for room, members := range h.rooms {
		if members[client.UserID] {
			delete(members, client.UserID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	log.Printf("[hub] User %s (%s) disconnected", client.UserID, client.Username)
	return true
}

// Emit sends an event to every user in a room.
func (h *Hub) Emit(room, event string, data any) {
	h.emit <- &emission{room: room, event: event, data: data}
}

// EmitExcept sends an event to every user in a room except one.
func (h *Hub) EmitExcept(room, exceptUserID, event string, data any) {
	h.emit <- &emission{room: room, except: exceptUserID, event: event, data: data}
}

// EmitToUser sends an event to one user's personal room.
func (h *Hub) EmitToUser(userID, event string, data any) {
	h.Emit(UserRoom(userID), event, data)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
}

func (h *Hub) handleEmit(e *emission) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[e.room]
	if !ok {
		return
	}
	for userID := range members {
		if userID == e.except {
			continue
		}
		if client, ok := h.clients[userID]; ok {
			client.Send(e.event, e.data)
		}
	}
}

// Join adds a user to a room. Unknown users are ignored.
func (h *Hub) Join(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[userID]; !ok {
		return
	}
	h.joinLocked(userID, room)
}

func (h *Hub) joinLocked(userID, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][userID] = true
}

// Leave removes a user from a room.
func (h *Hub) Leave(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// InRoom reports whether a user is currently in a room.
func (h *Hub) InRoom(userID, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][userID]
}

// RoomMembers returns the user IDs currently in a room.
func (h *Hub) RoomMembers(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var members []string
	for userID := range h.rooms[room] {
		members = append(members, userID)
	}
	return members
}

// IsConnected reports whether the user has a registered connection.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// ClientCount returns the number of connected users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
