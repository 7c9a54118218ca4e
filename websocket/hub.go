package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Named events pushed to the dashboards
const (
	EventConnected         = "connected"
	EventNotification      = "notification"
	EventUserClockIn       = "user_clock_in"
	EventUserClockOut      = "user_clock_out"
	EventNewMember         = "new_member_registered"
	EventMembershipRequest = "membership_request"
	EventMembershipApprove = "membership_approved"
	EventTransactionAdded  = "transaction_added"
	EventAttendanceDeleted = "attendance_deleted"
	EventStatsUpdated      = "stats_updated"
	EventStaffNoteAdded    = "staff_note_added"
	EventSettingsUpdated   = "gym_settings_updated"
)

// Event is a named message sent over WebSocket
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	UserID primitive.ObjectID
	Role   string
	Conn   *websocket.Conn

	writeMu sync.Mutex
}

// WriteEvent serializes writes on the connection. gorilla/websocket allows
// only one concurrent writer.
func (c *Client) WriteEvent(ev Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(ev)
}

// Hub maintains the set of active clients and fans events out to them
type Hub struct {
	clients    map[primitive.ObjectID]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// One live connection per user: a fresh connection for the same
			// user replaces and closes the previous one, so a login after a
			// quick logout never leaves two streams delivering duplicates.
			if existing, ok := h.clients[client.UserID]; ok && existing != client {
				existing.Conn.Close()
			}
			h.clients[client.UserID] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.UserID]; ok && current == client {
				delete(h.clients, client.UserID)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// Register queues a client for registration
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsConnected reports whether a user currently has a live connection
func (h *Hub) IsConnected(userID primitive.ObjectID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// SendToUser sends an event to a specific user
func (h *Hub) SendToUser(userID primitive.ObjectID, ev Event) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}

	return client.WriteEvent(ev)
}

// BroadcastToRoles sends an event to every connected client holding one of
// the given roles. Write errors are ignored; the read loop notices the dead
// connection and unregisters it.
func (h *Hub) BroadcastToRoles(ev Event, roles ...string) {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		if allowed[client.Role] {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.WriteEvent(ev)
	}
}

// BroadcastToStaff sends a domain event to the admin and reception dashboards
func (h *Hub) BroadcastToStaff(ev Event) {
	h.BroadcastToRoles(ev, "admin", "reception")
}

// NotifyUser pushes a notification-shaped event to one user
func (h *Hub) NotifyUser(userID primitive.ObjectID, notification interface{}) error {
	return h.SendToUser(userID, Event{
		Event: EventNotification,
		Data:  notification,
	})
}
