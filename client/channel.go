package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ChannelState is where the Event Channel is in its lifecycle
type ChannelState int

const (
	StateClosed ChannelState = iota
	StateConnecting
	StateOpen
	StateDisconnected
)

func (s ChannelState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Entry is one notification record as held by the channel's local cache.
// Read state mirrors the server: patched locally only after the server
// confirms a mark-read or delete.
type Entry struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Read      bool            `json:"isRead"`
}

// Handler receives the raw payload of a named event
type Handler func(data json.RawMessage)

// wireEvent matches the hub's frame shape
type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// notificationList matches GET /api/notifications response data
type notificationList struct {
	Notifications []Entry `json:"notifications"`
	UnreadCount   int     `json:"unreadCount"`
}

// Channel maintains the one live event stream for the authenticated
// session, fans named events out to topic subscribers, and owns the
// canonical notification entry list. Its lifecycle is driven entirely by
// the session store: login opens the connection, logout closes it and
// clears the cache.
type Channel struct {
	session *SessionStore
	gateway *Gateway
	wsURL   string
	dialer  *websocket.Dialer
	logger  *log.Logger

	// alertHook plays the local alert sound for a fresh notification.
	// Best effort: failures are swallowed.
	alertHook func() error

	mu         sync.Mutex
	state      ChannelState
	conn       *websocket.Conn
	generation uint64
	entries    []Entry

	subsMu sync.Mutex
	subs   map[string]map[int]Handler
	nextID int

	unsubscribeSession func()
}

// NewChannel wires a channel to the session store and gateway. wsURL is
// the real-time endpoint base, e.g. "ws://localhost:8080". If the session
// is already authenticated (restored from storage) the connection opens
// immediately.
func NewChannel(session *SessionStore, gateway *Gateway, wsURL string) *Channel {
	c := &Channel{
		session: session,
		gateway: gateway,
		wsURL:   strings.TrimRight(wsURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: log.New(os.Stdout, "[CHANNEL] ", log.LstdFlags),
		subs:   make(map[string]map[int]Handler),
	}

	c.unsubscribeSession = session.OnChange(func(authenticated bool) {
		if authenticated {
			c.open()
		} else {
			c.Close()
		}
	})

	if _, _, ok := session.Current(); ok {
		c.open()
	}
	return c
}

// SetAlertHook installs the sound hook invoked for each pushed notification
func (c *Channel) SetAlertHook(hook func() error) {
	c.mu.Lock()
	c.alertHook = hook
	c.mu.Unlock()
}

// State returns the current lifecycle state
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the stream is open
func (c *Channel) IsConnected() bool {
	return c.State() == StateOpen
}

// open dials the real-time endpoint for the current session. Any previous
// connection is closed first so two streams never deliver concurrently.
func (c *Channel) open() {
	identity, token, ok := c.session.Current()
	if !ok {
		return
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateConnecting
	generation := c.session.Generation()
	c.generation = generation
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/api/ws?userId=%s&role=%s&token=%s",
		c.wsURL,
		url.QueryEscape(identity.ID),
		url.QueryEscape(identity.Role),
		url.QueryEscape(token),
	)

	conn, _, err := c.dialer.Dial(endpoint, nil)
	if err != nil {
		c.logger.Printf("Connection failed: %v", err)
		c.mu.Lock()
		if c.generation == generation {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if c.generation != generation {
		// Session changed while dialing; this connection is stale
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	go c.readLoop(conn, generation)
	go c.fetchSnapshot(generation)
}

// fetchSnapshot pulls the server-authoritative notification list and
// replaces the local cache wholesale. It runs alongside the open
// connection and discards its result if the session changed meanwhile, so
// a slow fetch for one identity never populates the next one's view.
func (c *Channel) fetchSnapshot(generation uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	var list notificationList
	if err := c.gateway.Get(ctx, "/notifications", &list); err != nil {
		c.logger.Printf("Notification snapshot failed: %v", err)
		return
	}

	c.mu.Lock()
	if c.generation == generation {
		c.entries = list.Notifications
	}
	c.mu.Unlock()
}

// readLoop dispatches incoming frames until the connection drops. A drop
// flips the channel to Disconnected but keeps the cached entries; the
// transport owns reconnection, not the channel.
func (c *Channel) readLoop(conn *websocket.Conn, generation uint64) {
	for {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				if c.state == StateOpen {
					c.state = StateDisconnected
					c.logger.Printf("Connection dropped: %v", err)
				}
			}
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		stale := c.generation != generation
		c.mu.Unlock()
		if stale {
			return
		}

		c.dispatch(ev)
	}
}

func (c *Channel) dispatch(ev wireEvent) {
	switch ev.Event {
	case "connected":
		// Handshake acknowledgement, nothing to do
	case "notification":
		var entry Entry
		if err := json.Unmarshal(ev.Data, &entry); err != nil {
			c.logger.Printf("Malformed notification payload: %v", err)
			return
		}
		c.mu.Lock()
		c.entries = append([]Entry{entry}, c.entries...)
		hook := c.alertHook
		c.mu.Unlock()
		if hook != nil {
			// Alert playback is cosmetic; failures are swallowed
			_ = hook()
		}
	default:
		c.fanOut(ev.Event, ev.Data)
	}
}

func (c *Channel) fanOut(topic string, data json.RawMessage) {
	c.subsMu.Lock()
	handlers := make([]Handler, 0, len(c.subs[topic]))
	for _, h := range c.subs[topic] {
		handlers = append(handlers, h)
	}
	c.subsMu.Unlock()

	for _, h := range handlers {
		h(data)
	}
}

// Subscribe registers a handler for a named event. All consumers share
// this one channel; nobody opens a second transport connection. The
// returned function removes the subscription.
func (c *Channel) Subscribe(topic string, handler Handler) func() {
	c.subsMu.Lock()
	if c.subs[topic] == nil {
		c.subs[topic] = make(map[int]Handler)
	}
	id := c.nextID
	c.nextID++
	c.subs[topic][id] = handler
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		if handlers, ok := c.subs[topic]; ok {
			delete(handlers, id)
		}
		c.subsMu.Unlock()
	}
}

// Entries returns a copy of the notification list, newest first
func (c *Channel) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// UnreadCount is always counted from the entry list, never cached, so it
// cannot drift from the entries' read flags.
func (c *Channel) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, entry := range c.entries {
		if !entry.Read {
			count++
		}
	}
	return count
}

// MarkAsRead asks the server first and patches the local entry only on
// success. A failed round-trip leaves the cache untouched and returns the
// error, so the unread count always reflects the last known-good server
// state.
func (c *Channel) MarkAsRead(ctx context.Context, id string) error {
	if err := c.gateway.Put(ctx, "/notifications/"+id+"/read", nil, nil); err != nil {
		c.logger.Printf("Mark-read failed for %s: %v", id, err)
		return err
	}

	c.mu.Lock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries[i].Read = true
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// MarkAllAsRead marks every entry read after server confirmation
func (c *Channel) MarkAllAsRead(ctx context.Context) error {
	if err := c.gateway.Put(ctx, "/notifications/read-all", nil, nil); err != nil {
		c.logger.Printf("Mark-all-read failed: %v", err)
		return err
	}

	c.mu.Lock()
	for i := range c.entries {
		c.entries[i].Read = true
	}
	c.mu.Unlock()
	return nil
}

// DeleteNotification removes an entry after server confirmation
func (c *Channel) DeleteNotification(ctx context.Context, id string) error {
	if err := c.gateway.Delete(ctx, "/notifications/"+id, nil); err != nil {
		c.logger.Printf("Delete failed for %s: %v", id, err)
		return err
	}

	c.mu.Lock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// AddLocalNotification prepends a synthetic entry without a server call.
// Such entries do not survive the next snapshot fetch.
func (c *Channel) AddLocalNotification(entry Entry) {
	c.mu.Lock()
	c.entries = append([]Entry{entry}, c.entries...)
	c.mu.Unlock()
}

// Close tears the connection down and clears the entry list. Entries never
// leak across identities: the next login starts from an empty cache and a
// fresh snapshot. Safe to call in any state.
func (c *Channel) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.generation = c.session.Generation()
	c.entries = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Shutdown closes the channel and detaches it from the session store
func (c *Channel) Shutdown() {
	if c.unsubscribeSession != nil {
		c.unsubscribeSession()
	}
	c.Close()
}
