package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// channelHarness is a fake backend serving both the REST surface the
// gateway calls and the websocket endpoint the channel dials.
type channelHarness struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	conns         []*gws.Conn
	notifications map[string][]Entry // keyed by bearer token
	failMutations bool
}

func newChannelHarness(t *testing.T) *channelHarness {
	h := &channelHarness{
		t:             t,
		notifications: make(map[string][]Entry),
	}

	upgrader := gws.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.mu.Lock()
		h.conns = append(h.conns, conn)
		h.mu.Unlock()
		conn.WriteJSON(wireEvent{Event: "connected"})
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
	mux.HandleFunc("/api/notifications", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		h.mu.Lock()
		entries := h.notifications[token]
		unread := 0
		for _, e := range entries {
			if !e.Read {
				unread++
			}
		}
		h.mu.Unlock()

		body := map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"notifications": entries,
				"unreadCount":   unread,
			},
		}
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/api/notifications/", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		fail := h.failMutations
		h.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success":false,"message":"Database error"}`))
			return
		}
		w.Write([]byte(`{"success":true}`))
	})

	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *channelHarness) wsURL() string {
	return "ws" + strings.TrimPrefix(h.server.URL, "http")
}

func (h *channelHarness) setNotifications(token string, entries []Entry) {
	h.mu.Lock()
	h.notifications[token] = entries
	h.mu.Unlock()
}

func (h *channelHarness) setFailMutations(fail bool) {
	h.mu.Lock()
	h.failMutations = fail
	h.mu.Unlock()
}

// push writes an event frame on the most recent connection
func (h *channelHarness) push(ev wireEvent) {
	h.mu.Lock()
	require.NotEmpty(h.t, h.conns, "no websocket connection to push on")
	conn := h.conns[len(h.conns)-1]
	h.mu.Unlock()
	require.NoError(h.t, conn.WriteJSON(ev))
}

// dropLatest severs the most recent connection server-side
func (h *channelHarness) dropLatest() {
	h.mu.Lock()
	require.NotEmpty(h.t, h.conns)
	conn := h.conns[len(h.conns)-1]
	h.mu.Unlock()
	conn.Close()
}

func (h *channelHarness) connCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func newTestChannel(t *testing.T, h *channelHarness) (*SessionStore, *Channel) {
	store := NewSessionStore(NewMemoryStorage())
	gateway := NewGateway(h.server.URL, store)
	channel := NewChannel(store, gateway, h.wsURL())
	t.Cleanup(channel.Shutdown)
	return store, channel
}

func waitConnected(t *testing.T, channel *Channel) {
	t.Helper()
	require.Eventually(t, channel.IsConnected, 2*time.Second, 10*time.Millisecond,
		"channel never reached open state")
}

func entriesOf(token string) []Entry {
	return []Entry{
		{ID: "n3", Title: "Clock-in", Type: "user_clock_in", Read: false, Message: token},
		{ID: "n2", Title: "Request", Type: "membership_request", Read: false, Message: token},
		{ID: "n1", Title: "Welcome", Type: "system", Read: true, Message: token},
	}
}

func TestChannelLoginOpensAndFetchesSnapshot(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	assert.Equal(t, StateClosed, channel.State())

	require.NoError(t, store.Login("t1", testIdentity("admin")))

	waitConnected(t, channel)
	require.Eventually(t, func() bool {
		return len(channel.Entries()) == 3
	}, 2*time.Second, 10*time.Millisecond, "snapshot never populated")

	// Server order preserved; unread derived from the entries
	entries := channel.Entries()
	assert.Equal(t, "n3", entries[0].ID)
	assert.Equal(t, 2, channel.UnreadCount())
}

func TestChannelPushedNotificationPrepends(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	before := channel.UnreadCount()
	raw, err := json.Marshal(Entry{ID: "n99", Title: "Fresh", Read: false})
	require.NoError(t, err)
	h.push(wireEvent{Event: "notification", Data: raw})

	require.Eventually(t, func() bool { return len(channel.Entries()) == 4 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "n99", channel.Entries()[0].ID)
	assert.Equal(t, before+1, channel.UnreadCount())
}

func TestChannelAlertHookFailureIsSwallowed(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", []Entry{{ID: "n0", Read: true}})

	store, channel := newTestChannel(t, h)
	channel.SetAlertHook(func() error { return errors.New("no audio device") })

	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 1 },
		2*time.Second, 10*time.Millisecond)

	raw, err := json.Marshal(Entry{ID: "n1", Read: false})
	require.NoError(t, err)
	h.push(wireEvent{Event: "notification", Data: raw})

	require.Eventually(t, func() bool { return len(channel.Entries()) == 2 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "n1", channel.Entries()[0].ID)
}

func TestChannelMarkAllAsRead(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, channel.MarkAllAsRead(context.Background()))

	assert.Equal(t, 0, channel.UnreadCount())
	for _, entry := range channel.Entries() {
		assert.True(t, entry.Read)
	}
}

func TestChannelMarkAsReadIsIdempotent(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, channel.MarkAsRead(context.Background(), "n3"))
	after := channel.UnreadCount()

	// A second mark-read of the same entry must not move the count again
	require.NoError(t, channel.MarkAsRead(context.Background(), "n3"))
	assert.Equal(t, after, channel.UnreadCount())
}

func TestChannelFailedMutationLeavesStateUntouched(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	before := channel.UnreadCount()
	h.setFailMutations(true)

	var reqErr *RequestError
	err := channel.MarkAsRead(context.Background(), "n3")
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, before, channel.UnreadCount())

	err = channel.MarkAllAsRead(context.Background())
	require.Error(t, err)
	assert.Equal(t, before, channel.UnreadCount())

	err = channel.DeleteNotification(context.Background(), "n3")
	require.Error(t, err)
	assert.Len(t, channel.Entries(), 3)
}

func TestChannelDeleteNotification(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, channel.DeleteNotification(context.Background(), "n2"))

	entries := channel.Entries()
	assert.Len(t, entries, 2)
	for _, entry := range entries {
		assert.NotEqual(t, "n2", entry.ID)
	}
	assert.Equal(t, 1, channel.UnreadCount())
}

func TestChannelAddLocalNotification(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", []Entry{{ID: "n0", Read: true}})

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 1 },
		2*time.Second, 10*time.Millisecond)

	channel.AddLocalNotification(Entry{ID: "local-1", Title: "Maintenance tonight", Read: false})

	entries := channel.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "local-1", entries[0].ID)
	assert.Equal(t, 1, channel.UnreadCount())
}

func TestChannelUnreadCountAlwaysDerived(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	check := func() {
		expected := 0
		for _, entry := range channel.Entries() {
			if !entry.Read {
				expected++
			}
		}
		assert.Equal(t, expected, channel.UnreadCount())
	}

	check()
	channel.AddLocalNotification(Entry{ID: "x1", Read: false})
	check()
	require.NoError(t, channel.MarkAsRead(context.Background(), "n3"))
	check()
	require.NoError(t, channel.DeleteNotification(context.Background(), "n2"))
	check()
	require.NoError(t, channel.MarkAllAsRead(context.Background()))
	check()
	assert.Equal(t, 0, channel.UnreadCount())
}

func TestChannelLogoutClearsEverything(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	store.Logout()

	assert.False(t, channel.IsConnected())
	assert.Equal(t, StateClosed, channel.State())
	assert.Empty(t, channel.Entries())
	_, _, ok := store.Current()
	assert.False(t, ok)
}

func TestChannelDisconnectRetainsEntries(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	h.dropLatest()

	require.Eventually(t, func() bool {
		return channel.State() == StateDisconnected
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, channel.IsConnected())
	// A transport drop is not a logout: the cache survives
	assert.Len(t, channel.Entries(), 3)
}

func TestChannelRelogin(t *testing.T) {
	h := newChannelHarness(t)
	h.setNotifications("t1", entriesOf("t1"))
	h.setNotifications("t2", []Entry{
		{ID: "m1", Title: "Second identity", Read: false, Message: "t2"},
	})

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 3 },
		2*time.Second, 10*time.Millisecond)

	store.Logout()
	assert.Empty(t, channel.Entries())

	second := testIdentity("reception")
	second.ID = "64f1b2c3d4e5f6a7b8c9d0e2"
	require.NoError(t, store.Login("t2", second))

	waitConnected(t, channel)
	require.Eventually(t, func() bool { return len(channel.Entries()) == 1 },
		2*time.Second, 10*time.Millisecond)

	// The second session opened its own connection and sees only its own
	// entries; nothing from the first identity survives
	assert.Equal(t, 2, h.connCount())
	for _, entry := range channel.Entries() {
		assert.Equal(t, "t2", entry.Message)
	}
}

func TestChannelSubscribeFanOut(t *testing.T) {
	h := newChannelHarness(t)

	store, channel := newTestChannel(t, h)
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	waitConnected(t, channel)

	var mu sync.Mutex
	var first, second []string
	unsubFirst := channel.Subscribe("user_clock_in", func(data json.RawMessage) {
		mu.Lock()
		first = append(first, string(data))
		mu.Unlock()
	})
	channel.Subscribe("user_clock_in", func(data json.RawMessage) {
		mu.Lock()
		second = append(second, string(data))
		mu.Unlock()
	})

	h.push(wireEvent{Event: "user_clock_in", Data: json.RawMessage(`{"id":"a1"}`)})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(first) == 1 && len(second) == 1
	}, 2*time.Second, 10*time.Millisecond, "both subscribers must see the event")

	unsubFirst()
	h.push(wireEvent{Event: "user_clock_in", Data: json.RawMessage(`{"id":"a2"}`)})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(second) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, first, 1, "unsubscribed handler must not fire again")
}
