package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// connPair returns the two ends of a live websocket connection
type connPair struct {
	server *websocket.Conn
	client *websocket.Conn
}

type pairFactory struct {
	t       *testing.T
	httpSrv *httptest.Server
	serverC chan *websocket.Conn
}

func newPairFactory(t *testing.T) *pairFactory {
	f := &pairFactory{t: t, serverC: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}
	f.httpSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.serverC <- conn
	}))
	t.Cleanup(f.httpSrv.Close)
	return f
}

func (f *pairFactory) dial() connPair {
	f.t.Helper()
	url := "ws" + strings.TrimPrefix(f.httpSrv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { clientConn.Close() })

	select {
	case serverConn := <-f.serverC:
		return connPair{server: serverConn, client: clientConn}
	case <-time.After(2 * time.Second):
		f.t.Fatal("server side of websocket never arrived")
		return connPair{}
	}
}

func runningHub(t *testing.T) *Hub {
	hub := NewHub()
	go hub.Run()
	return hub
}

// readEvent reads one frame off the client end with a deadline
func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var raw struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&raw))
	return Event{Event: raw.Event}
}

func expectNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "connection should have stayed silent")
}

func waitRegistered(t *testing.T, hub *Hub, userID primitive.ObjectID) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.IsConnected(userID) },
		2*time.Second, 10*time.Millisecond)
}

func TestHubSendToUser(t *testing.T) {
	factory := newPairFactory(t)
	hub := runningHub(t)

	userID := primitive.NewObjectID()
	pair := factory.dial()
	hub.Register(&Client{UserID: userID, Role: "admin", Conn: pair.server})
	waitRegistered(t, hub, userID)

	require.NoError(t, hub.SendToUser(userID, Event{Event: EventStatsUpdated}))
	ev := readEvent(t, pair.client)
	assert.Equal(t, EventStatsUpdated, ev.Event)
}

func TestHubSendToMissingUser(t *testing.T) {
	hub := runningHub(t)
	err := hub.SendToUser(primitive.NewObjectID(), Event{Event: EventStatsUpdated})
	require.Error(t, err)
}

func TestHubReplacesConnectionPerUser(t *testing.T) {
	factory := newPairFactory(t)
	hub := runningHub(t)

	userID := primitive.NewObjectID()
	first := factory.dial()
	second := factory.dial()

	hub.Register(&Client{UserID: userID, Role: "admin", Conn: first.server})
	waitRegistered(t, hub, userID)
	hub.Register(&Client{UserID: userID, Role: "admin", Conn: second.server})

	// The replaced connection is closed by the hub
	first.client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := first.client.ReadMessage()
	require.Error(t, err, "first connection should be closed after replacement")

	// Events flow only through the surviving connection
	require.NoError(t, hub.SendToUser(userID, Event{Event: EventUserClockIn}))
	ev := readEvent(t, second.client)
	assert.Equal(t, EventUserClockIn, ev.Event)
}

func TestHubBroadcastRoleScoping(t *testing.T) {
	factory := newPairFactory(t)
	hub := runningHub(t)

	adminID := primitive.NewObjectID()
	receptionID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()

	admin := factory.dial()
	reception := factory.dial()
	member := factory.dial()

	hub.Register(&Client{UserID: adminID, Role: "admin", Conn: admin.server})
	hub.Register(&Client{UserID: receptionID, Role: "reception", Conn: reception.server})
	hub.Register(&Client{UserID: memberID, Role: "member", Conn: member.server})
	waitRegistered(t, hub, adminID)
	waitRegistered(t, hub, receptionID)
	waitRegistered(t, hub, memberID)

	hub.BroadcastToStaff(Event{Event: EventNewMember})

	assert.Equal(t, EventNewMember, readEvent(t, admin.client).Event)
	assert.Equal(t, EventNewMember, readEvent(t, reception.client).Event)
	expectNoEvent(t, member.client)
}

func TestHubUnregister(t *testing.T) {
	factory := newPairFactory(t)
	hub := runningHub(t)

	userID := primitive.NewObjectID()
	pair := factory.dial()
	client := &Client{UserID: userID, Role: "admin", Conn: pair.server}

	hub.Register(client)
	waitRegistered(t, hub, userID)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return !hub.IsConnected(userID) },
		2*time.Second, 10*time.Millisecond)

	require.Error(t, hub.SendToUser(userID, Event{Event: EventStatsUpdated}))
}

func TestHubUnregisterStaleConnectionKeepsReplacement(t *testing.T) {
	factory := newPairFactory(t)
	hub := runningHub(t)

	userID := primitive.NewObjectID()
	first := factory.dial()
	second := factory.dial()

	stale := &Client{UserID: userID, Role: "admin", Conn: first.server}
	current := &Client{UserID: userID, Role: "admin", Conn: second.server}

	hub.Register(stale)
	waitRegistered(t, hub, userID)
	hub.Register(current)

	// The dead read loop of the replaced connection unregisters late; the
	// replacement must survive that
	hub.Unregister(stale)

	require.Eventually(t, func() bool {
		return hub.SendToUser(userID, Event{Event: EventStatsUpdated}) == nil
	}, 2*time.Second, 10*time.Millisecond)
	ev := readEvent(t, second.client)
	assert.Equal(t, EventStatsUpdated, ev.Event)
}
