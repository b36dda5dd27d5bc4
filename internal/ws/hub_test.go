package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer upgrades every request into the same room, echoing message
// frames back out as broadcasts.
func chatServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var nextUserID atomic.Int64

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		room := hub.Room("group:1")
		client := room.Join(conn, nextUserID.Add(1), "user")
		client.ReadLoop(func(frame Frame) {
			if frame.Type == TypeMessage {
				room.Broadcast(Frame{Type: TypeMessage, Text: frame.Text, UserID: client.UserID})
			}
		})
	}))
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestRoomJoinAnnouncements(t *testing.T) {
	hub := NewHub()
	server := chatServer(t, hub)
	defer server.Close()

	first := dial(t, server)
	defer first.Close()

	// The joining client hears its own arrival, then the roster
	assert.Equal(t, TypeUserJoined, readFrame(t, first).Type)
	roster := readFrame(t, first)
	assert.Equal(t, TypeOnlineUsers, roster.Type)
	assert.Len(t, roster.UserIDs, 1)

	second := dial(t, server)
	defer second.Close()

	joined := readFrame(t, first)
	assert.Equal(t, TypeUserJoined, joined.Type)
	assert.Equal(t, int64(2), joined.UserID)

	readFrame(t, second) // its own user_joined
	roster = readFrame(t, second)
	assert.Equal(t, TypeOnlineUsers, roster.Type)
	assert.Len(t, roster.UserIDs, 2)
}

func TestRoomBroadcast(t *testing.T) {
	hub := NewHub()
	server := chatServer(t, hub)
	defer server.Close()

	first := dial(t, server)
	defer first.Close()
	readFrame(t, first)
	readFrame(t, first)

	second := dial(t, server)
	defer second.Close()
	readFrame(t, first) // second's user_joined
	readFrame(t, second)
	readFrame(t, second)

	require.NoError(t, second.WriteJSON(Frame{Type: TypeMessage, Text: "hello"}))

	for _, conn := range []*websocket.Conn{first, second} {
		frame := readFrame(t, conn)
		assert.Equal(t, TypeMessage, frame.Type)
		assert.Equal(t, "hello", frame.Text)
		assert.Equal(t, int64(2), frame.UserID)
	}
}

func TestPingGetsPong(t *testing.T) {
	hub := NewHub()
	server := chatServer(t, hub)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()
	readFrame(t, conn)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypePing}))
	assert.Equal(t, TypePong, readFrame(t, conn).Type)
}

func TestLeaveAnnouncedAndRoomDropped(t *testing.T) {
	hub := NewHub()
	server := chatServer(t, hub)
	defer server.Close()

	first := dial(t, server)
	defer first.Close()
	readFrame(t, first)
	readFrame(t, first)

	second := dial(t, server)
	readFrame(t, first) // second's user_joined
	readFrame(t, second)
	readFrame(t, second)

	require.NoError(t, second.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	second.Close()

	left := readFrame(t, first)
	assert.Equal(t, TypeUserLeft, left.Type)
	assert.Equal(t, int64(2), left.UserID)

	first.Close()
	assert.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.rooms) == 0
	}, 2*time.Second, 10*time.Millisecond, "empty rooms get dropped")
}

func TestOnlineUserIDsDeduplicates(t *testing.T) {
	hub := NewHub()
	room := hub.Room("group:9")

	// Two tabs for the same user count once
	room.clients[&Client{UserID: 5, send: make(chan Frame, 1)}] = struct{}{}
	room.clients[&Client{UserID: 5, send: make(chan Frame, 1)}] = struct{}{}
	room.clients[&Client{UserID: 8, send: make(chan Frame, 1)}] = struct{}{}

	ids := room.OnlineUserIDs()
	assert.Len(t, ids, 2)
	assert.ElementsMatch(t, []int64{5, 8}, ids)
}
