package ws

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection timing
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBuffer     = 32
)

// Close codes sent before dropping a connection
const (
	CloseInvalidToken = 4001
	CloseNotAMember   = 4003
)

// Incoming message types
const (
	TypeMessage = "message"
	TypeTyping  = "typing"
	TypePing    = "ping"
	TypeRead    = "read"
)

// Outgoing message types
const (
	TypeUserJoined  = "user_joined"
	TypeUserLeft    = "user_left"
	TypeOnlineUsers = "online_users"
	TypePong        = "pong"
)

// Frame is the JSON envelope on the wire, both directions
type Frame struct {
	Type string `json:"type"`

	// Payload fields, set depending on Type
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`

	MessageID int64  `json:"message_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	UserIDs   []int64 `json:"user_ids,omitempty"`

	SentAt time.Time `json:"sent_at,omitempty"`
}

// Client is one connected socket in a room
type Client struct {
	UserID   int64
	Username string

	room *Room
	conn *websocket.Conn
	send chan Frame
}

// Room is a set of clients sharing a broadcast domain: one group chat or
// one DM conversation.
type Room struct {
	key string
	hub *Hub

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// Hub tracks rooms by key and creates them on demand
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*Room)}
}

// GroupRoomKey is the room key for a group chat
func GroupRoomKey(groupID int64) string {
	return fmt.Sprintf("group:%d", groupID)
}

// DMRoomKey is the room key for a DM conversation
func DMRoomKey(conversationID int64) string {
	return fmt.Sprintf("dm:%d", conversationID)
}

// Room returns the room for a key, creating it when absent
func (h *Hub) Room(key string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[key]
	if !ok {
		room = &Room{key: key, hub: h, clients: make(map[*Client]struct{})}
		h.rooms[key] = room
	}
	return room
}

func (h *Hub) dropIfEmpty(room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room.mu.RLock()
	empty := len(room.clients) == 0
	room.mu.RUnlock()
	if empty {
		delete(h.rooms, room.key)
	}
}

// Join registers a connection in the room and announces it. The returned
// client runs its write pump in the background.
func (r *Room) Join(conn *websocket.Conn, userID int64, username string) *Client {
	client := &Client{
		UserID:   userID,
		Username: username,
		room:     r,
		conn:     conn,
		send:     make(chan Frame, sendBuffer),
	}

	r.mu.Lock()
	r.clients[client] = struct{}{}
	r.mu.Unlock()

	go client.writePump()

	r.Broadcast(Frame{Type: TypeUserJoined, UserID: userID, Username: username})
	client.Send(Frame{Type: TypeOnlineUsers, UserIDs: r.OnlineUserIDs()})
	return client
}

// Leave removes the client and announces the departure
func (r *Room) Leave(client *Client) {
	r.mu.Lock()
	_, present := r.clients[client]
	delete(r.clients, client)
	r.mu.Unlock()

	if !present {
		return
	}
	close(client.send)
	r.Broadcast(Frame{Type: TypeUserLeft, UserID: client.UserID, Username: client.Username})
	r.hub.dropIfEmpty(r)
}

// Broadcast sends a frame to every client in the room
func (r *Room) Broadcast(frame Frame) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients {
		client.Send(frame)
	}
}

// OnlineUserIDs lists distinct users currently connected to the room
func (r *Room) OnlineUserIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int64]struct{}, len(r.clients))
	ids := make([]int64, 0, len(r.clients))
	for client := range r.clients {
		if _, ok := seen[client.UserID]; ok {
			continue
		}
		seen[client.UserID] = struct{}{}
		ids = append(ids, client.UserID)
	}
	return ids
}

// Send queues a frame without blocking; slow clients drop frames
func (c *Client) Send(frame Frame) {
	select {
	case c.send <- frame:
	default:
		slog.Warn("Dropping frame for slow socket", "user_id", c.UserID, "room", c.room.key)
	}
}

// writePump drains the send channel onto the socket and keeps pings going
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, open := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadLoop reads frames until the socket closes, passing each to handle.
// It owns the read side: deadlines, pong handling and size limits.
func (c *Client) ReadLoop(handle func(Frame)) {
	defer c.room.Leave(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Socket closed unexpectedly", "user_id", c.UserID, "error", err)
			}
			return
		}

		if frame.Type == TypePing {
			c.Send(Frame{Type: TypePong})
			continue
		}
		handle(frame)
	}
}

// Reject upgrades then immediately closes with an application close code.
// Browsers cannot read HTTP error bodies from failed upgrades, so the
// close code carries the reason.
func Reject(conn *websocket.Conn, code int, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	conn.Close()
}
