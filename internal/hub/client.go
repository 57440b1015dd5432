package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hubchat/server/internal/schemas"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// a connection that has not sent hello within this window is dropped
	helloWait = 10 * time.Second

	maxFrameSize = 64 * 1024
	sendBuffer   = 256
)

// State tracks the per-connection lifecycle:
// Connecting -> (hello) -> Anonymous -> (auth success) -> Authenticated ->
// (disconnect) -> Closed. hello with a valid resume token goes straight to
// Authenticated.
type State int

const (
	StateConnecting State = iota
	StateAnonymous
	StateAuthenticated
	StateClosed
)

// Client is one live connection. Identity and state are guarded by mu;
// the send channel is owned by the hub's registry lock.
type Client struct {
	Id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	addr string

	// guarded by hub.mu, like the registry itself
	closed bool

	mu           sync.Mutex
	state        State
	user         *schemas.User
	sessionToken string
}

// State returns the connection's lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkHello moves a connecting client to Anonymous and relaxes the read
// deadline from the handshake window to the pong-based keepalive.
func (c *Client) MarkHello() {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateAnonymous
	}
	c.mu.Unlock()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Identity returns the bound user, or nil before authentication.
func (c *Client) Identity() *schemas.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Client) bindIdentity(user *schemas.User, sessionToken string) {
	c.mu.Lock()
	c.user = user
	c.sessionToken = sessionToken
	c.state = StateAuthenticated
	c.mu.Unlock()
}

// Send enqueues a payload without blocking. A full buffer means the client
// has stopped draining; it gets dropped rather than stalling anyone else.
func (c *Client) Send(payload []byte) {
	if !c.hub.safeSend(c, payload) {
		go c.hub.drop(c)
	}
}

// readPump delivers inbound frames to handle in arrival order, so one
// connection's requests are processed serially while different connections
// run concurrently.
func (c *Client) readPump(handle func(*Client, []byte)) {
	defer func() {
		c.hub.drop(c)
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(helloWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("ws.read_error", "conn_id", c.Id, "addr", c.addr, "err", err)
			}
			return
		}
		handle(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
