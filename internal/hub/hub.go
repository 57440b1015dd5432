// Package hub owns the set of live connections: registration, identity
// binding, per-channel subscriptions, and fan-out delivery. It moves bytes,
// not meaning; envelopes are built by the layers above.
package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hubchat/server/internal/schemas"
)

// Hub is the connection registry. All three indexes — clients by conn id,
// connections by user, subscribers by channel — mutate together under one
// lock, so a dropped connection is fully gone before anything can target it
// again.
type Hub struct {
	logger *slog.Logger

	// invoked after a connection is removed from every index. Wiring sets
	// this to the call-orchestrator cleanup before the server listens.
	onDisconnect func(connId string)

	mu      sync.RWMutex
	clients map[string]*Client
	byUser  map[string]map[string]*Client
	subs    map[string]map[string]*Client
}

func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]*Client),
		byUser:  make(map[string]map[string]*Client),
		subs:    make(map[string]map[string]*Client),
	}
}

// SetDisconnectHandler registers the cleanup hook. Must be called before
// the first connection registers.
func (h *Hub) SetDisconnectHandler(fn func(connId string)) {
	h.onDisconnect = fn
}

// Register admits a connection and starts its pumps. Every inbound frame is
// handed to handle serially per connection.
func (h *Hub) Register(conn *websocket.Conn, addr string, handle func(*Client, []byte)) *Client {
	c := &Client{
		Id:    "conn_" + uuid.New().String(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		hub:   h,
		addr:  addr,
		state: StateConnecting,
	}

	h.mu.Lock()
	h.clients[c.Id] = c
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws.connect", "conn_id", c.Id, "addr", addr, "total", total)

	go c.writePump()
	go c.readPump(handle)
	return c
}

// BindIdentity attaches an authenticated user to a connection. Called on
// every successful sign-in, invite redemption, or session resume.
func (h *Hub) BindIdentity(c *Client, user *schemas.User, sessionToken string) {
	prev := c.Identity()
	c.bindIdentity(user, sessionToken)

	h.mu.Lock()
	// A connection may re-authenticate as a different user; the old
	// mapping has to go or UnicastUser keeps targeting this connection
	// on the previous user's behalf.
	if prev != nil && prev.Id != user.Id {
		if old, ok := h.byUser[prev.Id]; ok {
			delete(old, c.Id)
			if len(old) == 0 {
				delete(h.byUser, prev.Id)
			}
		}
	}
	conns, ok := h.byUser[user.Id]
	if !ok {
		conns = make(map[string]*Client)
		h.byUser[user.Id] = conns
	}
	conns[c.Id] = c
	h.mu.Unlock()
}

// Subscribe adds the connection to a channel's fan-out set.
func (h *Hub) Subscribe(connId, channelId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connId]
	if !ok {
		return
	}
	set, ok := h.subs[channelId]
	if !ok {
		set = make(map[string]*Client)
		h.subs[channelId] = set
	}
	set[connId] = c
}

func (h *Hub) Unsubscribe(connId, channelId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[channelId]; ok {
		delete(set, connId)
		if len(set) == 0 {
			delete(h.subs, channelId)
		}
	}
}

// DropChannel removes a deleted channel's whole subscription set.
func (h *Hub) DropChannel(channelId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, channelId)
}

// Broadcast fans a payload out to every subscriber of a channel. A slow or
// broken subscriber is dropped, never waited on.
func (h *Hub) Broadcast(channelId string, payload []byte, excludeConnId string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.subs[channelId]))
	for id, c := range h.subs[channelId] {
		if id != excludeConnId {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(payload)
	}
}

// BroadcastAll sends to every authenticated connection. Used for hub-level
// directory events everyone should observe.
func (h *Hub) BroadcastAll(payload []byte, excludeConnId string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		if id != excludeConnId && c.State() == StateAuthenticated {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(payload)
	}
}

// Unicast sends to one connection. Sending to a connection that is gone is
// a logged no-op.
func (h *Hub) Unicast(connId string, payload []byte) {
	h.mu.RLock()
	c, ok := h.clients[connId]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("ws.unicast_drop", "conn_id", connId)
		return
	}
	c.Send(payload)
}

// UnicastUser sends to every live connection of a user.
func (h *Hub) UnicastUser(userId string, payload []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byUser[userId]))
	for _, c := range h.byUser[userId] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(payload)
	}
}

// safeSend enqueues without blocking; false means the client is gone or
// its buffer is full.
func (h *Hub) safeSend(c *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// drop removes a connection from every index, then runs the disconnect
// hook. Removal happens first so fan-out can never target a half-closed
// connection.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	c.closed = true
	delete(h.clients, c.Id)
	for channelId, set := range h.subs {
		delete(set, c.Id)
		if len(set) == 0 {
			delete(h.subs, channelId)
		}
	}
	if user := c.Identity(); user != nil {
		if conns, ok := h.byUser[user.Id]; ok {
			delete(conns, c.Id)
			if len(conns) == 0 {
				delete(h.byUser, user.Id)
			}
		}
	}
	total := len(h.clients)
	close(c.send)
	h.mu.Unlock()

	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	_ = c.conn.Close()

	h.logger.Info("ws.disconnect", "conn_id", c.Id, "addr", c.addr, "total", total)
	if h.onDisconnect != nil {
		h.onDisconnect(c.Id)
	}
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.drop(c)
	}
	h.logger.Info("ws.shutdown", "closed", len(targets))
}
