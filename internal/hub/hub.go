// Package hub tracks connected admin notification sessions and delivers
// per-session payloads without ever blocking on a slow socket.
package hub

import "sync"

// Client is one connected admin session. Send is drained by the session's
// write pump; a full buffer drops the payload rather than stalling the
// producer, the next snapshot supersedes it anyway.
type Client struct {
	SessionID string
	AdminID   string
	send      chan []byte
}

func NewClient(sessionID, adminID string) *Client {
	return &Client{SessionID: sessionID, AdminID: adminID, send: make(chan []byte, 8)}
}

func (c *Client) Send(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) Outbox() <-chan []byte { return c.send }

func (c *Client) Close() { close(c.send) }

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // sessionID -> client
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.SessionID] = c
}

func (h *Hub) Remove(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, sessionID)
}

func (h *Hub) Get(sessionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[sessionID]
	return c, ok
}

// Count reports how many sessions are currently connected.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
