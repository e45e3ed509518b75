package ws

import "github.com/mmuslimabdulj/goat-canvas/internal/domain"

// Register adds a client to the hub. A client registering with a stopped
// hub is closed straight away.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		close(c.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Dispatch queues a frame read from c for routing
func (h *Hub) Dispatch(c *Client, f domain.Frame) {
	select {
	case h.inbound <- inbound{from: c, frame: f}:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns a copy of the relay counters
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// SetRoomInfo sets the room information for this hub
func (h *Hub) SetRoomInfo(code, name string, rm *RoomManager) {
	h.roomCode = code
	h.roomName = name
	h.roomManager = rm
}

// GetRoomInfo returns the room code and name
func (h *Hub) GetRoomInfo() (code, name string) {
	return h.roomCode, h.roomName
}
