package ws

import (
	"encoding/json"
	"log"

	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
	"github.com/oklog/ulid/v2"
)

// route applies the relay rules to one inbound frame:
//
//	client-ready                -> get-canvas-state to every other client
//	sending-app-state-to-server -> sending-app-state-to-client to every client, sender included
//
// Anything else is dropped.
func (h *Hub) route(in inbound) {
	switch in.frame.Type {
	case domain.EventClientReady:
		out := domain.Frame{Type: domain.EventGetCanvasState}
		h.deliver(out, func(c *Client) bool { return c != in.from })

	case domain.EventStateToServer:
		// payload is forwarded as received, the relay never decodes it
		out := domain.Frame{Type: domain.EventStateToClient, Payload: in.frame.Payload}
		h.deliver(out, func(*Client) bool { return true })

	default:
		h.mu.Lock()
		h.stats.Dropped++
		h.mu.Unlock()
		log.Printf("[relay] room %s: dropped %q from client", h.roomCode, in.frame.Type)
	}
}

// deliver stamps the frame and queues it for every client matching to.
// A client whose buffer is full is disconnected.
func (h *Hub) deliver(f domain.Frame, to func(*Client) bool) {
	f.ID = ulid.Make().String()
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("[relay] encode %s: %v", f.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.Routed++
	for id, client := range h.clients {
		if !to(client) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, close connection and remove client
			close(client.send)
			delete(h.clients, id)
			h.stats.Evicted++
			log.Printf("[relay] room %s: evicted slow client", h.roomCode)
		}
	}
	if len(h.clients) == 0 {
		h.scheduleShutdown()
	}
}
