package ws

import (
	"log"
	"sync"
	"time"

	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

// inbound is a frame read from a client, waiting to be routed
type inbound struct {
	from  *Client
	frame domain.Frame
}

// HubStats counts relay traffic for one room
type HubStats struct {
	Routed  uint64
	Dropped uint64
	Evicted uint64 // clients disconnected because their buffer was full
}

// Hub relays frames between the clients of one room. It keeps no canvas
// state: snapshots pass through untouched.
type Hub struct {
	mu            sync.RWMutex
	clients       map[string]*Client
	inbound       chan inbound
	register      chan *Client
	unregister    chan *Client
	quit          chan struct{}
	stopOnce      sync.Once
	roomManager   *RoomManager
	roomCode      string
	roomName      string
	gracePeriod   time.Duration
	shutdownTimer *time.Timer
	stats         HubStats
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		inbound:     make(chan inbound, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		quit:        make(chan struct{}),
		gracePeriod: domain.RoomGracePeriod,
	}
}

// cancelShutdown stops pending destroy timer
func (h *Hub) cancelShutdown() {
	if h.shutdownTimer != nil {
		h.shutdownTimer.Stop()
		h.shutdownTimer = nil
	}
}

// scheduleShutdown starts the grace period timer. The default room is never
// destroyed.
func (h *Hub) scheduleShutdown() {
	if h.roomManager == nil || h.roomCode == "" || h.roomCode == domain.DefaultRoomCode {
		return
	}
	h.cancelShutdown()
	h.shutdownTimer = time.AfterFunc(h.gracePeriod, func() {
		h.mu.RLock()
		empty := len(h.clients) == 0
		h.mu.RUnlock()
		if empty {
			log.Printf("[relay] room %s empty for %v, closing", h.roomCode, h.gracePeriod)
			h.roomManager.DeleteRoom(h.roomCode)
		}
	})
}

// Run starts the hub's main event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.cancelShutdown()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("[relay] room %s: client joined (%d connected)", h.roomCode, count)

		case client := <-h.unregister:
			h.mu.Lock()
			// Check if client exists - prevent double unregister
			if _, ok := h.clients[client.ID]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, client.ID)
			close(client.send)
			count := len(h.clients)
			if count == 0 {
				h.scheduleShutdown()
			}
			h.mu.Unlock()
			log.Printf("[relay] room %s: client left (%d connected)", h.roomCode, count)

		case in := <-h.inbound:
			h.route(in)

		case <-h.quit:
			h.mu.Lock()
			h.cancelShutdown()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}
