package ws

import (
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Outbound frames buffered per client before it counts as slow
	sendBuffer = 256
)

// Client is one websocket connection to the relay
type Client struct {
	ID             string
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	maxMessageSize int64
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, maxMessageSize int64) *Client {
	if maxMessageSize <= 0 {
		maxMessageSize = domain.MaxMessageSize
	}
	return &Client{
		ID:             domain.NewID(),
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		maxMessageSize: maxMessageSize,
	}
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				log.Printf("[relay] client %s exceeded %d byte frame limit", c.ID, c.maxMessageSize)
			}
			break
		}

		frame, err := domain.ParseFrame(message)
		if err != nil {
			log.Printf("[relay] client %s: %v", c.ID, err)
			continue
		}
		if !frame.Type.FromClient() {
			log.Printf("[relay] client %s sent relay event %q", c.ID, frame.Type)
			continue
		}

		c.hub.Dispatch(c, frame)
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
