package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

// RelayURL builds the websocket URL of a room from a relay base address.
// http(s) schemes are mapped to ws(s); a bare host:port gets ws.
func RelayURL(base, room string) (string, error) {
	if !strings.Contains(base, "://") {
		base = "ws://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	if room != "" {
		q := u.Query()
		q.Set("room", room)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

var (
	// ErrSendQueueFull is returned when a frame is dropped because the
	// writer has fallen behind
	ErrSendQueueFull = errors.New("send queue full")

	// ErrConnClosed is returned by Send after Close
	ErrConnClosed = errors.New("connection closed")
)

// Conn is the client side of a relay connection. It satisfies
// syncclient.Transport. Outgoing frames are queued and written by a single
// writer goroutine, so Send never waits on the network.
type Conn struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	dropped atomic.Int64
	pending []domain.Frame // frames left over from a batched message
}

// Dial connects to a relay room
func Dial(ctx context.Context, base, room string) (*Conn, error) {
	target, err := RelayURL(base, room)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	c := newConn(conn)
	go c.writePump()
	return c, nil
}

func newConn(conn *websocket.Conn) *Conn {
	return &Conn{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Send queues one frame. When the queue is full the frame is dropped and
// counted; the next snapshot supersedes it anyway.
func (c *Conn) Send(f domain.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Type, err)
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.dropped.Add(1)
		return fmt.Errorf("%w: %s dropped", ErrSendQueueFull, f.Type)
	}
}

// Dropped returns the number of frames discarded by Send
func (c *Conn) Dropped() int64 {
	return c.dropped.Load()
}

// writePump drains the send queue. On Close it flushes what is left and
// says goodbye; on a write error it closes the socket so Receive fails too.
func (c *Conn) writePump() {
	defer close(c.stopped)

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				log.Printf("[sync] write: %v", err)
				c.conn.Close()
				return
			}
		case <-c.done:
			for {
				select {
				case message := <-c.send:
					if err := c.write(message); err != nil {
						return
					}
				default:
					c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}

func (c *Conn) write(message []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Receive returns the next frame. The relay may batch several frames into
// one message separated by newlines; they are handed out one at a time.
// Undecodable frames are skipped.
func (c *Conn) Receive(ctx context.Context) (domain.Frame, error) {
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for len(c.pending) == 0 {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return domain.Frame{}, ctx.Err()
			}
			return domain.Frame{}, err
		}
		for _, part := range bytes.Split(message, []byte{'\n'}) {
			if len(bytes.TrimSpace(part)) == 0 {
				continue
			}
			f, err := domain.ParseFrame(part)
			if err != nil {
				log.Printf("[sync] skipping frame: %v", err)
				continue
			}
			c.pending = append(c.pending, f)
		}
	}

	f := c.pending[0]
	c.pending = c.pending[1:]
	return f, nil
}

// Close flushes queued frames, sends a close message and closes the
// connection
func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	<-c.stopped
	return c.conn.Close()
}
