package syncclient

import (
	"context"
	"errors"
	"sync"

	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

// memRelay mimics the websocket relay in memory with a delivery queue the
// test drains explicitly, so arrival order is under test control.
type memRelay struct {
	mu      sync.Mutex
	conns   []*memConn
	pending []delivery
}

type delivery struct {
	to    *memConn
	frame domain.Frame
}

type memConn struct {
	relay  *memRelay
	client *Client
	closed bool
}

func newMemRelay() *memRelay {
	return &memRelay{}
}

// join connects a client through a new in-memory conn
func (r *memRelay) join(c *Client) *memConn {
	conn := &memConn{relay: r, client: c}
	r.mu.Lock()
	r.conns = append(r.conns, conn)
	r.mu.Unlock()
	if err := c.Connect(conn); err != nil {
		panic(err)
	}
	return conn
}

func (r *memRelay) route(from *memConn, f domain.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch f.Type {
	case domain.EventClientReady:
		for _, c := range r.conns {
			if c != from && !c.closed {
				r.pending = append(r.pending, delivery{to: c, frame: domain.Frame{Type: domain.EventGetCanvasState}})
			}
		}
	case domain.EventStateToServer:
		out := domain.Frame{Type: domain.EventStateToClient, Payload: f.Payload}
		for _, c := range r.conns {
			if !c.closed {
				r.pending = append(r.pending, delivery{to: c, frame: out})
			}
		}
	}
}

// queued returns the number of undelivered frames
func (r *memRelay) queued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// take removes and returns the pending deliveries in send order
func (r *memRelay) take() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

// flush delivers everything, including frames produced while delivering
func (r *memRelay) flush() {
	for r.queued() > 0 {
		for _, d := range r.take() {
			d.to.deliver(d.frame)
		}
	}
}

func (c *memConn) deliver(f domain.Frame) {
	if !c.closed {
		_ = c.client.Handle(f)
	}
}

func (c *memConn) Send(f domain.Frame) error {
	if c.closed {
		return errors.New("closed")
	}
	c.relay.route(c, f)
	return nil
}

func (c *memConn) Receive(ctx context.Context) (domain.Frame, error) {
	<-ctx.Done()
	return domain.Frame{}, ctx.Err()
}

func (c *memConn) Close() error {
	c.closed = true
	return nil
}

// chanTransport is a transport backed by channels, for exercising Run
type chanTransport struct {
	in  chan domain.Frame
	out chan domain.Frame
	err chan error
}

func newChanTransport() *chanTransport {
	return &chanTransport{
		in:  make(chan domain.Frame, 16),
		out: make(chan domain.Frame, 16),
		err: make(chan error, 1),
	}
}

func (t *chanTransport) Send(f domain.Frame) error {
	t.out <- f
	return nil
}

func (t *chanTransport) Receive(ctx context.Context) (domain.Frame, error) {
	select {
	case f := <-t.in:
		return f, nil
	case err := <-t.err:
		return domain.Frame{}, err
	case <-ctx.Done():
		return domain.Frame{}, ctx.Err()
	}
}

func (t *chanTransport) Close() error {
	return nil
}
