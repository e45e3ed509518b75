// Package syncclient replicates a canvas.Store through a relay.
//
// Every local edit sends the complete snapshot; every snapshot the relay
// delivers replaces the local one. A newcomer announces itself with
// client-ready and waits for a peer's snapshot. Messages are fire-and-forget:
// nothing is acknowledged, retried or buffered across disconnects.
package syncclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mmuslimabdulj/goat-canvas/internal/canvas"
	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

var (
	// ErrNotConnected is returned when there is no transport to send on
	ErrNotConnected = errors.New("not connected")

	// ErrUnexpectedEvent is returned for frames a client never handles
	ErrUnexpectedEvent = errors.New("unexpected event")
)

// Transport carries frames to and from the relay. Send must be safe to call
// concurrently with Receive and must not wait on the network: it runs inside
// the store's edit turn, so a slow Send stalls every local edit.
type Transport interface {
	Send(f domain.Frame) error
	Receive(ctx context.Context) (domain.Frame, error)
	Close() error
}

// State of the protocol engine
type State int

const (
	StateDisconnected State = iota
	StateBootstrapping      // client-ready sent, no snapshot received yet
	StateLive
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateLive:
		return "live"
	}
	return "disconnected"
}

// Stats counts protocol traffic
type Stats struct {
	Sent       uint64
	Received   uint64
	Dropped    uint64 // frames or entities discarded on receipt
	SendErrors uint64
}

// Option configures a Client
type Option func(*Client)

// WithSnapshotHandler is called after each inbound snapshot is applied
func WithSnapshotHandler(fn func(domain.Snapshot)) Option {
	return func(c *Client) {
		c.onSnapshot = fn
	}
}

// Client is the sync engine for one canvas.Store
type Client struct {
	store      *canvas.Store
	onSnapshot func(domain.Snapshot)

	mu        sync.Mutex
	transport Transport
	state     State
	synced    chan struct{}
	stats     Stats
}

// New creates a client and hooks it to the store's local edits
func New(store *canvas.Store, opts ...Option) *Client {
	c := &Client{
		store:  store,
		synced: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	store.Subscribe(func(snap domain.Snapshot, origin canvas.Origin) {
		if origin == canvas.OriginLocal {
			c.publish(snap)
		}
	})
	return c
}

// Store returns the replicated store
func (c *Client) Store() *canvas.Store {
	return c.store
}

// State returns the current protocol state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a copy of the traffic counters
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Connect attaches a transport and starts the bootstrap by sending
// client-ready. A reconnect always starts the bootstrap from scratch.
func (c *Client) Connect(t Transport) error {
	c.mu.Lock()
	c.transport = t
	c.state = StateBootstrapping
	c.synced = make(chan struct{})
	c.mu.Unlock()

	if err := c.send(domain.Frame{Type: domain.EventClientReady}); err != nil {
		c.detach(t)
		return fmt.Errorf("send client-ready: %w", err)
	}
	return nil
}

// Run handles inbound frames until the transport fails or ctx ends. Bad
// frames are logged and skipped; only the transport ending stops the loop.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}
	defer c.detach(t)

	for {
		f, err := t.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive: %w", err)
		}
		if err := c.Handle(f); err != nil {
			log.Printf("[sync] %v", err)
		}
	}
}

// Handle processes one frame from the relay
func (c *Client) Handle(f domain.Frame) error {
	switch f.Type {
	case domain.EventGetCanvasState:
		// no election: every asked peer answers on the normal channel
		frame, err := domain.NewSnapshotFrame(domain.EventStateToServer, c.store.Snapshot())
		if err != nil {
			return err
		}
		return c.send(frame)

	case domain.EventStateToClient:
		snap, dropped := f.Snapshot()
		c.store.ApplyRemoteSnapshot(snap)

		c.mu.Lock()
		c.stats.Received++
		c.stats.Dropped += uint64(dropped)
		if c.state == StateBootstrapping {
			c.state = StateLive
			close(c.synced)
		}
		c.mu.Unlock()

		if c.onSnapshot != nil {
			c.onSnapshot(snap)
		}
		return nil
	}

	c.mu.Lock()
	c.stats.Dropped++
	c.mu.Unlock()
	return fmt.Errorf("%w: %q", ErrUnexpectedEvent, f.Type)
}

// WaitSynced blocks until the first snapshot after Connect is applied
func (c *Client) WaitSynced(ctx context.Context) error {
	c.mu.Lock()
	synced := c.synced
	c.mu.Unlock()

	select {
	case <-synced:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches and closes the transport
func (c *Client) Close() error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return nil
	}
	c.detach(t)
	return t.Close()
}

// publish runs for every local edit. A disconnected client keeps editing
// locally, but nothing is queued: the bootstrap after a reconnect replaces
// those edits with a peer's snapshot.
func (c *Client) publish(snap domain.Snapshot) {
	frame, err := domain.NewSnapshotFrame(domain.EventStateToServer, snap)
	if err != nil {
		log.Printf("[sync] publish: %v", err)
		return
	}
	if err := c.send(frame); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Printf("[sync] publish: %v", err)
	}
}

func (c *Client) send(f domain.Frame) error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}

	err := t.Send(f)

	c.mu.Lock()
	if err != nil {
		c.stats.SendErrors++
	} else {
		c.stats.Sent++
	}
	c.mu.Unlock()
	return err
}

func (c *Client) detach(t Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == t {
		c.transport = nil
		c.state = StateDisconnected
	}
}
