package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/mmuslimabdulj/goat-canvas/internal/canvas"
	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
	"github.com/mmuslimabdulj/goat-canvas/internal/presence"
)

func newTestClient() *Client {
	return New(canvas.NewStore())
}

func TestClient_ConnectSendsClientReady(t *testing.T) {
	c := newTestClient()
	tr := newChanTransport()

	if err := c.Connect(tr); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	f := <-tr.out
	assert.Equal(t, f.Type, domain.EventClientReady)
	assert.Equal(t, len(f.Payload), 0)
	assert.Equal(t, c.State(), StateBootstrapping)
}

func TestClient_EditWhileDisconnectedStaysLocal(t *testing.T) {
	c := newTestClient()

	c.Store().AddRect(1, 1)

	assert.Equal(t, len(c.Store().Snapshot().Shapes), 1)
	assert.Equal(t, c.Stats().Sent, uint64(0))
	assert.Equal(t, c.State(), StateDisconnected)
}

func TestClient_EveryEditSendsFullSnapshot(t *testing.T) {
	c := newTestClient()
	tr := newChanTransport()
	c.Connect(tr)
	<-tr.out // client-ready

	rect := c.Store().AddRect(10, 10)
	c.Store().MoveRect(rect.ID, 20, 20)

	for i := 0; i < 2; i++ {
		f := <-tr.out
		assert.Equal(t, f.Type, domain.EventStateToServer)
		snap, dropped := f.Snapshot()
		assert.Equal(t, dropped, 0)
		assert.Equal(t, len(snap.Shapes), 1)
	}

	// payload carries all four collections
	var keys map[string]json.RawMessage
	c.Store().ClearAll()
	f := <-tr.out
	if err := json.Unmarshal(f.Payload, &keys); err != nil {
		t.Fatalf("Bad payload: %v", err)
	}
	for _, k := range []string{"shapes", "strokes", "texts", "collaborators"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("Expected payload key %q", k)
		}
	}
}

func TestClient_AnswersGetCanvasState(t *testing.T) {
	c := newTestClient()
	tr := newChanTransport()
	c.Connect(tr)
	<-tr.out
	rect := c.Store().AddRect(0, 0)
	<-tr.out

	if err := c.Handle(domain.Frame{Type: domain.EventGetCanvasState}); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	f := <-tr.out
	assert.Equal(t, f.Type, domain.EventStateToServer)
	snap, _ := f.Snapshot()
	assert.Equal(t, snap.Shapes, []domain.RectShape{rect})
}

func TestClient_InboundSnapshotReplacesStore(t *testing.T) {
	c := newTestClient()
	c.Connect(newChanTransport())
	c.Store().AddRect(0, 0)

	payload := []byte(`{"shapes":[{"id":"r9","x":1,"y":2,"width":50,"height":50}]}`)
	err := c.Handle(domain.Frame{Type: domain.EventStateToClient, Payload: payload})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	snap := c.Store().Snapshot()
	assert.Equal(t, len(snap.Shapes), 1)
	assert.Equal(t, snap.Shapes[0].ID, "r9")
	assert.Equal(t, c.State(), StateLive)
	assert.Equal(t, c.Stats().Received, uint64(1))
}

func TestClient_MalformedSnapshotIsPermissive(t *testing.T) {
	c := newTestClient()
	c.Connect(newChanTransport())

	err := c.Handle(domain.Frame{Type: domain.EventStateToClient, Payload: []byte(`{"shapes":[{"x":1}]}`)})

	if err != nil {
		t.Errorf("Expected no error for malformed content, got %v", err)
	}
	assert.Equal(t, c.Store().Snapshot(), domain.EmptySnapshot())
	assert.Equal(t, c.Stats().Dropped, uint64(1))
}

func TestClient_UnexpectedEvent(t *testing.T) {
	c := newTestClient()

	err := c.Handle(domain.Frame{Type: domain.EventClientReady})

	if !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("Expected ErrUnexpectedEvent, got %v", err)
	}
}

func TestClient_OwnEchoIsIdempotent(t *testing.T) {
	relay := newMemRelay()
	a := newTestClient()
	relay.join(a)

	a.Store().AddRect(5, 5)
	before := a.Store().Snapshot()
	relay.flush()

	assert.Equal(t, a.Store().Snapshot(), before)
}

func TestClient_BootstrapFromPeer(t *testing.T) {
	relay := newMemRelay()

	a := newTestClient()
	relay.join(a)
	a.Store().AddRect(100, 100)
	relay.flush()

	b := newTestClient()
	relay.join(b)
	assert.Equal(t, b.State(), StateBootstrapping)

	// relay asks A, A answers, relay fans the answer out
	pending := relay.take()
	assert.Equal(t, len(pending), 1)
	if pending[0].to.client != a {
		t.Fatal("Expected get-canvas-state to go to the existing client")
	}
	assert.Equal(t, pending[0].frame.Type, domain.EventGetCanvasState)
	pending[0].to.deliver(pending[0].frame)
	relay.flush()

	assert.Equal(t, b.Store().Snapshot(), a.Store().Snapshot())
	assert.Equal(t, b.State(), StateLive)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.WaitSynced(ctx); err != nil {
		t.Errorf("Expected WaitSynced to return, got %v", err)
	}
}

func TestClient_FirstClientHasNoOneToAsk(t *testing.T) {
	relay := newMemRelay()
	a := newTestClient()

	relay.join(a)

	assert.Equal(t, relay.queued(), 0)
	assert.Equal(t, a.State(), StateBootstrapping)
}

func TestClient_ClearAllBroadcastsAndKeepsCursors(t *testing.T) {
	relay := newMemRelay()
	a := newTestClient()
	b := newTestClient()
	relay.join(a)
	relay.join(b)
	relay.flush()

	a.Store().ApplyLocalEdit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Shapes = []domain.RectShape{{ID: "r1"}, {ID: "r2"}}
		snap.Strokes = []domain.Stroke{{ID: "l1"}}
		snap.Texts = []domain.TextLabel{{ID: "t1"}}
		snap.Collaborators = []domain.Collaborator{{ID: "c1"}}
		return snap
	})
	relay.flush()

	a.Store().ClearAll()
	relay.flush()

	want := domain.Snapshot{Collaborators: []domain.Collaborator{{ID: "c1"}}}.Normalize()
	assert.Equal(t, a.Store().Snapshot(), want)
	assert.Equal(t, b.Store().Snapshot(), want)
}

// A edits r1 and B edits r2 from the same base before either hears from
// the other. The snapshot delivered last wins everywhere, so A's edit is lost.
func TestClient_ConcurrentEditsLastArrivalWins(t *testing.T) {
	relay := newMemRelay()
	a := newTestClient()
	b := newTestClient()
	relay.join(a)
	relay.join(b)
	relay.flush()

	a.Store().ApplyLocalEdit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Shapes = []domain.RectShape{{ID: "r1"}, {ID: "r2"}}
		return snap
	})
	relay.flush()

	a.Store().MoveRect("r1", 10, 0)
	b.Store().MoveRect("r2", 0, 20)
	relay.flush() // A's snapshot is delivered first, B's last

	want := []domain.RectShape{{ID: "r1", X: 0}, {ID: "r2", Y: 20}}
	assert.Equal(t, a.Store().Snapshot().Shapes, want)
	assert.Equal(t, b.Store().Snapshot().Shapes, want)
}

func TestClient_ReverseArrivalKeepsTheOtherEdit(t *testing.T) {
	relay := newMemRelay()
	a := newTestClient()
	b := newTestClient()
	relay.join(a)
	relay.join(b)
	relay.flush()

	a.Store().ApplyLocalEdit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Shapes = []domain.RectShape{{ID: "r1"}, {ID: "r2"}}
		return snap
	})
	relay.flush()

	a.Store().MoveRect("r1", 10, 0)
	fromA := relay.take()
	b.Store().MoveRect("r2", 0, 20)
	fromB := relay.take()

	for _, d := range append(fromB, fromA...) {
		d.to.deliver(d.frame)
	}

	want := []domain.RectShape{{ID: "r1", X: 10}, {ID: "r2", Y: 0}}
	assert.Equal(t, a.Store().Snapshot().Shapes, want)
	assert.Equal(t, b.Store().Snapshot().Shapes, want)
}

func TestClient_PresenceTravelsWithSnapshot(t *testing.T) {
	relay := newMemRelay()
	a := newTestClient()
	b := newTestClient()
	relay.join(a)
	relay.join(b)
	relay.flush()

	ta := presence.NewTracker(a.Store(), "user-a")
	tb := presence.NewTracker(b.Store(), "user-b")

	ta.Move(1, 1)
	relay.flush()
	tb.Move(2, 2)
	relay.flush()

	assert.Equal(t, len(a.Store().Snapshot().Collaborators), 2)
	assert.Equal(t, tb.Visible(), []domain.Collaborator{{ID: "user-a", UserName: "User #1", X: 1, Y: 1}})
	assert.Equal(t, ta.Visible(), []domain.Collaborator{{ID: "user-b", UserName: "User #2", X: 2, Y: 2}})
}

func TestClient_RunAppliesInboundAndStopsOnError(t *testing.T) {
	var handled int
	c := New(canvas.NewStore(), WithSnapshotHandler(func(domain.Snapshot) { handled++ }))
	tr := newChanTransport()
	c.Connect(tr)
	<-tr.out

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	tr.in <- domain.Frame{Type: domain.EventStateToClient, Payload: []byte(`{"texts":[{"id":"t1","text":"hi"}]}`)}
	tr.in <- domain.Frame{Type: "bogus"}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.WaitSynced(ctx); err != nil {
		t.Fatalf("Expected sync, got %v", err)
	}

	tr.err <- errors.New("connection reset")
	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected Run to return the transport error")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}

	assert.Equal(t, handled, 1)
	assert.Equal(t, len(c.Store().Snapshot().Texts), 1)
	assert.Equal(t, c.State(), StateDisconnected)
}

func TestClient_ReconnectBootstrapsAgain(t *testing.T) {
	c := newTestClient()
	first := newChanTransport()
	c.Connect(first)
	<-first.out
	c.Handle(domain.Frame{Type: domain.EventStateToClient})
	assert.Equal(t, c.State(), StateLive)

	c.Close()
	assert.Equal(t, c.State(), StateDisconnected)

	second := newChanTransport()
	c.Connect(second)
	f := <-second.out
	assert.Equal(t, f.Type, domain.EventClientReady)
	assert.Equal(t, c.State(), StateBootstrapping)
}
