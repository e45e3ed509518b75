// Package canvas holds a client's local copy of the shared canvas.
//
// Local edits are applied optimistically and then announced to listeners
// (the sync client among them). Remote snapshots replace the four
// collections wholesale; there is no merge and no rollback, so a local edit
// that the relay has not yet reflected is lost when an older snapshot
// arrives after it. That is the chosen consistency model: the last snapshot
// delivered wins.
package canvas

import (
	"sync"

	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

// Origin tells listeners where a committed snapshot came from
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Mutator produces the next snapshot from the current one. It receives a
// private copy and may modify it in place.
type Mutator func(domain.Snapshot) domain.Snapshot

// Listener observes every snapshot the store commits
type Listener func(snap domain.Snapshot, origin Origin)

// Store is the client-resident canvas
type Store struct {
	// turn serializes a whole edit (commit + notification), the equivalent
	// of one event-loop turn. mu only guards the fields below.
	turn sync.Mutex
	mu   sync.RWMutex

	snapshot  domain.Snapshot
	selected  []string
	mode      Mode
	drawingID string
	listeners []Listener
}

// NewStore creates an empty store in selection mode
func NewStore() *Store {
	return &Store{
		snapshot: domain.EmptySnapshot(),
		selected: []string{},
		mode:     ModeSelection,
	}
}

// Subscribe registers a listener. Listeners run synchronously after the
// snapshot is committed, in registration order.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns a copy of the current snapshot
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// ApplyLocalEdit commits fn's result before notifying listeners, so the
// local view never waits on the network.
func (s *Store) ApplyLocalEdit(fn Mutator) domain.Snapshot {
	s.turn.Lock()
	defer s.turn.Unlock()
	return s.edit(fn)
}

// ApplyRemoteSnapshot replaces all four collections with the incoming ones
func (s *Store) ApplyRemoteSnapshot(snap domain.Snapshot) {
	s.turn.Lock()
	defer s.turn.Unlock()

	next := snap.Clone().Normalize()

	s.mu.Lock()
	s.snapshot = next
	if s.drawingID != "" && indexByID(next.Strokes, s.drawingID, strokeID) < 0 {
		s.drawingID = ""
	}
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	notify(listeners, next, OriginRemote)
}

// edit must be called with turn held
func (s *Store) edit(fn Mutator) domain.Snapshot {
	s.mu.Lock()
	next := fn(s.snapshot.Clone()).Normalize()
	s.snapshot = next
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	notify(listeners, next, OriginLocal)
	return next.Clone()
}

func notify(listeners []Listener, snap domain.Snapshot, origin Origin) {
	for _, l := range listeners {
		l(snap.Clone(), origin)
	}
}
