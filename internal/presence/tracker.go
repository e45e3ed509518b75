// Package presence keeps this client's cursor record in the shared snapshot
// and decides which peer cursors to draw.
package presence

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mmuslimabdulj/goat-canvas/internal/canvas"
	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

// Option configures a Tracker
type Option func(*Tracker)

// WithTTL hides and sweeps peer records that have not changed for ttl.
// Zero keeps departed cursors forever.
func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		t.ttl = ttl
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithName sets the display name used when the own record is first created
func WithName(name string) Option {
	return func(t *Tracker) {
		t.name = name
	}
}

type sighting struct {
	record domain.Collaborator
	at     time.Time
}

// Tracker owns the local participant's Collaborator record
type Tracker struct {
	store  *canvas.Store
	selfID string

	mu       sync.Mutex
	name     string
	ttl      time.Duration
	now      func() time.Time
	lastSeen map[string]sighting
}

// NewTracker creates a tracker for selfID and starts observing store
func NewTracker(store *canvas.Store, selfID string, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		selfID:   selfID,
		now:      time.Now,
		lastSeen: make(map[string]sighting),
	}
	for _, opt := range opts {
		opt(t)
	}
	store.Subscribe(func(snap domain.Snapshot, origin canvas.Origin) {
		if origin == canvas.OriginRemote {
			t.Observe(snap)
		}
	})
	return t
}

// SelfID returns the local participant id
func (t *Tracker) SelfID() string {
	return t.selfID
}

// Move records the local pointer position. The first call creates the own
// record, named "User #n" unless a name was chosen. The generated name is
// kept, so a record swept by a peer comes back under the same name.
func (t *Tracker) Move(x, y float64) domain.Snapshot {
	t.mu.Lock()
	name := t.name
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		if t.name == "" {
			t.name = name
		}
		t.mu.Unlock()
	}()
	return t.store.ApplyLocalEdit(func(snap domain.Snapshot) domain.Snapshot {
		i := slices.IndexFunc(snap.Collaborators, func(c domain.Collaborator) bool {
			return c.ID == t.selfID
		})
		if i >= 0 {
			snap.Collaborators[i].X = x
			snap.Collaborators[i].Y = y
			return snap
		}
		if name == "" {
			name = fmt.Sprintf("User #%d", len(snap.Collaborators)+1)
		}
		snap.Collaborators = append(snap.Collaborators, domain.Collaborator{
			ID:       t.selfID,
			UserName: name,
			X:        x,
			Y:        y,
		})
		return snap
	})
}

// Rename changes the display name of the own record only
func (t *Tracker) Rename(name string) domain.Snapshot {
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()

	return t.store.ApplyLocalEdit(func(snap domain.Snapshot) domain.Snapshot {
		for i := range snap.Collaborators {
			if snap.Collaborators[i].ID == t.selfID {
				snap.Collaborators[i].UserName = name
			}
		}
		return snap
	})
}

// Name returns the own display name as it appears in the snapshot
func (t *Tracker) Name() string {
	for _, c := range t.store.Snapshot().Collaborators {
		if c.ID == t.selfID {
			return c.UserName
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// Observe notes which peer records changed in an inbound snapshot
func (t *Tracker) Observe(snap domain.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for _, c := range snap.Collaborators {
		if c.ID == t.selfID {
			continue
		}
		prev, ok := t.lastSeen[c.ID]
		if !ok || prev.record != c {
			t.lastSeen[c.ID] = sighting{record: c, at: now}
		}
	}
}

// Visible returns the peer cursors to draw: never the own record, and with
// a TTL never a record that has gone quiet.
func (t *Tracker) Visible() []domain.Collaborator {
	snap := t.store.Snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Collaborator, 0, len(snap.Collaborators))
	for _, c := range snap.Collaborators {
		if c.ID == t.selfID || t.staleLocked(c.ID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Sweep removes stale peer records from the snapshot through a local edit,
// which broadcasts the pruned snapshot. Returns the number removed.
// Sightings are kept, so a stale record echoed back unchanged by a peer
// stays stale.
func (t *Tracker) Sweep() int {
	if t.ttl <= 0 {
		return 0
	}

	snap := t.store.Snapshot()
	t.mu.Lock()
	stale := make([]string, 0)
	for _, c := range snap.Collaborators {
		if c.ID != t.selfID && t.staleLocked(c.ID) {
			stale = append(stale, c.ID)
		}
	}
	t.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}
	t.store.ApplyLocalEdit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Collaborators = slices.DeleteFunc(snap.Collaborators, func(c domain.Collaborator) bool {
			return slices.Contains(stale, c.ID)
		})
		return snap
	})
	return len(stale)
}

// staleLocked must be called with mu held
func (t *Tracker) staleLocked(id string) bool {
	if t.ttl <= 0 {
		return false
	}
	seen, ok := t.lastSeen[id]
	if !ok {
		// records we never saw arrive remotely (e.g. created before we
		// subscribed) start their clock now
		t.lastSeen[id] = sighting{at: t.now()}
		return false
	}
	return t.now().Sub(seen.at) > t.ttl
}
