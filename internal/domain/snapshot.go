package domain

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Snapshot is the unit of synchronization: the full canvas plus presence.
// It is always sent and applied whole.
type Snapshot struct {
	Shapes        []RectShape    `json:"shapes"`
	Strokes       []Stroke       `json:"strokes"`
	Texts         []TextLabel    `json:"texts"`
	Collaborators []Collaborator `json:"collaborators"`
}

// EmptySnapshot returns a snapshot with all four collections empty (not nil)
func EmptySnapshot() Snapshot {
	return Snapshot{
		Shapes:        []RectShape{},
		Strokes:       []Stroke{},
		Texts:         []TextLabel{},
		Collaborators: []Collaborator{},
	}
}

// Normalize replaces nil collections with empty ones so that encoding
// always produces arrays and equality checks do not trip over nil vs empty.
func (s Snapshot) Normalize() Snapshot {
	if s.Shapes == nil {
		s.Shapes = []RectShape{}
	}
	if s.Strokes == nil {
		s.Strokes = []Stroke{}
	}
	if s.Texts == nil {
		s.Texts = []TextLabel{}
	}
	if s.Collaborators == nil {
		s.Collaborators = []Collaborator{}
	}
	return s
}

// Clone returns a deep copy
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Shapes:        append([]RectShape{}, s.Shapes...),
		Strokes:       make([]Stroke, len(s.Strokes)),
		Texts:         append([]TextLabel{}, s.Texts...),
		Collaborators: append([]Collaborator{}, s.Collaborators...),
	}
	for i, st := range s.Strokes {
		st.Points = slices.Clone(st.Points)
		out.Strokes[i] = st
	}
	return out
}

// IsCanvasEmpty reports whether there are no shapes, strokes or texts
func (s Snapshot) IsCanvasEmpty() bool {
	return len(s.Shapes) == 0 && len(s.Strokes) == 0 && len(s.Texts) == 0
}

// wireSnapshot accepts both the canonical keys and the spellings used by the
// original browser client ("lines", "userCursors").
type wireSnapshot struct {
	Shapes        json.RawMessage `json:"shapes"`
	Strokes       json.RawMessage `json:"strokes"`
	Lines         json.RawMessage `json:"lines"`
	Texts         json.RawMessage `json:"texts"`
	Collaborators json.RawMessage `json:"collaborators"`
	UserCursors   json.RawMessage `json:"userCursors"`
}

// DecodeSnapshot parses a snapshot payload permissively. A missing or null
// payload and missing collections yield empty collections; entities that
// fail to decode or validate are dropped and counted.
func DecodeSnapshot(raw []byte) (Snapshot, int) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return EmptySnapshot(), 0
	}

	var w wireSnapshot
	if err := json.Unmarshal(raw, &w); err != nil {
		return EmptySnapshot(), 1
	}

	var snap Snapshot
	dropped := 0
	n := 0

	snap.Shapes, n = decodeEach[RectShape](w.Shapes)
	dropped += n
	snap.Strokes, n = decodeEach[Stroke](pick(w.Strokes, w.Lines))
	dropped += n
	snap.Texts, n = decodeEach[TextLabel](w.Texts)
	dropped += n
	snap.Collaborators, n = decodeEach[Collaborator](pick(w.Collaborators, w.UserCursors))
	dropped += n

	return snap, dropped
}

// UnmarshalJSON implements json.Unmarshaler with DecodeSnapshot semantics
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	*s, _ = DecodeSnapshot(data)
	return nil
}

func pick(canonical, alias json.RawMessage) json.RawMessage {
	if len(canonical) > 0 && !bytes.Equal(canonical, []byte("null")) {
		return canonical
	}
	return alias
}

type validator interface {
	Validate() error
}

func decodeEach[T validator](raw json.RawMessage) ([]T, int) {
	out := []T{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, 0
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out, 1
	}

	dropped := 0
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			dropped++
			continue
		}
		if err := v.Validate(); err != nil {
			dropped++
			continue
		}
		out = append(out, v)
	}
	return out, dropped
}
