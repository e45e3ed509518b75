package canvas

import (
	"math"
	"slices"

	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

func rectID(r domain.RectShape) string { return r.ID }
func strokeID(s domain.Stroke) string { return s.ID }
func textID(t domain.TextLabel) string { return t.ID }

func indexByID[T any](items []T, id string, key func(T) string) int {
	return slices.IndexFunc(items, func(v T) bool { return key(v) == id })
}

// ==== Mode & selection (local only, never synchronized) ====

// Mode returns the current interaction mode
func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches mode, dropping the selection and any stroke in progress
func (s *Store) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	s.selected = []string{}
	s.drawingID = ""
}

// Select makes id the single selected item. Only effective in selection mode.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeSelection {
		return false
	}
	s.selected = []string{id}
	return true
}

// Deselect clears the selection in selection mode (end of a drag)
func (s *Store) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeSelection {
		return
	}
	s.selected = []string{}
}

// ClearSelection clears the selection regardless of mode (click on empty stage)
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = []string{}
}

// Selected returns the selected ids
func (s *Store) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.selected...)
}

// IsSelected reports whether id is selected
func (s *Store) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.selected, id)
}

// ==== Rectangles ====

// AddRect creates a default rectangle at (x, y) and returns to selection mode
func (s *Store) AddRect(x, y float64) domain.RectShape {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.SetMode(ModeSelection)
	rect := domain.NewRect(x, y)
	s.edit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Shapes = append(snap.Shapes, rect)
		return snap
	})
	return rect
}

// UpdateRect applies fn to the rectangle with the given id. It reports
// false, and emits nothing, when no such rectangle exists.
func (s *Store) UpdateRect(id string, fn func(*domain.RectShape)) bool {
	s.turn.Lock()
	defer s.turn.Unlock()

	if s.find(func(snap domain.Snapshot) int { return indexByID(snap.Shapes, id, rectID) }) < 0 {
		return false
	}
	s.edit(func(snap domain.Snapshot) domain.Snapshot {
		i := indexByID(snap.Shapes, id, rectID)
		fn(&snap.Shapes[i])
		return snap
	})
	return true
}

// MoveRect is the end of a drag
func (s *Store) MoveRect(id string, x, y float64) bool {
	return s.UpdateRect(id, func(r *domain.RectShape) {
		r.X, r.Y = x, y
	})
}

// TransformRect is the end of a resize/rotate. Width and height are clamped
// to MinRectSize.
func (s *Store) TransformRect(id string, x, y, width, height, rotation float64) bool {
	return s.UpdateRect(id, func(r *domain.RectShape) {
		r.X, r.Y = x, y
		r.Width = math.Max(domain.MinRectSize, width)
		r.Height = math.Max(domain.MinRectSize, height)
		r.Rotation = rotation
	})
}

// SetRectStroke changes the outline color
func (s *Store) SetRectStroke(id, color string) bool {
	return s.UpdateRect(id, func(r *domain.RectShape) {
		r.Stroke = color
	})
}

// ==== Freehand strokes ====

// BeginStroke starts a stroke at (x, y). Only effective in pencil mode.
func (s *Store) BeginStroke(x, y float64) (string, bool) {
	s.turn.Lock()
	defer s.turn.Unlock()

	if s.Mode() != ModePencil {
		return "", false
	}
	stroke := domain.NewStroke(x, y)
	s.mu.Lock()
	s.drawingID = stroke.ID
	s.mu.Unlock()

	s.edit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Strokes = append(snap.Strokes, stroke)
		return snap
	})
	return stroke.ID, true
}

// ExtendStroke appends a point to the stroke being drawn
func (s *Store) ExtendStroke(x, y float64) bool {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.RLock()
	id := s.drawingID
	s.mu.RUnlock()
	if id == "" {
		return false
	}
	if s.find(func(snap domain.Snapshot) int { return indexByID(snap.Strokes, id, strokeID) }) < 0 {
		return false
	}
	s.edit(func(snap domain.Snapshot) domain.Snapshot {
		i := indexByID(snap.Strokes, id, strokeID)
		snap.Strokes[i].Points = append(snap.Strokes[i].Points, x, y)
		return snap
	})
	return true
}

// EndStroke finishes the stroke in progress; the stroke's points are fixed
// from here on.
func (s *Store) EndStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawingID = ""
}

// IsDrawing reports whether a stroke is in progress
func (s *Store) IsDrawing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawingID != ""
}

// TransformStroke moves and rotates a whole stroke
func (s *Store) TransformStroke(id string, x, y, rotation float64) bool {
	s.turn.Lock()
	defer s.turn.Unlock()

	if s.find(func(snap domain.Snapshot) int { return indexByID(snap.Strokes, id, strokeID) }) < 0 {
		return false
	}
	s.edit(func(snap domain.Snapshot) domain.Snapshot {
		i := indexByID(snap.Strokes, id, strokeID)
		snap.Strokes[i].X, snap.Strokes[i].Y = x, y
		snap.Strokes[i].Rotation = rotation
		return snap
	})
	return true
}

// ==== Text labels ====

// PlaceText commits the text editor content anchored at (x, y). Empty text
// creates nothing. Either way the store returns to selection mode.
func (s *Store) PlaceText(x, y float64, text string) (domain.TextLabel, bool) {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.SetMode(ModeSelection)
	if text == "" {
		return domain.TextLabel{}, false
	}
	label := domain.TextLabel{
		ID:   domain.NewID(),
		X:    x,
		Y:    y + domain.TextBaselineOffset,
		Text: text,
	}
	s.edit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Texts = append(snap.Texts, label)
		return snap
	})
	return label, true
}

// UpdateText applies fn to the label with the given id
func (s *Store) UpdateText(id string, fn func(*domain.TextLabel)) bool {
	s.turn.Lock()
	defer s.turn.Unlock()

	if s.find(func(snap domain.Snapshot) int { return indexByID(snap.Texts, id, textID) }) < 0 {
		return false
	}
	s.edit(func(snap domain.Snapshot) domain.Snapshot {
		i := indexByID(snap.Texts, id, textID)
		fn(&snap.Texts[i])
		return snap
	})
	return true
}

// TransformText moves and rotates a label
func (s *Store) TransformText(id string, x, y, rotation float64) bool {
	return s.UpdateText(id, func(t *domain.TextLabel) {
		t.X, t.Y = x, y
		t.Rotation = rotation
	})
}

// RetypeText replaces a label's text
func (s *Store) RetypeText(id, text string) bool {
	return s.UpdateText(id, func(t *domain.TextLabel) {
		t.Text = text
	})
}

// ==== Bulk commands ====

// DeleteSelected removes every shape, stroke and text whose id is selected.
// Collaborators are never touched. Returns the number of entities removed.
func (s *Store) DeleteSelected() int {
	s.turn.Lock()
	defer s.turn.Unlock()

	selected := s.Selected()
	if len(selected) == 0 {
		return 0
	}
	removed := 0
	s.edit(func(snap domain.Snapshot) domain.Snapshot {
		before := len(snap.Shapes) + len(snap.Strokes) + len(snap.Texts)
		snap.Shapes = slices.DeleteFunc(snap.Shapes, func(r domain.RectShape) bool {
			return slices.Contains(selected, r.ID)
		})
		snap.Strokes = slices.DeleteFunc(snap.Strokes, func(st domain.Stroke) bool {
			return slices.Contains(selected, st.ID)
		})
		snap.Texts = slices.DeleteFunc(snap.Texts, func(t domain.TextLabel) bool {
			return slices.Contains(selected, t.ID)
		})
		removed = before - len(snap.Shapes) - len(snap.Strokes) - len(snap.Texts)
		return snap
	})
	s.ClearSelection()
	return removed
}

// ClearAll empties shapes, strokes and texts. Collaborator cursors survive.
func (s *Store) ClearAll() domain.Snapshot {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.SetMode(ModeSelection)
	return s.edit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Shapes = []domain.RectShape{}
		snap.Strokes = []domain.Stroke{}
		snap.Texts = []domain.TextLabel{}
		return snap
	})
}

func (s *Store) find(fn func(domain.Snapshot) int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.snapshot)
}
