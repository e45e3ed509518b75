package canvas

import (
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

func recordLocal(s *Store) *[]domain.Snapshot {
	var emitted []domain.Snapshot
	s.Subscribe(func(snap domain.Snapshot, origin Origin) {
		if origin == OriginLocal {
			emitted = append(emitted, snap)
		}
	})
	return &emitted
}

func TestNewStore(t *testing.T) {
	s := NewStore()

	assert.Equal(t, s.Snapshot(), domain.EmptySnapshot())
	assert.Equal(t, s.Mode(), ModeSelection)
	assert.Equal(t, len(s.Selected()), 0)
}

func TestStore_ApplyLocalEdit_CommitsBeforeNotify(t *testing.T) {
	s := NewStore()
	var seenInListener domain.Snapshot
	s.Subscribe(func(snap domain.Snapshot, origin Origin) {
		// the store must already hold the edit when listeners run
		seenInListener = s.Snapshot()
	})

	out := s.ApplyLocalEdit(func(snap domain.Snapshot) domain.Snapshot {
		snap.Shapes = append(snap.Shapes, domain.RectShape{ID: "r1"})
		return snap
	})

	assert.Equal(t, len(out.Shapes), 1)
	assert.Equal(t, seenInListener, out)
	assert.Equal(t, s.Snapshot(), out)
}

func TestStore_ApplyLocalEdit_NormalizesNil(t *testing.T) {
	s := NewStore()

	out := s.ApplyLocalEdit(func(snap domain.Snapshot) domain.Snapshot {
		return domain.Snapshot{}
	})

	assert.Equal(t, out, domain.EmptySnapshot())
}

func TestStore_LocalEditSequence(t *testing.T) {
	s := NewStore()
	emitted := recordLocal(s)

	rect := s.AddRect(100, 200)
	assert.Equal(t, len(s.Snapshot().Shapes), 1)
	assert.Equal(t, s.Snapshot().Shapes[0], rect)

	if !s.MoveRect(rect.ID, 10, 20) {
		t.Fatal("Expected MoveRect to find the rect")
	}
	got := s.Snapshot().Shapes[0]
	assert.Equal(t, got.X, 10.0)
	assert.Equal(t, got.Y, 20.0)

	s.Select(rect.ID)
	removed := s.DeleteSelected()
	assert.Equal(t, removed, 1)
	assert.Equal(t, len(s.Snapshot().Shapes), 0)

	// create, move, delete: three emissions, each the full snapshot
	assert.Equal(t, len(*emitted), 3)
	assert.Equal(t, (*emitted)[2], s.Snapshot())
}

func TestStore_UpdateMissingEntityEmitsNothing(t *testing.T) {
	s := NewStore()
	emitted := recordLocal(s)

	if s.MoveRect("nope", 1, 1) {
		t.Error("Expected MoveRect on a missing id to fail")
	}
	if s.TransformStroke("nope", 1, 1, 0) {
		t.Error("Expected TransformStroke on a missing id to fail")
	}
	if s.RetypeText("nope", "x") {
		t.Error("Expected RetypeText on a missing id to fail")
	}
	assert.Equal(t, len(*emitted), 0)
}

func TestStore_TransformRectClampsSize(t *testing.T) {
	s := NewStore()
	rect := s.AddRect(0, 0)

	s.TransformRect(rect.ID, 5, 6, 1, 200, 45)

	got := s.Snapshot().Shapes[0]
	assert.Equal(t, got.Width, domain.MinRectSize)
	assert.Equal(t, got.Height, 200.0)
	assert.Equal(t, got.Rotation, 45.0)
	assert.Equal(t, got.X, 5.0)
}

func TestStore_StrokeLifecycle(t *testing.T) {
	s := NewStore()

	if _, ok := s.BeginStroke(0, 0); ok {
		t.Fatal("Expected BeginStroke to be ignored outside pencil mode")
	}

	s.SetMode(ModePencil)
	id, ok := s.BeginStroke(1, 2)
	if !ok {
		t.Fatal("Expected BeginStroke to succeed in pencil mode")
	}
	s.ExtendStroke(3, 4)
	s.ExtendStroke(5, 6)
	s.EndStroke()

	if s.ExtendStroke(7, 8) {
		t.Error("Expected ExtendStroke after EndStroke to be ignored")
	}

	strokes := s.Snapshot().Strokes
	assert.Equal(t, len(strokes), 1)
	assert.Equal(t, strokes[0].ID, id)
	assert.Equal(t, strokes[0].Points, []float64{1, 2, 3, 4, 5, 6})

	s.TransformStroke(id, 10, 10, 90)
	moved := s.Snapshot().Strokes[0]
	assert.Equal(t, moved.Points, []float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, moved.X, 10.0)
	assert.Equal(t, moved.Rotation, 90.0)
}

func TestStore_PlaceText(t *testing.T) {
	s := NewStore()
	s.SetMode(ModeText)

	if _, ok := s.PlaceText(10, 10, ""); ok {
		t.Error("Expected empty text to create nothing")
	}
	assert.Equal(t, s.Mode(), ModeSelection)
	assert.Equal(t, len(s.Snapshot().Texts), 0)

	s.SetMode(ModeText)
	label, ok := s.PlaceText(10, 10, "hello")
	if !ok {
		t.Fatal("Expected text to be placed")
	}
	assert.Equal(t, label.Y, 10+domain.TextBaselineOffset)
	assert.Equal(t, s.Mode(), ModeSelection)

	s.RetypeText(label.ID, "bye")
	s.TransformText(label.ID, 1, 2, 30)
	got := s.Snapshot().Texts[0]
	assert.Equal(t, got.Text, "bye")
	assert.Equal(t, got.Rotation, 30.0)
}

func TestStore_ApplyRemoteSnapshotReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.AddRect(0, 0)
	s.SetMode(ModePencil)
	s.BeginStroke(0, 0)

	remote := domain.Snapshot{
		Shapes:        []domain.RectShape{{ID: "remote-rect", Width: 50, Height: 50}},
		Collaborators: []domain.Collaborator{{ID: "peer", UserName: "User #1"}},
	}
	s.ApplyRemoteSnapshot(remote)

	assert.Equal(t, s.Snapshot(), remote.Normalize())
	// the stroke being drawn disappeared with the replacement
	assert.Equal(t, s.IsDrawing(), false)
}

func TestStore_RemoteApplyDoesNotEmit(t *testing.T) {
	s := NewStore()
	emitted := recordLocal(s)
	var remotes int
	s.Subscribe(func(snap domain.Snapshot, origin Origin) {
		if origin == OriginRemote {
			remotes++
		}
	})

	s.ApplyRemoteSnapshot(domain.EmptySnapshot())

	assert.Equal(t, len(*emitted), 0)
	assert.Equal(t, remotes, 1)
}

func TestStore_DeleteSelected(t *testing.T) {
	s := NewStore()
	s.ApplyRemoteSnapshot(domain.Snapshot{
		Shapes:  []domain.RectShape{{ID: "r1"}, {ID: "r2"}},
		Strokes: []domain.Stroke{{ID: "l1"}, {ID: "r1"}},
		Texts:   []domain.TextLabel{{ID: "t1"}},
	})

	s.Select("r1")
	removed := s.DeleteSelected()

	snap := s.Snapshot()
	assert.Equal(t, removed, 2)
	assert.Equal(t, snap.Shapes, []domain.RectShape{{ID: "r2"}})
	assert.Equal(t, snap.Strokes, []domain.Stroke{{ID: "l1"}})
	assert.Equal(t, snap.Texts, []domain.TextLabel{{ID: "t1"}})
	assert.Equal(t, len(s.Selected()), 0)
}

func TestStore_DeleteWithoutSelectionIsNoop(t *testing.T) {
	s := NewStore()
	emitted := recordLocal(s)

	assert.Equal(t, s.DeleteSelected(), 0)
	assert.Equal(t, len(*emitted), 0)
}

func TestStore_ClearAllKeepsCollaborators(t *testing.T) {
	s := NewStore()
	emitted := recordLocal(s)
	s.ApplyRemoteSnapshot(domain.Snapshot{
		Shapes:        []domain.RectShape{{ID: "r1"}, {ID: "r2"}},
		Strokes:       []domain.Stroke{{ID: "l1"}},
		Texts:         []domain.TextLabel{{ID: "t1"}},
		Collaborators: []domain.Collaborator{{ID: "c1"}},
	})
	s.Select("r1")

	out := s.ClearAll()

	want := domain.Snapshot{Collaborators: []domain.Collaborator{{ID: "c1"}}}.Normalize()
	assert.Equal(t, out, want)
	assert.Equal(t, s.Snapshot(), want)
	assert.Equal(t, len(*emitted), 1)
	assert.Equal(t, (*emitted)[0], want)
	assert.Equal(t, len(s.Selected()), 0)
}

func TestStore_SelectionOnlyInSelectionMode(t *testing.T) {
	s := NewStore()

	s.SetMode(ModePencil)
	if s.Select("r1") {
		t.Error("Expected Select to be ignored in pencil mode")
	}

	s.SetMode(ModeSelection)
	s.Select("r1")
	s.Select("r2")
	assert.Equal(t, s.Selected(), []string{"r2"})

	s.SetMode(ModeText)
	assert.Equal(t, len(s.Selected()), 0)
}

func TestStore_SelectionNeverSynchronized(t *testing.T) {
	s := NewStore()
	emitted := recordLocal(s)
	rect := s.AddRect(0, 0)

	s.Select(rect.ID)

	// selecting is not an edit
	assert.Equal(t, len(*emitted), 1)
}

func TestStore_StaleRemoteOverwritesLocalEdit(t *testing.T) {
	s := NewStore()
	base := domain.Snapshot{Shapes: []domain.RectShape{{ID: "r1"}}}.Normalize()
	s.ApplyRemoteSnapshot(base)

	s.MoveRect("r1", 10, 0)
	assert.Equal(t, s.Snapshot().Shapes[0].X, 10.0)

	// a peer's snapshot built before our edit arrives afterwards
	s.ApplyRemoteSnapshot(base)

	assert.Equal(t, s.Snapshot().Shapes[0].X, 0.0)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.AddRect(0, 0)

	snap := s.Snapshot()
	snap.Shapes[0].X = 999

	assert.Equal(t, s.Snapshot().Shapes[0].X, 0.0)
}
