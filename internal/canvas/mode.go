package canvas

import "fmt"

// Mode is the current interaction mode
type Mode string

const (
	ModeSelection Mode = "selection"
	ModePencil    Mode = "pencil"
	ModeText      Mode = "text"
)

// Modes lists the toolbar modes in display order
var Modes = []Mode{ModeSelection, ModePencil, ModeText}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Cursor is a CSS cursor keyword; empty means the default cursor
type Cursor string

const (
	CursorDefault   Cursor = ""
	CursorGrab      Cursor = "grab"
	CursorGrabbing  Cursor = "grabbing"
	CursorCrosshair Cursor = "crosshair"
	CursorMove      Cursor = "move"
)

// PointerState is what the renderer knows about the pointer
type PointerState struct {
	Mode          Mode
	PanKeyHeld    bool // space held, stage draggable
	Dragging      bool
	OverDraggable bool
}

// CursorStyle derives the cursor from pointer state. The renderer evaluates
// it on every change instead of mutating a global style.
func CursorStyle(p PointerState) Cursor {
	switch {
	case p.PanKeyHeld && p.Dragging:
		return CursorGrabbing
	case p.PanKeyHeld:
		return CursorGrab
	case p.Mode == ModePencil || p.Mode == ModeText:
		return CursorCrosshair
	case p.Mode == ModeSelection && (p.OverDraggable || p.Dragging):
		return CursorMove
	}
	return CursorDefault
}
