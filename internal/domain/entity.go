package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidEntity is returned when an entity fails structural validation
var ErrInvalidEntity = errors.New("invalid entity")

// NewID mints a random 128-bit identifier. Clients mint their own ids, so
// collision resistance comes from randomness alone.
func NewID() string {
	return uuid.NewString()
}

// RectShape is a rectangle on the canvas
type RectShape struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	Stroke   string  `json:"stroke"`
}

// NewRect creates a default-sized rectangle at (x, y)
func NewRect(x, y float64) RectShape {
	return RectShape{
		ID:     NewID(),
		X:      x,
		Y:      y,
		Width:  DefaultRectSize,
		Height: DefaultRectSize,
		Stroke: DefaultStrokeColor,
	}
}

// Validate checks the structural shape of the rectangle
func (r RectShape) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: rect without id", ErrInvalidEntity)
	}
	return nil
}

// Stroke is a freehand line. Points is a flat list of x,y pairs; X/Y hold
// the drag offset applied to the whole line.
type Stroke struct {
	ID       string    `json:"id"`
	Points   []float64 `json:"points"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Rotation float64   `json:"rotation"`
}

// NewStroke starts a stroke at (x, y)
func NewStroke(x, y float64) Stroke {
	return Stroke{
		ID:     NewID(),
		Points: []float64{x, y},
	}
}

// Validate checks the structural shape of the stroke
func (s Stroke) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: stroke without id", ErrInvalidEntity)
	}
	if len(s.Points)%2 != 0 {
		return fmt.Errorf("%w: stroke %s has an odd coordinate count", ErrInvalidEntity, s.ID)
	}
	return nil
}

// PointCount returns the number of coordinate pairs
func (s Stroke) PointCount() int {
	return len(s.Points) / 2
}

// TextLabel is a placed piece of text
type TextLabel struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text"`
	Rotation float64 `json:"rotation"`
}

// Validate checks the structural shape of the label
func (t TextLabel) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: text without id", ErrInvalidEntity)
	}
	return nil
}

// Collaborator is the presence record of one participant
type Collaborator struct {
	ID       string  `json:"id"`
	UserName string  `json:"userName"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Validate checks the structural shape of the record
func (c Collaborator) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: collaborator without id", ErrInvalidEntity)
	}
	return nil
}
