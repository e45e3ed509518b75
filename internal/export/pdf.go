// Package export renders a canvas snapshot to PDF.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
)

const (
	minPageWidth  = 800.0
	minPageHeight = 600.0
	margin        = 20.0
	fontSize      = 16.0
	strokeWidth   = 2.0
	labelFont     = "canvas-label"
)

// Bounds is the area covered by the drawable content of a snapshot
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// ContentBounds returns the extent of all shapes, strokes and texts.
// Rotation is ignored. An empty canvas yields the zero Bounds.
func ContentBounds(snap domain.Snapshot) Bounds {
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	add := func(x, y float64) {
		b.MinX = math.Min(b.MinX, x)
		b.MinY = math.Min(b.MinY, y)
		b.MaxX = math.Max(b.MaxX, x)
		b.MaxY = math.Max(b.MaxY, y)
	}

	for _, r := range snap.Shapes {
		add(r.X, r.Y)
		add(r.X+r.Width, r.Y+r.Height)
	}
	for _, s := range snap.Strokes {
		for i := 0; i+1 < len(s.Points); i += 2 {
			add(s.X+s.Points[i], s.Y+s.Points[i+1])
		}
	}
	for _, t := range snap.Texts {
		add(t.X, t.Y)
		// rough width of a core font at fontSize
		add(t.X+float64(len(t.Text))*fontSize*0.6, t.Y+fontSize)
	}

	if math.IsInf(b.MinX, 1) {
		return Bounds{}
	}
	return b
}

// Option configures WritePDF
type Option func(*options)

type options struct {
	fontFile string
}

// WithUTF8Font embeds the TrueType font at path and uses it for text
// labels, so scripts outside Latin-1 render as typed.
func WithUTF8Font(path string) Option {
	return func(o *options) {
		o.fontFile = path
	}
}

// WritePDF draws the snapshot on a single page large enough to hold it.
// Canvas pixels map to PDF points one to one. Collaborator cursors are not
// drawn. Without WithUTF8Font, labels use the core Helvetica font, which
// only covers cp1252; other characters come out as substitutes.
func WritePDF(w io.Writer, snap domain.Snapshot, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := ContentBounds(snap)
	// shift content with negative coordinates onto the page
	dx := margin - math.Min(0, b.MinX)
	dy := margin - math.Min(0, b.MinY)
	width := math.Max(minPageWidth, b.MaxX+dx+margin)
	height := math.Max(minPageHeight, b.MaxY+dy+margin)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetTitle("goat-canvas export", true)
	pdf.SetCreator("goat-canvas", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetLineWidth(strokeWidth)
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	for _, r := range snap.Shapes {
		red, green, blue := ParseColor(r.Stroke)
		pdf.SetDrawColor(red, green, blue)
		x, y := r.X+dx, r.Y+dy
		pdf.TransformBegin()
		pdf.TransformRotate(-r.Rotation, x, y)
		pdf.Rect(x, y, r.Width, r.Height, "D")
		pdf.TransformEnd()
	}

	pdf.SetDrawColor(0, 0, 0)
	for _, s := range snap.Strokes {
		ox, oy := s.X+dx, s.Y+dy
		pdf.TransformBegin()
		pdf.TransformRotate(-s.Rotation, ox, oy)
		for i := 2; i+1 < len(s.Points); i += 2 {
			pdf.Line(ox+s.Points[i-2], oy+s.Points[i-1], ox+s.Points[i], oy+s.Points[i+1])
		}
		pdf.TransformEnd()
	}

	tr := func(s string) string { return s }
	if o.fontFile != "" {
		pdf.AddUTF8Font(labelFont, "", o.fontFile)
		pdf.SetFont(labelFont, "", fontSize)
	} else {
		pdf.SetFont("Helvetica", "", fontSize)
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.SetTextColor(0, 0, 0)
	for _, t := range snap.Texts {
		x, y := t.X+dx, t.Y+dy
		pdf.TransformBegin()
		pdf.TransformRotate(-t.Rotation, x, y)
		// Text places the baseline; canvas text is anchored at its top
		pdf.Text(x, y+fontSize, tr(t.Text))
		pdf.TransformEnd()
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

var namedColors = map[string][3]int{
	"black":  {0, 0, 0},
	"white":  {255, 255, 255},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"yellow": {255, 255, 0},
	"orange": {255, 165, 0},
	"purple": {128, 0, 128},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
}

// ParseColor understands a few CSS color names and #rgb / #rrggbb. Anything
// else is black.
func ParseColor(s string) (r, g, b int) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c[0], c[1], c[2]
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return 0, 0, 0
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int((v >> 16) & 0xff), int((v >> 8) & 0xff), int(v & 0xff)
}
