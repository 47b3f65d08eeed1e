package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/gravisim/internal/core/systems/physics"
)

const (
	// DefaultZoom is the scale of the reference renderer in pixels per meter.
	DefaultZoom = 2.5e-4
	// DefaultCellPixels is how many pixels one terminal column stands for.
	DefaultCellPixels = 16.0
	// DefaultAspect is the height/width ratio of a terminal cell.
	DefaultAspect = 2.0

	zoomFactor = 1.25
)

// Surface is the part of tcell.Screen renderables draw on.
type Surface interface {
	Size() (width, height int)
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
}

// Renderable is anything that can draw itself through a Projector.
type Renderable interface {
	Render(p Projector, s Surface)
}

// RenderFunc adapts a plain function to Renderable.
type RenderFunc func(p Projector, s Surface)

func (f RenderFunc) Render(p Projector, s Surface) { f(p, s) }

// Projector maps simulation coordinates (meters, y up) to terminal cells
// (columns, rows, y down). Origin lands on the center cell.
type Projector struct {
	Zoom          float64 // columns per meter
	Origin        physics.Vector2
	Width, Height int
	Aspect        float64
}

// Project returns the cell for v. The result may be off screen.
func (p Projector) Project(v physics.Vector2) (x, y int) {
	aspect := p.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	dx := (v.X - p.Origin.X) * p.Zoom
	dy := (v.Y - p.Origin.Y) * p.Zoom / aspect
	return p.Width/2 + int(math.Round(dx)), p.Height/2 - int(math.Round(dy))
}

// Visible reports whether the cell is on screen.
func (p Projector) Visible(x, y int) bool {
	return x >= 0 && y >= 0 && x < p.Width && y < p.Height
}

// Camera turns snapshots into projectors. It follows the geometric center of
// the bodies unless Follow is false, in which case Center stays put.
type Camera struct {
	Zoom       float64 // pixels per meter
	CellPixels float64
	Aspect     float64
	Follow     bool
	Center     physics.Vector2
}

// NewCamera returns a following camera. Non-positive arguments fall back to
// the defaults.
func NewCamera(zoom, cellPixels float64) *Camera {
	if !(zoom > 0) {
		zoom = DefaultZoom
	}
	if !(cellPixels > 0) {
		cellPixels = DefaultCellPixels
	}
	return &Camera{
		Zoom:       zoom,
		CellPixels: cellPixels,
		Aspect:     DefaultAspect,
		Follow:     true,
	}
}

func (c *Camera) ZoomIn()  { c.Zoom *= zoomFactor }
func (c *Camera) ZoomOut() { c.Zoom /= zoomFactor }

// Projector builds the projection for a surface of the given size centered on
// target (or on Center for a fixed camera).
func (c *Camera) Projector(target physics.Vector2, width, height int) Projector {
	if c.Follow {
		c.Center = target
	}
	return Projector{
		Zoom:   c.Zoom / c.CellPixels,
		Origin: c.Center,
		Width:  width,
		Height: height,
		Aspect: c.Aspect,
	}
}

func drawText(s Surface, x, y int, style tcell.Style, text string) {
	w, h := s.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range text {
		if x >= w {
			return
		}
		if x >= 0 {
			s.SetContent(x, y, r, nil, style)
		}
		x++
	}
}
