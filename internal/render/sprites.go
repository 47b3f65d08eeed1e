package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/gravisim/internal/core/simulation"
	"github.com/zeusync/gravisim/internal/core/systems/physics"
)

const (
	planetGlyph    = '●'
	geoCenterGlyph = '+'
)

var palette = []tcell.Color{
	tcell.ColorLightSkyBlue,
	tcell.ColorOrange,
	tcell.ColorLightGreen,
	tcell.ColorViolet,
	tcell.ColorGold,
	tcell.ColorAqua,
}

// Background is the fill color of the reference renderer (0.2 gray).
var Background = tcell.NewRGBColor(51, 51, 51)

// PlanetSprite draws one body with its name to the right.
type PlanetSprite struct {
	Body  simulation.BodyState
	Color tcell.Color
	Label bool
}

func (ps PlanetSprite) Render(p Projector, s Surface) {
	x, y := p.Project(ps.Body.Position)
	if !p.Visible(x, y) {
		return
	}
	style := tcell.StyleDefault.Background(Background).Foreground(ps.Color)
	s.SetContent(x, y, planetGlyph, nil, style)
	if ps.Label {
		drawText(s, x+2, y, style.Dim(true), ps.Body.Name)
	}
}

// GeoCenter marks the mean position of all bodies.
type GeoCenter struct {
	At physics.Vector2
}

func (g GeoCenter) Render(p Projector, s Surface) {
	x, y := p.Project(g.At)
	if !p.Visible(x, y) {
		return
	}
	s.SetContent(x, y, geoCenterGlyph, nil,
		tcell.StyleDefault.Background(Background).Foreground(tcell.ColorRed).Bold(true))
}

// HUD prints frame counters and energy in the top-left corner.
type HUD struct {
	Snapshot simulation.Snapshot
	Zoom     float64
}

func (h HUD) Render(_ Projector, s Surface) {
	style := tcell.StyleDefault.Background(Background).Foreground(tcell.ColorWhite)
	snap := h.Snapshot
	drawText(s, 0, 0, style, fmt.Sprintf("frame %d  steps %d  t=%.0fs", snap.Frame, snap.Steps, snap.SimTime))
	drawText(s, 0, 1, style, fmt.Sprintf("E=%.6e J  |p|=%.3e  zoom=%.3g", snap.Energy.Total, snap.Momentum.Length(), h.Zoom))
}

// Scene lists what to draw for a snapshot: bodies in world order, then the
// geometric center marker, then the HUD.
func Scene(snap simulation.Snapshot, zoom float64) []Renderable {
	out := make([]Renderable, 0, len(snap.Bodies)+2)
	for i, b := range snap.Bodies {
		out = append(out, PlanetSprite{Body: b, Color: palette[i%len(palette)], Label: true})
	}
	out = append(out, GeoCenter{At: snap.GeoCenter}, HUD{Snapshot: snap, Zoom: zoom})
	return out
}
