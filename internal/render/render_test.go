package render

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/gravisim/internal/core/simulation"
	"github.com/zeusync/gravisim/internal/core/systems/physics"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func cell(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func twoMoons() simulation.Snapshot {
	return simulation.Snapshot{
		Frame: 7,
		Bodies: []simulation.BodyState{
			{Name: "Phobos", Position: physics.Vec2(-1e6, 0)},
			{Name: "Deimos", Position: physics.Vec2(1e6, 0)},
		},
		GeoCenter: physics.Zero,
	}
}

func TestProjectorProject(t *testing.T) {
	p := Projector{Zoom: 1, Width: 20, Height: 10, Aspect: 2}

	x, y := p.Project(physics.Zero)
	assert.Equal(t, []int{10, 5}, []int{x, y})

	x, y = p.Project(physics.Vec2(4, 2))
	assert.Equal(t, []int{14, 4}, []int{x, y})

	p.Origin = physics.Vec2(4, 2)
	x, y = p.Project(physics.Vec2(4, 2))
	assert.Equal(t, []int{10, 5}, []int{x, y})

	assert.True(t, p.Visible(0, 0))
	assert.False(t, p.Visible(20, 5))
	assert.False(t, p.Visible(3, -1))
}

func TestCameraFollowsTarget(t *testing.T) {
	c := NewCamera(0, 0)
	assert.Equal(t, DefaultZoom, c.Zoom)
	assert.Equal(t, DefaultCellPixels, c.CellPixels)

	p := c.Projector(physics.Vec2(5, 5), 80, 24)
	assert.Equal(t, physics.Vec2(5, 5), p.Origin)
	assert.InDelta(t, DefaultZoom/DefaultCellPixels, p.Zoom, 1e-18)

	c.Follow = false
	p = c.Projector(physics.Vec2(9, 9), 80, 24)
	assert.Equal(t, physics.Vec2(5, 5), p.Origin)

	c.ZoomIn()
	assert.InDelta(t, DefaultZoom*zoomFactor, c.Zoom, 1e-18)
	c.ZoomOut()
	assert.InDelta(t, DefaultZoom, c.Zoom, 1e-18)
}

func TestSceneDrawsBodiesAndGeoCenter(t *testing.T) {
	screen := newScreen(t, 40, 20)
	p := Projector{Zoom: 1e-5, Width: 40, Height: 20, Aspect: 2}

	scene := Scene(twoMoons(), DefaultZoom)
	require.Len(t, scene, 4)
	for _, r := range scene {
		r.Render(p, screen)
	}

	assert.Equal(t, planetGlyph, cell(screen, 10, 10))
	assert.Equal(t, planetGlyph, cell(screen, 30, 10))
	assert.Equal(t, geoCenterGlyph, cell(screen, 20, 10))
	assert.Equal(t, 'D', cell(screen, 32, 10))
	assert.Equal(t, 'f', cell(screen, 0, 0))

	_, _, style, _ := screen.GetContent(20, 10)
	fg, _, _ := style.Decompose()
	assert.Equal(t, tcell.ColorRed, fg)
}

func TestOffscreenBodiesAreSkipped(t *testing.T) {
	screen := newScreen(t, 10, 5)
	p := Projector{Zoom: 1, Width: 10, Height: 5, Aspect: 1}

	PlanetSprite{Body: simulation.BodyState{Name: "far", Position: physics.Vec2(1e9, 0)}}.Render(p, screen)
	GeoCenter{At: physics.Vec2(0, -1e9)}.Render(p, screen)

	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			assert.Equal(t, ' ', cell(screen, x, y))
		}
	}
}

func TestRenderFunc(t *testing.T) {
	screen := newScreen(t, 4, 4)
	var called bool
	RenderFunc(func(p Projector, s Surface) {
		called = true
		s.SetContent(1, 1, 'x', nil, tcell.StyleDefault)
	}).Render(Projector{}, screen)

	assert.True(t, called)
	assert.Equal(t, 'x', cell(screen, 1, 1))
}
