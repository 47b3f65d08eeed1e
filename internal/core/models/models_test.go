package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/gravisim/internal/core/systems/physics"
)

func TestNewPlanetDefaults(t *testing.T) {
	p, err := NewPlanet("Deimos", physics.Vec2(1e6, 0))
	require.NoError(t, err)

	assert.Equal(t, "Deimos", p.Name)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, DefaultMass, p.Mass())
	assert.Equal(t, physics.Vec2(1e6, 0), p.Position())
	assert.Equal(t, physics.Zero, p.Velocity())
}

func TestNewPlanetOptions(t *testing.T) {
	p, err := NewPlanet("Phobos", physics.Vec2(-1e6, 0),
		WithMass(2), WithVelocity(physics.Vec2(0, 1.5e4)), WithID("phobos"))
	require.NoError(t, err)

	assert.Equal(t, 2.0, p.Mass())
	assert.Equal(t, physics.Vec2(0, 1.5e4), p.Velocity())
	assert.Equal(t, "phobos", p.ID)
	assert.Equal(t, physics.Vec2(0, 3e4), p.Momentum())
}

func TestNewPlanetRejectsInvalidMass(t *testing.T) {
	for _, m := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		p, err := NewPlanet("bad", physics.Zero, WithMass(m))
		assert.ErrorIs(t, err, ErrInvalidMass, "mass %v", m)
		assert.Nil(t, p)
	}
}

func TestNewPlanetRejectsEmptyName(t *testing.T) {
	_, err := NewPlanet("", physics.Zero)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestSetMass(t *testing.T) {
	p := MustPlanet("a", physics.Zero)

	require.NoError(t, p.SetMass(10))
	assert.Equal(t, 10.0, p.Mass())

	assert.ErrorIs(t, p.SetMass(-3), ErrInvalidMass)
	assert.Equal(t, 10.0, p.Mass(), "rejected mass must not be applied")
}

func TestMustPlanetPanics(t *testing.T) {
	assert.Panics(t, func() { MustPlanet("a", physics.Zero, WithMass(0)) })
}

func TestWorldOrderAndLookup(t *testing.T) {
	a := MustPlanet("a", physics.Vec2(1, 0), WithMass(1))
	b := MustPlanet("b", physics.Vec2(2, 0), WithMass(3))
	w, err := NewWorld(a, b)
	require.NoError(t, err)

	assert.Equal(t, 2, w.Len())
	assert.Equal(t, []*Planet{a, b}, w.Planets())
	assert.Equal(t, 4.0, w.TotalMass())

	found, ok := w.Find("b")
	assert.True(t, ok)
	assert.Same(t, b, found)
	_, ok = w.Find("c")
	assert.False(t, ok)

	var names []string
	for _, p := range w.All() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)

	assert.ErrorIs(t, w.Add(nil), ErrNilPlanet)
}

func TestWorldCloneIsDeep(t *testing.T) {
	w, err := NewWorld(MustPlanet("a", physics.Vec2(1, 1)))
	require.NoError(t, err)

	c := w.Clone()
	c.Planets()[0].Motion.Position = physics.Vec2(9, 9)

	assert.Equal(t, physics.Vec2(1, 1), w.Planets()[0].Position())
	assert.Equal(t, w.Planets()[0].ID, c.Planets()[0].ID)
}
