package gravity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zeusync/gravisim/internal/core/models"
	"github.com/zeusync/gravisim/internal/core/systems/physics"
)

func TestEnergyOfBinary(t *testing.T) {
	u := newTestUniverse(t)
	w := binary(t)

	e := u.Energy(w)
	v := CircularOrbitSpeed(1, 1, 1)
	assert.InDelta(t, v*v, e.Kinetic, 1e-12) // 2 * ½ m v²
	assert.InDelta(t, -1.0, e.Potential, 1e-12)
	assert.InDelta(t, e.Kinetic+e.Potential, e.Total, 1e-15)
	// Virial theorem for a circular orbit: E = U/2.
	assert.InDelta(t, e.Potential/2, e.Total, 1e-12)
}

func TestEnergyUsesSoftening(t *testing.T) {
	u := newTestUniverse(t, WithSoftening(2))
	w := newTestWorld(t,
		models.MustPlanet("a", physics.Zero, models.WithMass(1)),
		models.MustPlanet("b", physics.Zero, models.WithMass(1)),
	)
	assert.InDelta(t, -0.5, u.Energy(w).Potential, 1e-15)
}

func TestCenters(t *testing.T) {
	w := newTestWorld(t,
		models.MustPlanet("heavy", physics.Vec2(0, 0), models.WithMass(3)),
		models.MustPlanet("light", physics.Vec2(4, 0), models.WithMass(1)),
	)

	assert.Equal(t, physics.Vec2(1, 0), CenterOfMass(w))
	assert.Equal(t, physics.Vec2(2, 0), GeometricCenter(w))

	empty := newTestWorld(t)
	assert.Equal(t, physics.Zero, CenterOfMass(empty))
	assert.Equal(t, physics.Zero, GeometricCenter(empty))
}

func TestAngularMomentumConserved(t *testing.T) {
	u := newTestUniverse(t)
	w := binary(t)
	l0 := AngularMomentum(w)
	assert.Greater(t, l0, 0.0)

	for i := 0; i < 5_000; i++ {
		_ = u.Update(1e-3, w)
	}
	assert.InDelta(t, l0, AngularMomentum(w), 1e-9)
}

func TestKeplerHelpers(t *testing.T) {
	v := CircularOrbitSpeed(1, 1, 1)
	assert.InDelta(t, math.Sqrt(0.5), v, 1e-15)
	// Period equals circumference of each body's circle over its speed.
	assert.InDelta(t, 2*math.Pi*0.5/v, CircularOrbitPeriod(1, 1, 1), 1e-12)
}
