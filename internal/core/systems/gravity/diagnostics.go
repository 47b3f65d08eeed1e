package gravity

import (
	"math"

	"github.com/zeusync/gravisim/internal/core/models"
	"github.com/zeusync/gravisim/internal/core/systems/physics"
)

// Energy is the mechanical energy of a world in joules.
type Energy struct {
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
	Total     float64 `json:"total"`
}

// Energy returns kinetic and potential energy of the world. The potential uses
// the same softening floor as the force, so it is the quantity the integrator
// approximately conserves.
func (u *Universe) Energy(world *models.World) Energy {
	planets := world.Planets()

	var e Energy
	for i, p := range planets {
		e.Kinetic += 0.5 * p.Mass() * p.Motion.Velocity.LengthSq()
		for j := i + 1; j < len(planets); j++ {
			q := planets[j]
			r := math.Max(p.Motion.Position.DistanceTo(q.Motion.Position), u.softening)
			e.Potential -= u.g * p.Mass() * q.Mass() / r
		}
	}
	e.Total = e.Kinetic + e.Potential
	return e
}

// Momentum returns the total linear momentum Σ m·v.
func Momentum(world *models.World) physics.Vector2 {
	var sum physics.Vector2
	for _, p := range world.Planets() {
		sum = sum.Add(p.Momentum())
	}
	return sum
}

// AngularMomentum returns Σ m·(r × v) about the origin.
func AngularMomentum(world *models.World) float64 {
	var l float64
	for _, p := range world.Planets() {
		l += p.Mass() * p.Motion.Position.Cross(p.Motion.Velocity)
	}
	return l
}

// CenterOfMass returns the mass-weighted mean position, or the origin for an
// empty world.
func CenterOfMass(world *models.World) physics.Vector2 {
	total := world.TotalMass()
	if total == 0 {
		return physics.Zero
	}

	var sum physics.Vector2
	for _, p := range world.Planets() {
		sum = sum.Add(p.Motion.Position.Scale(p.Mass()))
	}
	return sum.Scale(1 / total)
}

// GeometricCenter returns the unweighted mean position of all planets.
func GeometricCenter(world *models.World) physics.Vector2 {
	return physics.Mean(world.Planets())
}

// CircularOrbitSpeed returns the speed each of two equal masses m separated by d
// needs for a circular mutual orbit: v = sqrt(G·m / (2d)).
func CircularOrbitSpeed(g, m, d float64) float64 {
	return math.Sqrt(g * m / (2 * d))
}

// CircularOrbitPeriod returns the period of that orbit from Kepler's third law
// with total mass 2m and semi-major axis d: T = 2π·sqrt(d³ / (2G·m)).
func CircularOrbitPeriod(g, m, d float64) float64 {
	return 2 * math.Pi * math.Sqrt(d*d*d/(2*g*m))
}
