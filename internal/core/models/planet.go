package models

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/zeusync/gravisim/internal/core/systems/physics"
)

// DefaultMass is the mass given to planets constructed without WithMass, in kg.
// Together with the default gravitational constant it puts two bodies at ±1e6 m
// moving at ±1.5e4 m/s on a near-circular mutual orbit.
const DefaultMass = 1.35e25

// Motion is the kinematic state of one body at a point in simulated time.
type Motion struct {
	Position physics.Vector2 `json:"position"`
	Velocity physics.Vector2 `json:"velocity"`
}

// Planet is a point mass taking part in gravitational interaction.
// The name identifies it in diagnostics only.
type Planet struct {
	ID     string
	Name   string
	Motion Motion

	mass float64
}

var _ physics.Massive = (*Planet)(nil)

// PlanetOption configures a Planet at construction.
type PlanetOption func(*Planet)

// WithMass overrides DefaultMass. Validation happens in NewPlanet.
func WithMass(mass float64) PlanetOption {
	return func(p *Planet) { p.mass = mass }
}

// WithVelocity sets the initial velocity (zero otherwise).
func WithVelocity(v physics.Vector2) PlanetOption {
	return func(p *Planet) { p.Motion.Velocity = v }
}

// WithID replaces the generated identifier.
func WithID(id string) PlanetOption {
	return func(p *Planet) { p.ID = id }
}

// NewPlanet creates a body at position with zero velocity and DefaultMass.
func NewPlanet(name string, position physics.Vector2, opts ...PlanetOption) (*Planet, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	p := &Planet{
		ID:     uuid.NewString(),
		Name:   name,
		Motion: Motion{Position: position},
		mass:   DefaultMass,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := validateMass(p.mass); err != nil {
		return nil, fmt.Errorf("planet %q: %w", name, err)
	}
	return p, nil
}

// MustPlanet is NewPlanet that panics on error. Intended for fixtures.
func MustPlanet(name string, position physics.Vector2, opts ...PlanetOption) *Planet {
	p, err := NewPlanet(name, position, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Mass returns the planet mass in kg.
func (p *Planet) Mass() float64 { return p.mass }

// SetMass changes the mass after construction; non-positive values are rejected
// and leave the planet unchanged.
func (p *Planet) SetMass(mass float64) error {
	if err := validateMass(mass); err != nil {
		return fmt.Errorf("planet %q: %w", p.Name, err)
	}
	p.mass = mass
	return nil
}

// Position returns the current position.
func (p *Planet) Position() physics.Vector2 { return p.Motion.Position }

// Velocity returns the current velocity.
func (p *Planet) Velocity() physics.Vector2 { return p.Motion.Velocity }

// Momentum returns m*v.
func (p *Planet) Momentum() physics.Vector2 { return p.Motion.Velocity.Scale(p.mass) }

// Clone returns a deep copy, keeping the ID.
func (p *Planet) Clone() *Planet {
	c := *p
	return &c
}

func (p *Planet) String() string {
	return fmt.Sprintf("%s(m=%g p=(%g,%g) v=(%g,%g))", p.Name, p.mass,
		p.Motion.Position.X, p.Motion.Position.Y, p.Motion.Velocity.X, p.Motion.Velocity.Y)
}

func validateMass(mass float64) error {
	if !(mass > 0) || math.IsInf(mass, 0) {
		return ErrInvalidMass
	}
	return nil
}
