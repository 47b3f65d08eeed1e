package physics

// Lightweight physics abstractions shared by the integrator and its read-only
// consumers (renderers, viewers).

// Locatable is anything with a position in simulation space.
type Locatable interface {
	Position() Vector2
}

// Massive is a Locatable carrying a mass.
type Massive interface {
	Locatable
	Mass() float64
}
