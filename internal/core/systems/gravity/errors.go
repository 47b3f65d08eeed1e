package gravity

import "errors"

// Integrator input errors
var (
	ErrNegativeTimeStep = errors.New("time step must not be negative")
	ErrInvalidTimeStep  = errors.New("time step must be finite")
	ErrNilWorld         = errors.New("world is nil")
	ErrInvalidConstant  = errors.New("gravitational constant must be positive and finite")
	ErrInvalidSoftening = errors.New("softening length must be positive and finite")
)
