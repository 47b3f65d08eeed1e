package simulation

import "errors"

// Loop errors
var (
	ErrLoopRunning       = errors.New("simulation loop is already running")
	ErrNegativeFrame     = errors.New("frame duration must not be negative")
	ErrInvalidLoopConfig = errors.New("invalid loop configuration")
	ErrNilDependency     = errors.New("loop dependency is nil")
)
