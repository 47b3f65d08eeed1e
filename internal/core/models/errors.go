package models

import "errors"

// Body construction errors
var (
	ErrInvalidMass = errors.New("planet mass must be positive and finite")
	ErrEmptyName   = errors.New("planet name is required")
	ErrNilPlanet   = errors.New("planet is nil")
)
