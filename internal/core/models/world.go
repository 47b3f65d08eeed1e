package models

import "iter"

// World is the ordered set of all bodies in a simulation. Order is insertion
// order; the integrator does not depend on it, renderers may.
//
// A World has one owner. Writers (the integrator) and readers (renderers) must
// never overlap; the simulation loop enforces that.
type World struct {
	planets []*Planet
}

// NewWorld returns a World holding planets in the given order.
func NewWorld(planets ...*Planet) (*World, error) {
	w := &World{planets: make([]*Planet, 0, len(planets))}
	for _, p := range planets {
		if err := w.Add(p); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Add appends a planet.
func (w *World) Add(p *Planet) error {
	if p == nil {
		return ErrNilPlanet
	}
	w.planets = append(w.planets, p)
	return nil
}

// Planets returns the backing slice. Callers outside the integrator must treat
// it as read-only.
func (w *World) Planets() []*Planet { return w.planets }

// All iterates planets in insertion order.
func (w *World) All() iter.Seq2[int, *Planet] {
	return func(yield func(int, *Planet) bool) {
		for i, p := range w.planets {
			if !yield(i, p) {
				return
			}
		}
	}
}

func (w *World) Len() int { return len(w.planets) }

// Find returns the first planet with the given name.
func (w *World) Find(name string) (*Planet, bool) {
	for _, p := range w.planets {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// TotalMass returns the sum of all planet masses.
func (w *World) TotalMass() float64 {
	var m float64
	for _, p := range w.planets {
		m += p.mass
	}
	return m
}

// Clone returns a deep copy of the world.
func (w *World) Clone() *World {
	c := &World{planets: make([]*Planet, len(w.planets))}
	for i, p := range w.planets {
		c.planets[i] = p.Clone()
	}
	return c
}
