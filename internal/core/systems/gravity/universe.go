package gravity

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/zeusync/gravisim/internal/core/models"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/systems"
	"github.com/zeusync/gravisim/internal/core/systems/physics"
	"github.com/zeusync/gravisim/pkg/concurrent"
)

const (
	// G is the Newtonian gravitational constant in m³ kg⁻¹ s⁻².
	G = 6.6743e-11

	// DefaultSoftening is the softening floor ε in metres. Separations below it
	// use ε in the force denominator.
	DefaultSoftening = 1e3

	// ParallelThreshold is the body count from which the force pass is split
	// across workers.
	ParallelThreshold = 64
)

var _ systems.System = (*Universe)(nil)

// Universe is the integrator. It holds integrator-wide constants and the
// accumulated simulated time; it keeps no per-body state between calls.
type Universe struct {
	g         float64
	softening float64
	workers   int

	elapsed float64
	steps   uint64

	forces  []physics.Vector2
	partial [][]physics.Vector2

	metrics systems.Metrics
	logger  log.Log
}

// Option configures a Universe.
type Option func(*Universe)

// WithGravitationalConstant overrides G.
func WithGravitationalConstant(g float64) Option {
	return func(u *Universe) { u.g = g }
}

// WithSoftening overrides DefaultSoftening.
func WithSoftening(eps float64) Option {
	return func(u *Universe) { u.softening = eps }
}

// WithWorkers enables the parallel force pass for worlds of at least
// ParallelThreshold bodies.
func WithWorkers(n int) Option {
	return func(u *Universe) { u.workers = n }
}

// WithLogger sets the logger.
func WithLogger(logger log.Log) Option {
	return func(u *Universe) { u.logger = logger }
}

// NewUniverse creates an integrator with the real gravitational constant and
// DefaultSoftening unless overridden.
func NewUniverse(opts ...Option) (*Universe, error) {
	u := &Universe{
		g:         G,
		softening: DefaultSoftening,
		workers:   1,
	}
	for _, opt := range opts {
		opt(u)
	}

	if !(u.g > 0) || math.IsInf(u.g, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConstant, u.g)
	}
	if !(u.softening > 0) || math.IsInf(u.softening, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSoftening, u.softening)
	}
	if u.workers < 1 {
		u.workers = 1
	}
	if u.logger == nil {
		u.logger = log.NewNop()
	}
	u.logger = u.logger.With(log.String("component", "universe"))
	u.logger.Debug("universe created",
		log.Float64("g", u.g),
		log.Float64("softening", u.softening),
		log.Int("workers", u.workers))

	return u, nil
}

func (u *Universe) Name() string { return "gravity" }

// GravitationalConstant returns G as configured.
func (u *Universe) GravitationalConstant() float64 { return u.g }

// Softening returns ε.
func (u *Universe) Softening() float64 { return u.softening }

// Elapsed returns the simulated seconds integrated so far.
func (u *Universe) Elapsed() float64 { return u.elapsed }

// Steps returns the number of non-zero steps taken.
func (u *Universe) Steps() uint64 { return u.steps }

func (u *Universe) GetMetrics() systems.Metrics { return u.metrics }

// Reset clears accumulated time, step count and metrics.
func (u *Universe) Reset() error {
	u.elapsed = 0
	u.steps = 0
	u.metrics = systems.Metrics{}
	return nil
}

// Update advances every planet in world by dt seconds.
//
// Forces are accumulated from the positions at the start of the step, then
// every body is integrated with semi-implicit Euler: velocity first, then
// position from the new velocity. A zero dt leaves the world untouched.
// Negative or non-finite dt is rejected and the world is left untouched.
func (u *Universe) Update(dt float64, world *models.World) (err error) {
	if world == nil {
		return ErrNilWorld
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTimeStep, dt)
	}
	if dt < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeTimeStep, dt)
	}
	if dt == 0 {
		return nil
	}

	started := time.Now()
	defer func() { u.metrics.Observe(started, world.Len(), err) }()

	planets := world.Planets()
	if err = u.accumulate(planets); err != nil {
		return err
	}
	u.integrate(planets, dt)

	u.elapsed += dt
	u.steps++
	return nil
}

// Forces returns the net gravitational force on every planet, in world order,
// for the current positions. The world is not modified.
func (u *Universe) Forces(world *models.World) ([]physics.Vector2, error) {
	if world == nil {
		return nil, ErrNilWorld
	}
	if err := u.accumulate(world.Planets()); err != nil {
		return nil, err
	}
	out := make([]physics.Vector2, len(u.forces))
	copy(out, u.forces)
	return out, nil
}

// PairForce returns the force exerted on a by b. The force on b by a is its
// exact negation.
func (u *Universe) PairForce(a, b *models.Planet) physics.Vector2 {
	return u.pairForce(a.Motion.Position, b.Motion.Position, a.Mass(), b.Mass())
}

func (u *Universe) pairForce(pi, pj physics.Vector2, mi, mj float64) physics.Vector2 {
	r := pj.Sub(pi)
	dist := r.Length()
	if dist == 0 {
		// Coincident bodies: no direction to pull along.
		return physics.Zero
	}

	eff := math.Max(dist, u.softening)
	magnitude := u.g * mi * mj / (eff * eff)
	return r.Scale(magnitude / dist)
}

// accumulate fills u.forces from a frozen snapshot of positions. Each
// unordered pair is evaluated exactly once; the partner receives the negated
// vector.
func (u *Universe) accumulate(planets []*models.Planet) error {
	n := len(planets)
	u.forces = resize(u.forces, n)

	if u.workers > 1 && n >= ParallelThreshold {
		return u.accumulateParallel(planets)
	}

	for i := 0; i < n; i++ {
		u.accumulateRow(planets, i, u.forces)
	}
	return nil
}

func (u *Universe) accumulateRow(planets []*models.Planet, i int, forces []physics.Vector2) {
	pi := planets[i].Motion.Position
	mi := planets[i].Mass()
	for j := i + 1; j < len(planets); j++ {
		f := u.pairForce(pi, planets[j].Motion.Position, mi, planets[j].Mass())
		forces[i] = forces[i].Add(f)
		forces[j] = forces[j].Add(f.Neg())
	}
}

// accumulateParallel stripes rows across workers. Every worker owns a private
// buffer, so no two goroutines write the same accumulator; buffers are summed
// in worker order once all workers are done.
func (u *Universe) accumulateParallel(planets []*models.Planet) error {
	n := len(planets)
	workers := u.workers
	if workers > n {
		workers = n
	}

	if len(u.partial) != workers {
		u.partial = make([][]physics.Vector2, workers)
	}
	for w := range u.partial {
		u.partial[w] = resize(u.partial[w], n)
	}

	err := concurrent.Strided(context.Background(), n, workers, func(worker, i int) error {
		u.accumulateRow(planets, i, u.partial[worker])
		return nil
	})
	if err != nil {
		return err
	}

	for _, buf := range u.partial {
		for i, f := range buf {
			u.forces[i] = u.forces[i].Add(f)
		}
	}
	return nil
}

// integrate applies semi-implicit Euler using the accumulated forces.
func (u *Universe) integrate(planets []*models.Planet, dt float64) {
	for i, p := range planets {
		acc := u.forces[i].Scale(1 / p.Mass())
		p.Motion.Velocity = p.Motion.Velocity.Add(acc.Scale(dt))
		p.Motion.Position = p.Motion.Position.Add(p.Motion.Velocity.Scale(dt))
	}
}

// resize returns buf with length n and every element zeroed.
func resize(buf []physics.Vector2, n int) []physics.Vector2 {
	if cap(buf) < n {
		return make([]physics.Vector2, n)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}
