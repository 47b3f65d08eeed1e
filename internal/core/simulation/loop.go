package simulation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/gravisim/internal/core/events/bus"
	"github.com/zeusync/gravisim/internal/core/models"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/systems/gravity"
)

// Config controls how real time maps to integration steps.
type Config struct {
	// FixedStep is the simulated seconds advanced per integration step.
	FixedStep float64
	// TimeScale is simulated seconds per real second.
	TimeScale float64
	// MaxFrameTime clamps a single frame so a stall does not turn into a huge
	// burst of steps.
	MaxFrameTime time.Duration
	// MaxSubSteps caps integration steps per frame; leftover time is dropped.
	MaxSubSteps int
	// DiagnosticsEvery logs energy drift every N frames (0 disables).
	DiagnosticsEvery uint64
}

// DefaultConfig returns loop defaults.
func DefaultConfig() Config {
	return Config{
		FixedStep:        0.05,
		TimeScale:        100,
		MaxFrameTime:     250 * time.Millisecond,
		MaxSubSteps:      2000,
		DiagnosticsEvery: 600,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case !(c.FixedStep > 0) || math.IsInf(c.FixedStep, 0):
		return fmt.Errorf("%w: fixed step %v", ErrInvalidLoopConfig, c.FixedStep)
	case !(c.TimeScale > 0) || math.IsInf(c.TimeScale, 0):
		return fmt.Errorf("%w: time scale %v", ErrInvalidLoopConfig, c.TimeScale)
	case c.MaxFrameTime <= 0:
		return fmt.Errorf("%w: max frame time %v", ErrInvalidLoopConfig, c.MaxFrameTime)
	case c.MaxSubSteps < 1:
		return fmt.Errorf("%w: max sub steps %d", ErrInvalidLoopConfig, c.MaxSubSteps)
	}
	return nil
}

// Loop owns a World and drives the Universe over it. The world is written only
// by Advance/Step under the write lock; everything else reads snapshots or
// borrows the world through View under the read lock.
type Loop struct {
	mu       sync.RWMutex
	universe *gravity.Universe
	world    *models.World

	bus    bus.EventBus
	logger log.Log
	cfg    Config

	accumulator float64
	frame       uint64
	baseline    float64

	running atomic.Bool
	latest  atomic.Pointer[Snapshot]
}

// NewLoop wires a loop and captures the initial snapshot.
func NewLoop(universe *gravity.Universe, world *models.World, eventBus bus.EventBus, logger log.Log, cfg Config) (*Loop, error) {
	if universe == nil || world == nil || eventBus == nil {
		return nil, ErrNilDependency
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}

	l := &Loop{
		universe: universe,
		world:    world,
		bus:      eventBus,
		logger:   logger.With(log.String("component", "loop")),
		cfg:      cfg,
	}

	snap := Capture(universe, world, 0)
	l.baseline = snap.Energy.Total
	l.latest.Store(&snap)

	l.logger.Info("simulation loop ready",
		log.Int("bodies", world.Len()),
		log.Float64("fixed_step", cfg.FixedStep),
		log.Float64("time_scale", cfg.TimeScale),
		log.Float64("energy", snap.Energy.Total))

	return l, nil
}

func (l *Loop) Config() Config { return l.cfg }

// Snapshot returns the most recent snapshot.
func (l *Loop) Snapshot() Snapshot { return *l.latest.Load() }

// View lends the world to fn with read access. fn must not retain or mutate it.
func (l *Loop) View(fn func(world *models.World)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(l.world)
}

// Advance converts a frame of real time into fixed integration steps and
// publishes the resulting snapshot as EventStep.
func (l *Loop) Advance(frame time.Duration) (Snapshot, error) {
	if frame < 0 {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrNegativeFrame, frame)
	}
	if frame > l.cfg.MaxFrameTime {
		l.logger.Debug("frame clamped",
			log.Duration("frame", frame),
			log.Duration("max", l.cfg.MaxFrameTime))
		frame = l.cfg.MaxFrameTime
	}

	l.mu.Lock()
	l.accumulator += frame.Seconds() * l.cfg.TimeScale

	steps := 0
	for l.accumulator >= l.cfg.FixedStep && steps < l.cfg.MaxSubSteps {
		if err := l.universe.Update(l.cfg.FixedStep, l.world); err != nil {
			l.mu.Unlock()
			return Snapshot{}, fmt.Errorf("step %d: %w", l.universe.Steps()+1, err)
		}
		l.accumulator -= l.cfg.FixedStep
		steps++
	}
	if l.accumulator >= l.cfg.FixedStep {
		dropped := l.accumulator
		l.accumulator = math.Mod(l.accumulator, l.cfg.FixedStep)
		l.logger.Warn("simulation falling behind, dropping time",
			log.Float64("dropped", dropped-l.accumulator),
			log.Int("steps", steps))
	}

	l.frame++
	snap := Capture(l.universe, l.world, l.frame)
	l.mu.Unlock()

	l.publish(snap)
	return snap, nil
}

// Step advances the world by exactly dt simulated seconds, bypassing the
// accumulator. Useful for drivers supplying their own fixed step.
func (l *Loop) Step(dt float64) (Snapshot, error) {
	l.mu.Lock()
	if err := l.universe.Update(dt, l.world); err != nil {
		l.mu.Unlock()
		return Snapshot{}, err
	}
	l.frame++
	snap := Capture(l.universe, l.world, l.frame)
	l.mu.Unlock()

	l.publish(snap)
	return snap, nil
}

// Run advances the loop once per tick using measured wall-clock time until
// ctx is cancelled.
func (l *Loop) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		return fmt.Errorf("%w: tick %v", ErrInvalidLoopConfig, tick)
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	l.logger.Info("simulation loop started", log.Duration("tick", tick))
	l.notify(EventStarted)
	defer l.notify(EventStopped)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("simulation loop stopped",
				log.Uint64("frame", l.Snapshot().Frame),
				log.Float64("sim_time", l.Snapshot().SimTime))
			return ctx.Err()
		case now := <-ticker.C:
			frame := now.Sub(last)
			last = now
			if _, err := l.Advance(frame); err != nil {
				l.logger.Error("simulation step failed", log.Error(err))
				return err
			}
		}
	}
}

func (l *Loop) publish(snap Snapshot) {
	l.latest.Store(&snap)

	if err := l.bus.Publish(bus.NewEvent(EventStep, eventSource, snap)); err != nil {
		l.logger.Warn("step consumers failed", log.Uint64("frame", snap.Frame), log.Error(err))
	}

	if every := l.cfg.DiagnosticsEvery; every > 0 && snap.Frame%every == 0 {
		drift := 0.0
		if l.baseline != 0 {
			drift = (snap.Energy.Total - l.baseline) / math.Abs(l.baseline)
		}
		l.logger.Info("diagnostics",
			log.Uint64("frame", snap.Frame),
			log.Uint64("steps", snap.Steps),
			log.Float64("sim_time", snap.SimTime),
			log.Float64("energy", snap.Energy.Total),
			log.Float64("energy_drift", drift),
			log.Float64("momentum", snap.Momentum.Length()))
	}
}

func (l *Loop) notify(eventType string) {
	if err := l.bus.Publish(bus.NewEvent(eventType, eventSource, l.Snapshot().Frame)); err != nil {
		l.logger.Warn("event consumers failed", log.String("event", eventType), log.Error(err))
	}
}
