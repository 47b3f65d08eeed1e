package simulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/gravisim/internal/core/events/bus"
	"github.com/zeusync/gravisim/internal/core/models"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/systems/gravity"
	"github.com/zeusync/gravisim/internal/core/systems/physics"
)

func testConfig() Config {
	return Config{
		FixedStep:    0.25,
		TimeScale:    1,
		MaxFrameTime: 10 * time.Second,
		MaxSubSteps:  100,
	}
}

func newTestLoop(t *testing.T, cfg Config) (*Loop, bus.EventBus) {
	t.Helper()
	u, err := gravity.NewUniverse(gravity.WithGravitationalConstant(1), gravity.WithSoftening(1e-6))
	require.NoError(t, err)

	v := gravity.CircularOrbitSpeed(1, 1, 1)
	w, err := models.NewWorld(
		models.MustPlanet("a", physics.Vec2(-0.5, 0), models.WithMass(1), models.WithVelocity(physics.Vec2(0, -v))),
		models.MustPlanet("b", physics.Vec2(0.5, 0), models.WithMass(1), models.WithVelocity(physics.Vec2(0, v))),
	)
	require.NoError(t, err)

	b := bus.New()
	l, err := NewLoop(u, w, b, log.NewNop(), cfg)
	require.NoError(t, err)
	return l, b
}

func TestNewLoopValidation(t *testing.T) {
	u, err := gravity.NewUniverse()
	require.NoError(t, err)
	w, err := models.NewWorld()
	require.NoError(t, err)

	_, err = NewLoop(nil, w, bus.New(), nil, testConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	for _, mutate := range []func(*Config){
		func(c *Config) { c.FixedStep = 0 },
		func(c *Config) { c.TimeScale = -1 },
		func(c *Config) { c.MaxFrameTime = 0 },
		func(c *Config) { c.MaxSubSteps = 0 },
	} {
		cfg := testConfig()
		mutate(&cfg)
		_, err = NewLoop(u, w, bus.New(), nil, cfg)
		assert.ErrorIs(t, err, ErrInvalidLoopConfig)
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestInitialSnapshot(t *testing.T) {
	l, _ := newTestLoop(t, testConfig())

	snap := l.Snapshot()
	assert.Zero(t, snap.Frame)
	assert.Zero(t, snap.SimTime)
	require.Len(t, snap.Bodies, 2)
	assert.Equal(t, "a", snap.Bodies[0].Name)
	assert.Equal(t, physics.Vec2(-0.5, 0), snap.Bodies[0].Position)
	assert.Equal(t, physics.Zero, snap.GeoCenter)
	assert.InDelta(t, -0.5, snap.Energy.Total, 1e-12)
	assert.NotZero(t, snap.Fingerprint)
}

func TestAdvanceRunsFixedSteps(t *testing.T) {
	l, _ := newTestLoop(t, testConfig())

	snap, err := l.Advance(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Frame)
	assert.Equal(t, uint64(4), snap.Steps)
	assert.InDelta(t, 1.0, snap.SimTime, 1e-12)

	// Partial frames accumulate until a full step is due.
	snap, err = l.Advance(125 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), snap.Steps)

	snap, err = l.Advance(125 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), snap.Steps)
	assert.Equal(t, uint64(3), snap.Frame)
	assert.Equal(t, snap, l.Snapshot())
}

func TestAdvanceAppliesTimeScale(t *testing.T) {
	cfg := testConfig()
	cfg.TimeScale = 8
	l, _ := newTestLoop(t, cfg)

	snap, err := l.Advance(250 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), snap.Steps)
	assert.InDelta(t, 2.0, snap.SimTime, 1e-12)
}

func TestAdvanceClampsLongFrames(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFrameTime = 500 * time.Millisecond
	l, _ := newTestLoop(t, cfg)

	snap, err := l.Advance(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Steps)
}

func TestAdvanceCapsSubSteps(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSubSteps = 3
	l, _ := newTestLoop(t, cfg)

	snap, err := l.Advance(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Steps)

	// The backlog was dropped, not carried into the next frame.
	snap, err = l.Advance(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Steps)
}

func TestAdvanceZeroFrameLeavesStateUntouched(t *testing.T) {
	l, _ := newTestLoop(t, testConfig())
	before := l.Snapshot()

	snap, err := l.Advance(0)
	require.NoError(t, err)
	assert.Equal(t, before.Fingerprint, snap.Fingerprint)
	assert.Equal(t, before.Bodies, snap.Bodies)
}

func TestAdvanceRejectsNegativeFrame(t *testing.T) {
	l, _ := newTestLoop(t, testConfig())
	_, err := l.Advance(-time.Millisecond)
	assert.ErrorIs(t, err, ErrNegativeFrame)
}

func TestStep(t *testing.T) {
	l, _ := newTestLoop(t, testConfig())

	snap, err := l.Step(0.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Steps)
	assert.InDelta(t, 0.5, snap.SimTime, 1e-12)

	_, err = l.Step(-1)
	assert.ErrorIs(t, err, gravity.ErrNegativeTimeStep)
}

func TestAdvancePublishesStepEvents(t *testing.T) {
	l, b := newTestLoop(t, testConfig())

	var got []Snapshot
	_, err := b.Subscribe(EventStep, func(e bus.Event) error {
		got = append(got, e.Data().(Snapshot))
		return nil
	})
	require.NoError(t, err)

	_, err = l.Advance(time.Second)
	require.NoError(t, err)
	_, err = l.Advance(time.Second)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Frame)
	assert.Equal(t, uint64(2), got[1].Frame)
	assert.NotEqual(t, got[0].Fingerprint, got[1].Fingerprint)
}

func TestViewSeesCurrentWorld(t *testing.T) {
	l, _ := newTestLoop(t, testConfig())
	snap, err := l.Advance(time.Second)
	require.NoError(t, err)

	l.View(func(w *models.World) {
		assert.Equal(t, snap.Fingerprint, Fingerprint(w))
		assert.Equal(t, 2, w.Len())
	})
}

func TestRunUntilCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.TimeScale = 1000
	l, b := newTestLoop(t, cfg)

	var (
		mu     sync.Mutex
		events []string
		steps  int
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, typ := range []string{EventStarted, EventStep, EventStopped} {
		_, err := b.Subscribe(typ, func(e bus.Event) error {
			mu.Lock()
			defer mu.Unlock()
			if e.Type() == EventStep {
				steps++
				if steps == 3 {
					cancel()
				}
				return nil
			}
			events = append(events, e.Type())
			return nil
		})
		require.NoError(t, err)
	}

	err := l.Run(ctx, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, steps, 3)
	assert.Equal(t, []string{EventStarted, EventStopped}, events)
	assert.Greater(t, l.Snapshot().SimTime, 0.0)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	l, b := newTestLoop(t, testConfig())

	started := make(chan struct{})
	_, err := b.Subscribe(EventStarted, func(bus.Event) error { close(started); return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, time.Millisecond) }()

	<-started
	assert.ErrorIs(t, l.Run(context.Background(), time.Millisecond), ErrLoopRunning)
	assert.ErrorIs(t, l.Run(context.Background(), 0), ErrInvalidLoopConfig)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
