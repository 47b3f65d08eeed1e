package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/gravisim/internal/core/events/bus"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/simulation"
)

var (
	ErrNilDependency     = errors.New("render: nil screen or event bus")
	ErrUnexpectedPayload = errors.New("render: unexpected step payload")
)

// Terminal draws step snapshots on a tcell screen. Drawing and input handling
// happen on the goroutine calling Run; the bus handler only hands over the
// newest snapshot.
type Terminal struct {
	screen tcell.Screen
	camera *Camera
	logger log.Log
	sub    bus.Subscription

	frames chan simulation.Snapshot
	last   simulation.Snapshot
}

// NewTerminal subscribes to step events. The screen must already be
// initialized; the caller owns Init and Fini.
func NewTerminal(screen tcell.Screen, eventBus bus.EventBus, camera *Camera, logger log.Log) (*Terminal, error) {
	if screen == nil || eventBus == nil {
		return nil, ErrNilDependency
	}
	if camera == nil {
		camera = NewCamera(DefaultZoom, DefaultCellPixels)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	t := &Terminal{
		screen: screen,
		camera: camera,
		logger: logger.With(log.String("component", "terminal")),
		frames: make(chan simulation.Snapshot, 1),
	}

	sub, err := eventBus.Subscribe(simulation.EventStep, t.onStep)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", simulation.EventStep, err)
	}
	t.sub = sub
	return t, nil
}

func (t *Terminal) onStep(e bus.Event) error {
	snap, ok := e.Data().(simulation.Snapshot)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedPayload, e.Data())
	}
	// Keep only the newest.
	select {
	case <-t.frames:
	default:
	}
	select {
	case t.frames <- snap:
	default:
	}
	return nil
}

func (t *Terminal) Camera() *Camera { return t.camera }

// Draw clears the screen and renders the scene for snap.
func (t *Terminal) Draw(snap simulation.Snapshot) {
	t.last = snap
	w, h := t.screen.Size()
	t.screen.Fill(' ', tcell.StyleDefault.Background(Background))

	p := t.camera.Projector(snap.GeoCenter, w, h)
	for _, r := range Scene(snap, t.camera.Zoom) {
		r.Render(p, t.screen)
	}
	t.screen.Show()
}

// HandleEvent applies one input event and reports whether the user asked to
// quit.
func (t *Terminal) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return true
			case '+', '=':
				t.camera.ZoomIn()
			case '-', '_':
				t.camera.ZoomOut()
			case 'f':
				t.camera.Follow = !t.camera.Follow
			default:
				return false
			}
			t.Draw(t.last)
		}
	case *tcell.EventResize:
		t.screen.Sync()
		t.Draw(t.last)
	}
	return false
}

// Run draws initial, then every published step, until the user quits (nil),
// the screen is finalized (nil) or ctx is done (ctx.Err()).
func (t *Terminal) Run(ctx context.Context, initial simulation.Snapshot) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go t.screen.ChannelEvents(events, quit)

	t.logger.Debug("terminal renderer started")
	t.Draw(initial)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-t.frames:
			t.Draw(snap)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if t.HandleEvent(ev) {
				t.logger.Info("quit requested", log.Uint64("frame", t.last.Frame))
				return nil
			}
		}
	}
}

// Close drops the step subscription.
func (t *Terminal) Close() error {
	return t.sub.Cancel()
}
