package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/gravisim/internal/config"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/injector"
	"github.com/zeusync/gravisim/internal/render"
	"github.com/zeusync/gravisim/internal/server"
)

func main() {
	var (
		configPath string
		headless   bool
		logLevel   string
		duration   time.Duration
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config (defaults to the two-moon scenario)")
	flag.BoolVar(&headless, "headless", false, "run without the terminal renderer")
	flag.StringVar(&logLevel, "log-level", "", "override log.level")
	flag.DurationVar(&duration, "duration", 0, "stop after this much wall-clock time (0 runs until interrupted)")
	flag.Parse()

	cfg, err := loadConfig(configPath, headless, logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-stopCh:
			app.Logger.Info("shutting down", log.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	err = run(ctx, cancel, app)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		app.Logger.Error("simulation failed", log.Error(err))
		cleanup()
		os.Exit(1)
	}

	snap := app.Loop.Snapshot()
	app.Logger.Info("simulation finished",
		log.Uint64("frame", snap.Frame),
		log.Uint64("steps", snap.Steps),
		log.Float64("sim_time", snap.SimTime),
		log.Float64("energy", snap.Energy.Total))
}

func loadConfig(path string, headless bool, logLevel string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if headless {
		cfg.Render.Headless = true
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	// The terminal renderer owns the tty.
	if !cfg.Render.Headless && (cfg.Log.Output == "stderr" || cfg.Log.Output == "stdout") {
		cfg.Log.Output = "gravisim.log"
	}
	return cfg, cfg.Validate()
}

// run drives the loop and every enabled consumer until ctx is done, the user
// quits the renderer or one of them fails.
func run(ctx context.Context, cancel context.CancelFunc, app *injector.App) error {
	cfg := app.Config
	initial := app.Loop.Snapshot()
	g, ctx := errgroup.WithContext(ctx)

	if addr := cfg.Server.WebsocketAddr; addr != "" {
		hub, err := server.NewHub(app.Bus, initial, app.Logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return hub.Serve(ctx, addr) })
	}

	if addr := cfg.Server.QuicAddr; addr != "" {
		feed, err := server.ListenFeed(addr, app.Bus, initial, app.Logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return feed.Serve(ctx) })
	}

	if addr := cfg.Server.RedisAddr; addr != "" {
		client, err := server.NewRedisPublisher(ctx, addr)
		if err != nil {
			return err
		}
		defer client.Close()

		notifier, err := server.NewStepNotifier(client, cfg.Server.RedisChannel, app.Bus, app.Logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return notifier.Run(ctx) })
	}

	g.Go(func() error { return app.Loop.Run(ctx, cfg.Loop.Tick) })

	if !cfg.Render.Headless {
		screen, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := screen.Init(); err != nil {
			return err
		}
		defer screen.Fini()

		term, err := render.NewTerminal(screen, app.Bus, render.NewCamera(cfg.Render.Zoom, cfg.Render.CellPixels), app.Logger)
		if err != nil {
			return err
		}
		defer term.Close()

		g.Go(func() error {
			// Quitting the renderer stops everything else.
			defer cancel()
			return term.Run(ctx, initial)
		})
	}

	return g.Wait()
}
