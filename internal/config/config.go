package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/gravisim/internal/core/models"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/simulation"
	"github.com/zeusync/gravisim/internal/core/systems/gravity"
	"github.com/zeusync/gravisim/internal/core/systems/physics"
	"github.com/zeusync/gravisim/internal/render"
	"github.com/zeusync/gravisim/internal/server"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the whole program configuration as read from YAML.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Universe UniverseConfig `yaml:"universe"`
	Loop     LoopConfig     `yaml:"loop"`
	Render   RenderConfig   `yaml:"render"`
	Server   ServerConfig   `yaml:"server"`
	Bodies   []BodyConfig   `yaml:"bodies"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	// Output is a zap sink: "stderr", "stdout" or a file path.
	Output string `yaml:"output"`
}

type UniverseConfig struct {
	G         float64 `yaml:"g"`
	Softening float64 `yaml:"softening"`
	Workers   int     `yaml:"workers"`
}

type LoopConfig struct {
	FixedStep        float64       `yaml:"fixed_step"`
	TimeScale        float64       `yaml:"time_scale"`
	MaxFrameTime     time.Duration `yaml:"max_frame_time"`
	MaxSubSteps      int           `yaml:"max_sub_steps"`
	DiagnosticsEvery uint64        `yaml:"diagnostics_every"`
	Tick             time.Duration `yaml:"tick"`
}

type RenderConfig struct {
	Headless   bool    `yaml:"headless"`
	Zoom       float64 `yaml:"zoom"`
	CellPixels float64 `yaml:"cell_pixels"`
}

// ServerConfig enables the remote viewers. An empty address disables the
// corresponding component.
type ServerConfig struct {
	WebsocketAddr string `yaml:"websocket_addr"`
	QuicAddr      string `yaml:"quic_addr"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisChannel  string `yaml:"redis_channel"`
}

// BodyConfig describes one planet. Mass falls back to models.DefaultMass.
type BodyConfig struct {
	Name     string     `yaml:"name"`
	Position [2]float64 `yaml:"position"`
	Velocity [2]float64 `yaml:"velocity"`
	Mass     *float64   `yaml:"mass,omitempty"`
}

// Default returns the two-moon scenario: two equal bodies 2000 km apart on
// opposite velocities, close to a circular mutual orbit.
func Default() *Config {
	loop := simulation.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info", Encoding: "json", Output: "stderr"},
		Universe: UniverseConfig{
			G:         gravity.G,
			Softening: gravity.DefaultSoftening,
			Workers:   1,
		},
		Loop: LoopConfig{
			FixedStep:        loop.FixedStep,
			TimeScale:        loop.TimeScale,
			MaxFrameTime:     loop.MaxFrameTime,
			MaxSubSteps:      loop.MaxSubSteps,
			DiagnosticsEvery: loop.DiagnosticsEvery,
			Tick:             time.Second / 60,
		},
		Render: RenderConfig{
			Zoom:       render.DefaultZoom,
			CellPixels: render.DefaultCellPixels,
		},
		Server: ServerConfig{RedisChannel: server.DefaultStepChannel},
		Bodies: []BodyConfig{
			{Name: "Deimos", Position: [2]float64{1e6, 0}, Velocity: [2]float64{0, -1.5e4}},
			{Name: "Phobos", Position: [2]float64{-1e6, 0}, Velocity: [2]float64{0, 1.5e4}},
		},
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadYAML decodes r on top of Default and validates the result. Keys absent
// from the document keep their default values; a bodies list replaces the
// default scenario entirely.
func LoadYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		invalid("log.level: %v", err)
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		invalid("log.encoding %q", c.Log.Encoding)
	}
	if c.Log.Output == "" {
		invalid("log.output is empty")
	}

	if !positive(c.Universe.G) {
		invalid("universe.g %v", c.Universe.G)
	}
	if !positive(c.Universe.Softening) {
		invalid("universe.softening %v", c.Universe.Softening)
	}
	if c.Universe.Workers < 0 {
		invalid("universe.workers %d", c.Universe.Workers)
	}

	if err := c.LoopConfig().Validate(); err != nil {
		invalid("loop: %v", err)
	}
	if c.Loop.Tick <= 0 {
		invalid("loop.tick %v", c.Loop.Tick)
	}

	if !positive(c.Render.Zoom) {
		invalid("render.zoom %v", c.Render.Zoom)
	}
	if !positive(c.Render.CellPixels) {
		invalid("render.cell_pixels %v", c.Render.CellPixels)
	}

	seen := make(map[string]bool, len(c.Bodies))
	for i, b := range c.Bodies {
		switch {
		case b.Name == "":
			invalid("bodies[%d]: empty name", i)
		case seen[b.Name]:
			invalid("bodies[%d]: duplicate name %q", i, b.Name)
		}
		seen[b.Name] = true
		for _, v := range [...]float64{b.Position[0], b.Position[1], b.Velocity[0], b.Velocity[1]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				invalid("bodies[%d] %q: non-finite state", i, b.Name)
				break
			}
		}
		if b.Mass != nil && !positive(*b.Mass) {
			invalid("bodies[%d] %q: mass %v", i, b.Name, *b.Mass)
		}
	}

	return errors.Join(errs...)
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.Level {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}

// LoopConfig converts the loop section.
func (c *Config) LoopConfig() simulation.Config {
	return simulation.Config{
		FixedStep:        c.Loop.FixedStep,
		TimeScale:        c.Loop.TimeScale,
		MaxFrameTime:     c.Loop.MaxFrameTime,
		MaxSubSteps:      c.Loop.MaxSubSteps,
		DiagnosticsEvery: c.Loop.DiagnosticsEvery,
	}
}

// UniverseOptions converts the universe section.
func (c *Config) UniverseOptions() []gravity.Option {
	return []gravity.Option{
		gravity.WithGravitationalConstant(c.Universe.G),
		gravity.WithSoftening(c.Universe.Softening),
		gravity.WithWorkers(c.Universe.Workers),
	}
}

// BuildWorld creates the planets in file order.
func (c *Config) BuildWorld() (*models.World, error) {
	planets := make([]*models.Planet, 0, len(c.Bodies))
	for _, b := range c.Bodies {
		opts := []models.PlanetOption{
			models.WithVelocity(physics.Vec2(b.Velocity[0], b.Velocity[1])),
		}
		if b.Mass != nil {
			opts = append(opts, models.WithMass(*b.Mass))
		}
		p, err := models.NewPlanet(b.Name, physics.Vec2(b.Position[0], b.Position[1]), opts...)
		if err != nil {
			return nil, err
		}
		planets = append(planets, p)
	}
	return models.NewWorld(planets...)
}
