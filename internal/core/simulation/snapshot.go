package simulation

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/gravisim/internal/core/models"
	"github.com/zeusync/gravisim/internal/core/systems/gravity"
	"github.com/zeusync/gravisim/internal/core/systems/physics"
	"github.com/zeusync/gravisim/pkg/generic"
)

const fingerprintWords = 5

var fingerprintBuffers = generic.NewPool(func() *[]byte {
	b := make([]byte, 0, 64*fingerprintWords*8)
	return &b
})

// BodyState is the read-only view of one planet at a frame.
type BodyState struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Mass     float64         `json:"mass"`
	Position physics.Vector2 `json:"position"`
	Velocity physics.Vector2 `json:"velocity"`
}

// Snapshot is a consistent copy of the world taken between steps. Consumers
// (renderers, viewers, notifiers) only ever see snapshots.
type Snapshot struct {
	Frame        uint64          `json:"frame"`
	Steps        uint64          `json:"steps"`
	SimTime      float64         `json:"sim_time"`
	Bodies       []BodyState     `json:"bodies"`
	CenterOfMass physics.Vector2 `json:"center_of_mass"`
	GeoCenter    physics.Vector2 `json:"geo_center"`
	Energy       gravity.Energy  `json:"energy"`
	Momentum     physics.Vector2 `json:"momentum"`
	Fingerprint  uint64          `json:"fingerprint"`
	CapturedAt   time.Time       `json:"captured_at"`
}

// Capture copies world into a Snapshot. The caller must hold read access.
func Capture(u *gravity.Universe, world *models.World, frame uint64) Snapshot {
	bodies := make([]BodyState, 0, world.Len())
	for _, p := range world.Planets() {
		bodies = append(bodies, BodyState{
			ID:       p.ID,
			Name:     p.Name,
			Mass:     p.Mass(),
			Position: p.Motion.Position,
			Velocity: p.Motion.Velocity,
		})
	}

	return Snapshot{
		Frame:        frame,
		Steps:        u.Steps(),
		SimTime:      u.Elapsed(),
		Bodies:       bodies,
		CenterOfMass: gravity.CenterOfMass(world),
		GeoCenter:    gravity.GeometricCenter(world),
		Energy:       u.Energy(world),
		Momentum:     gravity.Momentum(world),
		Fingerprint:  Fingerprint(world),
		CapturedAt:   time.Now(),
	}
}

// Body returns the state of the named body.
func (s Snapshot) Body(name string) (BodyState, bool) {
	for _, b := range s.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return BodyState{}, false
}

// Fingerprint hashes the exact bit patterns of every planet's mass, position
// and velocity, in world order. Equal fingerprints mean bit-identical state.
func Fingerprint(world *models.World) uint64 {
	bp := fingerprintBuffers.Get()
	defer fingerprintBuffers.Put(bp)

	buf := (*bp)[:0]
	for _, p := range world.Planets() {
		for _, f := range [...]float64{
			p.Mass(),
			p.Motion.Position.X, p.Motion.Position.Y,
			p.Motion.Velocity.X, p.Motion.Velocity.Y,
		} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
	}
	*bp = buf
	return xxhash.Sum64(buf)
}
