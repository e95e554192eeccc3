// Package movement makes the mobile entities of a level wander around the
// map.
package movement

import (
	"context"
	"math"
	"math/rand"

	"github.com/szgerii/Safari-sub001/models"
)

// Speeds in map units per second.
var defaultSpeeds = map[models.EntityKind]float64{
	models.KindAnimal:  40,
	models.KindRanger:  60,
	models.KindPoacher: 50,
	models.KindTourist: 20,
	models.KindJeep:    120,
}

type Module struct {
	level  *models.Level
	state  *State
	rng    *rand.Rand
	speeds map[models.EntityKind]float64
	alive  map[uint32]struct{}
}

// New returns a movement module picking destinations with a random source
// seeded with seed.
func New(seed int64) *Module {
	return &Module{
		rng:    rand.New(rand.NewSource(seed)),
		speeds: defaultSpeeds,
		alive:  make(map[uint32]struct{}),
	}
}

func (m *Module) Name() string {
	return "movement"
}

func (m *Module) Init(l *models.Level) {
	m.level = l

	state, ok := l.ModuleState(m.Name())
	if !ok {
		state = &State{}
		l.SetModuleState(m.Name(), state)
	}
	m.state = state.(*State)
}

func (m *Module) HandleFrame(ctx context.Context, f models.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dt := f.Delta.Seconds()
	clear(m.alive)

	for _, e := range m.level.Entities() {
		speed, ok := m.speeds[e.Kind]
		if !ok || !e.Kind.Mobile() {
			continue
		}
		m.alive[e.ID] = struct{}{}

		x, y := e.Position()
		t, ok := m.state.target(e.ID)
		if !ok || (t.x == x && t.y == y) {
			t = m.randomTarget(e)
			m.state.setTarget(e.ID, t)
		}

		nx, ny := step(x, y, t, speed*dt)
		if nx == x && ny == y {
			continue
		}
		m.level.MoveEntity(e, nx, ny)
	}

	m.state.prune(m.alive)
	return nil
}

func (m *Module) Close() {
}

// randomTarget returns a position keeping e entirely inside the map.
func (m *Module) randomTarget(e *models.Entity) target {
	bounds := m.level.Bounds()
	b := e.Bounds()

	return target{
		x: bounds.X + m.rng.Float64()*max(bounds.Width-b.Width, 0),
		y: bounds.Y + m.rng.Float64()*max(bounds.Height-b.Height, 0),
	}
}

// step moves (x, y) toward t by at most distance.
func step(x, y float64, t target, distance float64) (float64, float64) {
	dx := t.x - x
	dy := t.y - y
	remaining := math.Hypot(dx, dy)

	if remaining <= distance {
		return t.x, t.y
	}
	if distance <= 0 {
		return x, y
	}

	ratio := distance / remaining
	return x + dx*ratio, y + dy*ratio
}
