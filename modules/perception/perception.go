// Package perception lets rangers spot the poachers around them.
package perception

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/szgerii/Safari-sub001/models"
)

const DefaultSightRadius = 150

type Module struct {
	level       *models.Level
	state       *State
	sightRadius float64
	nearby      []*models.Entity
}

// New returns a perception module where rangers see sightRadius map units
// around their bounds.
func New(sightRadius float64) *Module {
	if sightRadius <= 0 {
		sightRadius = DefaultSightRadius
	}
	return &Module{sightRadius: sightRadius}
}

func (m *Module) Name() string {
	return "perception"
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
	spatial := m.level.Spatial()

	for _, ranger := range m.level.EntitiesByKind(models.KindRanger) {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.nearby = spatial.Nearby(ranger, m.sightRadius, m.nearby[:0])
		for _, e := range m.nearby {
			if e.Kind != models.KindPoacher {
				continue
			}

			last, seen := m.state.LastSeen(e.ID)
			m.state.Record(Detection{
				RangerID:  ranger.ID,
				PoacherID: e.ID,
				Frame:     f.Number,
			})
			instrumentDetection(m.level.Name)

			if !seen || last.Frame+1 < f.Number {
				logs.WithTag("level", m.level.Name).
					WithTag("ranger_id", ranger.ID).
					WithTag("poacher_id", e.ID).
					WithTag("frame", f.Number).
					Debug("poacher spotted")
			}
		}
	}

	for _, d := range m.state.Detections() {
		if _, ok := m.level.EntityByID(d.PoacherID); !ok {
			m.state.Forget(d.PoacherID)
		}
	}
	return nil
}

func (m *Module) Close() {
	clear(m.nearby)
	m.nearby = nil
}
