// Package collision runs the broad phase of collision detection: it finds
// the pairs of indexed entities whose bounds overlap. Resolving them is left
// to the narrow phase.
package collision

import (
	"cmp"
	"context"
	"slices"

	"github.com/szgerii/Safari-sub001/models"
)

// Pair is a candidate pair, with A lower than B.
type Pair struct {
	A uint32 `json:"a"`
	B uint32 `json:"b"`
}

func newPair(a, b uint32) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// State holds the candidate pairs of the last frame. It is only used from the
// frame goroutine.
type State struct {
	Frame uint64
	Pairs []Pair
}

type Module struct {
	level      *models.Level
	state      *State
	seen       map[Pair]struct{}
	candidates []*models.Entity
}

func New() *Module {
	return &Module{
		seen: make(map[Pair]struct{}),
	}
}

func (m *Module) Name() string {
	return "collision"
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

// HandleFrame queries the bounds of every indexed mobile entity. Static
// entities only show up as the other side of a pair.
func (m *Module) HandleFrame(ctx context.Context, f models.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	spatial := m.level.Spatial()
	clear(m.seen)
	pairs := m.state.Pairs[:0]

	for _, e := range m.level.Entities() {
		if !e.Kind.Mobile() || !spatial.Index.Contains(e) {
			continue
		}

		m.candidates = spatial.Nearby(e, 0, m.candidates[:0])
		for _, other := range m.candidates {
			p := newPair(e.ID, other.ID)
			if _, ok := m.seen[p]; ok {
				continue
			}
			m.seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}

	slices.SortFunc(pairs, func(a, b Pair) int {
		if c := cmp.Compare(a.A, b.A); c != 0 {
			return c
		}
		return cmp.Compare(a.B, b.B)
	})

	m.state.Frame = f.Number
	m.state.Pairs = pairs
	instrumentCandidatePairs(m.level.Name, len(pairs))
	return nil
}

func (m *Module) Close() {
	instrumentCandidatePairs(m.level.Name, 0)
}
