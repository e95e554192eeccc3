package perception

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/szgerii/Safari-sub001/models"
	"github.com/szgerii/Safari-sub001/quadtree"
)

func newTestLevel(t *testing.T) *models.Level {
	t.Helper()

	conf := models.Config{
		Name:   "perception_test",
		Bounds: quadtree.NewRect(0, 0, 1000, 1000),
		Quadtree: quadtree.Config{
			Capacity: 2,
			MaxDepth: 6,
		},
	}
	l := models.NewLevel(1, conf, time.Hour, nil)
	t.Cleanup(l.Close)
	return l
}

func TestModule(t *testing.T) {
	l := newTestLevel(t)

	ranger := models.NewEntity(l.NewEntityID(), models.KindRanger, quadtree.NewRect(100, 100, 10, 10))
	near := models.NewEntity(l.NewEntityID(), models.KindPoacher, quadtree.NewRect(140, 100, 10, 10))
	far := models.NewEntity(l.NewEntityID(), models.KindPoacher, quadtree.NewRect(800, 800, 10, 10))
	animal := models.NewEntity(l.NewEntityID(), models.KindAnimal, quadtree.NewRect(120, 120, 10, 10))
	for _, e := range []*models.Entity{ranger, near, far, animal} {
		l.AddEntity(e)
	}

	m := New(50)
	m.Init(l)
	require.Equal(t, "perception", m.Name())

	err := m.HandleFrame(context.Background(), models.Frame{Number: 1})
	require.NoError(t, err)

	t.Run("only nearby poachers are detected", func(t *testing.T) {
		require.Equal(t, []Detection{
			{RangerID: ranger.ID, PoacherID: near.ID, Frame: 1},
		}, m.state.Detections())
	})

	t.Run("a poacher walking into sight is detected", func(t *testing.T) {
		l.MoveEntity(far, 100, 150)
		err := m.HandleFrame(context.Background(), models.Frame{Number: 2})
		require.NoError(t, err)

		d, ok := m.state.LastSeen(far.ID)
		require.True(t, ok)
		require.Equal(t, uint64(2), d.Frame)
	})

	t.Run("removed poachers are forgotten", func(t *testing.T) {
		l.RemoveEntity(near)
		err := m.HandleFrame(context.Background(), models.Frame{Number: 3})
		require.NoError(t, err)

		_, ok := m.state.LastSeen(near.ID)
		require.False(t, ok)
		require.Len(t, m.state.Detections(), 1)
	})

	t.Run("default sight radius", func(t *testing.T) {
		require.Equal(t, float64(DefaultSightRadius), New(0).sightRadius)
	})
}
