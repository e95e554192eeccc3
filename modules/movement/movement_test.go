package movement

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
		Name:   "movement_test",
		Bounds: quadtree.NewRect(0, 0, 500, 500),
		Quadtree: quadtree.Config{
			Capacity: 4,
			MaxDepth: 5,
		},
	}
	l := models.NewLevel(1, conf, time.Hour, nil)
	t.Cleanup(l.Close)
	return l
}

func TestStep(t *testing.T) {
	t.Run("reaches a close target", func(t *testing.T) {
		x, y := step(0, 0, target{x: 3, y: 4}, 10)
		require.Equal(t, 3.0, x)
		require.Equal(t, 4.0, y)
	})

	t.Run("moves toward a far target", func(t *testing.T) {
		x, y := step(0, 0, target{x: 30, y: 40}, 5)
		require.InDelta(t, 3.0, x, 1e-9)
		require.InDelta(t, 4.0, y, 1e-9)
	})

	t.Run("no distance", func(t *testing.T) {
		x, y := step(1, 2, target{x: 30, y: 40}, 0)
		require.Equal(t, 1.0, x)
		require.Equal(t, 2.0, y)
	})
}

func TestModule(t *testing.T) {
	l := newTestLevel(t)

	plant := models.NewEntity(l.NewEntityID(), models.KindPlant, quadtree.NewRect(100, 100, 5, 5))
	animal := models.NewEntity(l.NewEntityID(), models.KindAnimal, quadtree.NewRect(100, 100, 5, 5))
	jeep := models.NewEntity(l.NewEntityID(), models.KindJeep, quadtree.NewRect(200, 200, 20, 10))
	for _, e := range []*models.Entity{plant, animal, jeep} {
		l.AddEntity(e)
	}

	m := New(7)
	m.Init(l)
	require.Equal(t, "movement", m.Name())

	for i := 1; i <= 50; i++ {
		err := m.HandleFrame(context.Background(), models.Frame{
			Number: uint64(i),
			Delta:  100 * time.Millisecond,
		})
		require.NoError(t, err)
	}

	t.Run("plants do not move", func(t *testing.T) {
		require.Equal(t, quadtree.NewRect(100, 100, 5, 5), plant.Bounds())
	})

	t.Run("mobile entities move inside the map", func(t *testing.T) {
		require.NotEqual(t, quadtree.NewRect(100, 100, 5, 5), animal.Bounds())
		require.NotEqual(t, quadtree.NewRect(200, 200, 20, 10), jeep.Bounds())
		require.True(t, l.Bounds().Contains(animal.Bounds()))
		require.True(t, l.Bounds().Contains(jeep.Bounds()))
	})

	t.Run("the index follows indexed entities", func(t *testing.T) {
		res := l.Spatial().Query(animal.Bounds())
		require.Contains(t, res, animal)
		require.False(t, l.Spatial().Index.Contains(jeep))
	})

	t.Run("removed entities are forgotten", func(t *testing.T) {
		state, ok := l.ModuleState("movement")
		require.True(t, ok)
		require.Equal(t, 2, state.(*State).Len())

		l.RemoveEntity(animal)
		err := m.HandleFrame(context.Background(), models.Frame{Number: 51, Delta: 100 * time.Millisecond})
		require.NoError(t, err)
		require.Equal(t, 1, state.(*State).Len())
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, m.HandleFrame(ctx, models.Frame{}), context.Canceled)
	})
}
