package models

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/szgerii/Safari-sub001/quadtree"
)

func newTestLevel(t *testing.T) *Level {
	t.Helper()

	conf := Config{
		Name:     "level_test",
		Bounds:   quadtree.NewRect(0, 0, 1000, 1000),
		Quadtree: testQuadtreeConfig,
	}
	l := NewLevel(1, conf, time.Millisecond, nil)
	t.Cleanup(l.Close)
	return l
}

func TestLevelEntities(t *testing.T) {
	l := newTestLevel(t)

	animal := NewEntity(l.NewEntityID(), KindAnimal, quadtree.NewRect(10, 10, 5, 5))
	tourist := NewEntity(l.NewEntityID(), KindTourist, quadtree.NewRect(10, 10, 5, 5))

	require.True(t, l.AddEntity(animal))
	require.False(t, l.AddEntity(tourist))
	require.Equal(t, 2, l.EntityCount())
	require.Equal(t, []*Entity{animal, tourist}, l.Entities())
	require.Equal(t, []*Entity{tourist}, l.EntitiesByKind(KindTourist))

	e, ok := l.EntityByID(animal.ID)
	require.True(t, ok)
	require.Equal(t, animal, e)

	t.Run("tourists are not in the index", func(t *testing.T) {
		res := l.Spatial().Query(quadtree.NewRect(0, 0, 100, 100))
		require.Equal(t, []*Entity{animal}, res)
	})

	t.Run("move entity", func(t *testing.T) {
		require.True(t, l.MoveEntity(animal, 500, 500))
		require.Empty(t, l.Spatial().Query(quadtree.NewRect(0, 0, 100, 100)))
	})

	t.Run("remove entity twice", func(t *testing.T) {
		l.RemoveEntity(animal)
		l.RemoveEntity(animal)
		require.Equal(t, 1, l.EntityCount())
		require.Zero(t, l.Spatial().Index.Len())

		_, ok := l.EntityByID(animal.ID)
		require.False(t, ok)
	})
}

func TestLevelAddEntityWithRegisteredID(t *testing.T) {
	l := newTestLevel(t)

	first := NewEntity(7, KindAnimal, quadtree.NewRect(10, 10, 5, 5))
	second := NewEntity(7, KindPoacher, quadtree.NewRect(600, 600, 5, 5))

	require.True(t, l.AddEntity(first))
	require.True(t, l.AddEntity(second))
	require.Equal(t, 1, l.EntityCount())
	require.Equal(t, 1, l.Spatial().Index.Len())
	require.Empty(t, l.Spatial().Query(quadtree.NewRect(0, 0, 100, 100)))

	e, ok := l.EntityByID(7)
	require.True(t, ok)
	require.Equal(t, second, e)

	t.Run("removing the replaced entity keeps the new one", func(t *testing.T) {
		l.RemoveEntity(first)
		require.Equal(t, 1, l.EntityCount())
		require.Equal(t, []*Entity{second}, l.Spatial().Query(l.Bounds()))
	})

	t.Run("removing the new entity empties the index", func(t *testing.T) {
		l.RemoveEntity(second)
		require.Zero(t, l.EntityCount())
		require.Zero(t, l.Spatial().Index.Len())
		require.Empty(t, l.Spatial().Query(l.Bounds()))
	})

	t.Run("adding the same entity twice keeps one entry", func(t *testing.T) {
		require.True(t, l.AddEntity(first))
		require.True(t, l.AddEntity(first))
		require.Equal(t, 1, l.EntityCount())
		require.Equal(t, 1, l.Spatial().Index.Len())
	})
}

func TestLevelSpawnEntities(t *testing.T) {
	l := newTestLevel(t)

	spawns := []SpawnConfig{
		{Kind: KindAnimal, Count: 20, Width: 10, Height: 10},
		{Kind: KindJeep, Count: 5, Width: 30, Height: 20},
	}
	entities := l.SpawnEntities(spawns, rand.New(rand.NewSource(42)))
	require.Len(t, entities, 25)
	require.Equal(t, 25, l.EntityCount())
	require.Equal(t, 20, l.Spatial().Index.Len())

	for _, e := range entities {
		require.True(t, l.Bounds().Contains(e.Bounds()))
	}
}

func TestLevelModuleState(t *testing.T) {
	l := newTestLevel(t)

	_, ok := l.ModuleState("movement")
	require.False(t, ok)

	l.SetModuleState("movement", 42)
	state, ok := l.ModuleState("movement")
	require.True(t, ok)
	require.Equal(t, 42, state)
}

func TestLevelFrames(t *testing.T) {
	l := newTestLevel(t)

	var order []int
	frames := make(chan Frame, 1)

	cancelFirst := l.HandleFrame(func(f Frame) {
		order = append(order, 1)
	})
	l.HandleFrame(func(f Frame) {
		order = append(order, 2)
		select {
		case frames <- f:
		default:
		}
	})
	go l.StartDispatchFrames()

	first := <-frames
	require.NotZero(t, first.Number)

	cancelFirst()
	cancelFirst()

	var observed []int
	err := l.Exec(context.Background(), func() {
		observed = append(observed, order...)
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(observed), 2)
	require.Equal(t, []int{1, 2}, observed[:2])

	second := <-frames
	require.Greater(t, second.Number, first.Number)
}

func TestLevelExec(t *testing.T) {
	t.Run("runs on the frame goroutine", func(t *testing.T) {
		l := newTestLevel(t)
		go l.StartDispatchFrames()

		var called atomic.Bool
		err := l.Exec(context.Background(), func() {
			called.Store(true)
		})
		require.NoError(t, err)
		require.True(t, called.Load())
	})

	t.Run("closed level", func(t *testing.T) {
		l := newTestLevel(t)
		l.Close()

		err := l.Exec(context.Background(), func() {})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeLevelClosed))
	})

	t.Run("canceled context", func(t *testing.T) {
		l := newTestLevel(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := l.Exec(ctx, func() {})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestLevelClose(t *testing.T) {
	t.Run("running level", func(t *testing.T) {
		l := newTestLevel(t)
		l.AddEntity(NewEntity(l.NewEntityID(), KindAnimal, quadtree.NewRect(1, 1, 1, 1)))

		done := make(chan struct{})
		go func() {
			l.StartDispatchFrames()
			close(done)
		}()

		require.NoError(t, l.Exec(context.Background(), func() {}))
		l.Close()
		l.Close()

		<-done
		<-l.Unloaded()
		require.Zero(t, l.EntityCount())
		require.False(t, l.Spatial().Index.Initialized())
	})

	t.Run("level that never ran", func(t *testing.T) {
		l := newTestLevel(t)
		l.Close()

		<-l.Unloaded()
		l.StartDispatchFrames()
	})
}

func TestLevelStore(t *testing.T) {
	var s LevelStore
	require.Zero(t, s.Len())

	conf := Config{
		Name:     "store_test",
		Bounds:   quadtree.NewRect(0, 0, 100, 100),
		Quadtree: testQuadtreeConfig,
	}
	a := NewLevel(s.NewID(), conf, time.Second, nil)
	b := NewLevel(s.NewID(), conf, time.Second, nil)
	s.Add(b)
	s.Add(a)

	require.Equal(t, 2, s.Len())
	require.Equal(t, []*Level{a, b}, s.List())

	l, err := s.Get(a.ID)
	require.NoError(t, err)
	require.Equal(t, a, l)

	s.Remove(a)
	s.Remove(a)
	<-a.Unloaded()

	_, err = s.Get(a.ID)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeLevelNotFound))
	require.Equal(t, a.ID, s.NewID())

	s.Remove(b)
	require.Zero(t, s.Len())
}
