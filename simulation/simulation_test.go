package simulation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/stretchr/testify/require"
	"github.com/szgerii/Safari-sub001/featureflag"
	"github.com/szgerii/Safari-sub001/models"
	"github.com/szgerii/Safari-sub001/modules"
	"github.com/szgerii/Safari-sub001/quadtree"
)

type testModule struct {
	name string
	err  error

	mutex       sync.Mutex
	initialized bool
	closed      bool
	frames      []uint64
}

func (m *testModule) Name() string {
	return m.name
}

func (m *testModule) Init(*models.Level) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.initialized = true
}

func (m *testModule) HandleFrame(ctx context.Context, f models.Frame) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.frames = append(m.frames, f.Number)
	return m.err
}

func (m *testModule) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
}

func (m *testModule) frameCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.frames)
}

func newTestLevel(t *testing.T, frameDuration time.Duration) *models.Level {
	t.Helper()

	conf := models.Config{
		Name:   "simulation_test",
		Bounds: quadtree.NewRect(0, 0, 100, 100),
		Quadtree: quadtree.Config{
			Capacity: 2,
			MaxDepth: 4,
		},
	}
	l := models.NewLevel(1, conf, frameDuration, nil)
	t.Cleanup(l.Close)
	return l
}

func TestNewSkipsDisabledModules(t *testing.T) {
	l := newTestLevel(t, time.Hour)

	movement := &testModule{name: "movement"}
	collision := &testModule{name: "collision"}
	custom := &testModule{name: "custom"}

	r := New(l, Config{
		Modules:      []modules.Module{movement, collision, custom},
		FeatureFlags: featureflag.New([]string{string(featureflag.FlagDisableCollision)}),
	})

	require.Equal(t, []modules.Module{movement, custom}, r.Modules())
	require.True(t, movement.initialized)
	require.False(t, collision.initialized)
	require.True(t, custom.initialized)
}

func TestRunnerHandleFrame(t *testing.T) {
	l := newTestLevel(t, time.Hour)
	for i := 0; i < 10; i++ {
		l.AddEntity(models.NewEntity(l.NewEntityID(), models.KindAnimal, quadtree.NewRect(float64(i*5), 10, 2, 2)))
	}

	ok := &testModule{name: "ok"}
	failing := &testModule{
		name: "failing",
		err:  errors.New("module failure").WithType("test_failure"),
	}

	r := New(l, Config{
		Modules:         []modules.Module{failing, ok},
		RebuildInterval: 2,
		SummaryInterval: time.Hour,
	})

	for i := uint64(1); i <= 4; i++ {
		r.HandleFrame(context.Background(), models.Frame{Number: i})
	}

	require.Equal(t, []uint64{1, 2, 3, 4}, ok.frames)
	require.Equal(t, []uint64{1, 2, 3, 4}, failing.frames)
	require.Equal(t, 4, r.summary.counter["ok"])
	require.Equal(t, 4, r.summary.counter["failing_errors"])
	require.Equal(t, 2, r.summary.counter["rebuilds"])
	require.Equal(t, 10, l.Spatial().Index.Len())
}

func TestSummaryLogSummary(t *testing.T) {
	l := newTestLevel(t, time.Hour)
	s := newSummary(l, time.Second)

	s.incCounter("movement")
	s.incCounter("movement")
	s.incCounter("rebuilds")

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	s.logSummary(&quadtree.DebugInfo{ItemCount: 12, NodeCount: 5})
	require.Empty(t, s.counter)

	out := b.String()
	require.Contains(t, out, `"movement":2`)
	require.Contains(t, out, `"rebuilds":1`)
	require.Contains(t, out, `"index_items":12`)
	require.Contains(t, out, `"level":"simulation_test"`)
}

func TestRun(t *testing.T) {
	l := newTestLevel(t, time.Millisecond)
	m := &testModule{name: "custom"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, l, Config{Modules: []modules.Module{m}})
		close(done)
	}()

	require.Eventually(t, func() bool {
		return m.frameCount() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	<-done
	<-l.Unloaded()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	require.True(t, m.closed)
}

func TestRunStopsWhenLevelIsClosed(t *testing.T) {
	l := newTestLevel(t, time.Millisecond)

	done := make(chan struct{})
	go func() {
		Run(context.Background(), l, Config{})
		close(done)
	}()

	require.NoError(t, l.Exec(context.Background(), func() {}))
	l.Close()
	<-done
}
