package models

import (
	"cmp"
	"context"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/szgerii/Safari-sub001/quadtree"
)

const (
	ErrTypeLevelClosed   = "level_closed"
	ErrTypeLevelNotFound = "level_not_found"
)

// Frame describes one simulation step.
type Frame struct {
	Number uint64
	Time   time.Time
	Delta  time.Duration
}

type frameHandler struct {
	id     uint32
	handle func(Frame)
}

// Level is a loaded park map: the registry of its entities, their spatial
// index and the frame loop that drives them.
//
// The spatial index is only touched from the frame goroutine started by
// StartDispatchFrames. Frame handlers run there, and other goroutines reach
// the index through Exec. Entities may be added before the frame loop starts.
type Level struct {
	ID        uint32
	LevelUUID string
	Name      string

	bounds      quadtree.Rect
	entityIDs   IDGenerator
	entityMutex sync.RWMutex
	entities    map[uint32]*Entity
	spatial     *SpatialIndex

	moduleStates map[string]any
	moduleMutex  sync.RWMutex

	startFrameOnce  sync.Once
	frameTicker     *time.Ticker
	frameHandlerIDs IDGenerator
	frameHandlers   []frameHandler
	frameMutex      sync.RWMutex
	execChan        chan func()

	lifecycleMutex sync.Mutex
	running        bool
	closeOnce      sync.Once
	closed         chan struct{}
	unloadOnce     sync.Once
	unloaded       chan struct{}
}

// NewLevel creates a level from conf. A nil policy falls back to
// conf.IndexPolicy().
func NewLevel(id uint32, conf Config, frameDuration time.Duration, policy IndexPolicy) *Level {
	if policy == nil {
		policy = conf.IndexPolicy()
	}

	return &Level{
		ID:           id,
		LevelUUID:    uuid.New().String(),
		Name:         conf.Name,
		bounds:       conf.Bounds,
		entities:     make(map[uint32]*Entity),
		spatial:      NewSpatialIndex(conf.Name, conf.Bounds, conf.Quadtree, policy),
		moduleStates: make(map[string]any),
		frameTicker:  time.NewTicker(frameDuration),
		execChan:     make(chan func()),
		closed:       make(chan struct{}),
		unloaded:     make(chan struct{}),
	}
}

// Bounds returns the map bounds of the level.
func (l *Level) Bounds() quadtree.Rect {
	return l.bounds
}

// Spatial returns the spatial index of the level. It must only be used from
// the frame goroutine.
func (l *Level) Spatial() *SpatialIndex {
	return l.spatial
}

func (l *Level) NewEntityID() uint32 {
	return l.entityIDs.New()
}

// AddEntity registers e and indexes it when the policy allows. It reports
// whether e is indexed. An entity previously registered with the same id is
// replaced and removed from the index.
func (l *Level) AddEntity(e *Entity) bool {
	l.entityMutex.Lock()
	old, exists := l.entities[e.ID]
	l.entities[e.ID] = e
	l.entityMutex.Unlock()

	if exists && old != e {
		logs.WithTag("level", l.Name).
			WithTag("entity_id", e.ID).
			WithTag("kind", e.Kind.String()).
			WithTag("replaced_kind", old.Kind.String()).
			Debug("entity replaced")
		instrumentDecreaseEntityGauge(l.Name, old.Kind)
		l.spatial.Untrack(old)
	}
	if !exists || old != e {
		instrumentIncreaseEntityGauge(l.Name, e.Kind)
	}
	return l.spatial.Track(e)
}

// RemoveEntity unregisters e and removes it from the index. Removing an
// entity twice is a no-op, as is removing an entity that was replaced.
func (l *Level) RemoveEntity(e *Entity) {
	l.entityMutex.Lock()
	registered := l.entities[e.ID] == e
	if registered {
		delete(l.entities, e.ID)
	}
	l.entityMutex.Unlock()

	if registered {
		instrumentDecreaseEntityGauge(l.Name, e.Kind)
		l.spatial.Untrack(e)
	}
}

// MoveEntity moves e and relocates it in the index. It reports whether e is
// indexed afterwards.
func (l *Level) MoveEntity(e *Entity, x, y float64) bool {
	return l.spatial.Move(e, x, y)
}

func (l *Level) EntityByID(id uint32) (*Entity, bool) {
	l.entityMutex.RLock()
	defer l.entityMutex.RUnlock()

	e, ok := l.entities[id]
	return e, ok
}

// Entities returns the registered entities ordered by id.
func (l *Level) Entities() []*Entity {
	l.entityMutex.RLock()
	entities := make([]*Entity, 0, len(l.entities))
	for _, e := range l.entities {
		entities = append(entities, e)
	}
	l.entityMutex.RUnlock()

	slices.SortFunc(entities, func(a, b *Entity) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return entities
}

// EntitiesByKind returns the registered entities of the given kind ordered
// by id.
func (l *Level) EntitiesByKind(kind EntityKind) []*Entity {
	return slices.DeleteFunc(l.Entities(), func(e *Entity) bool {
		return e.Kind != kind
	})
}

func (l *Level) EntityCount() int {
	l.entityMutex.RLock()
	defer l.entityMutex.RUnlock()

	return len(l.entities)
}

// SpawnEntities creates the entities described by spawns at random
// positions inside the map and adds them to the level.
func (l *Level) SpawnEntities(spawns []SpawnConfig, rng *rand.Rand) []*Entity {
	bounds := l.Bounds()

	var entities []*Entity
	for _, s := range spawns {
		for i := 0; i < s.Count; i++ {
			x := bounds.X + rng.Float64()*max(bounds.Width-s.Width, 0)
			y := bounds.Y + rng.Float64()*max(bounds.Height-s.Height, 0)

			e := NewEntity(l.NewEntityID(), s.Kind, quadtree.NewRect(x, y, s.Width, s.Height))
			l.AddEntity(e)
			entities = append(entities, e)
		}
	}
	return entities
}

func (l *Level) SetModuleState(moduleName string, state any) {
	l.moduleMutex.Lock()
	defer l.moduleMutex.Unlock()

	l.moduleStates[moduleName] = state
}

func (l *Level) ModuleState(moduleName string) (any, bool) {
	l.moduleMutex.RLock()
	defer l.moduleMutex.RUnlock()

	state, ok := l.moduleStates[moduleName]
	return state, ok
}

// HandleFrame registers h to be called on every frame, after the handlers
// registered before it. h must not register or cancel frame handlers.
func (l *Level) HandleFrame(h func(Frame)) (cancel func()) {
	l.frameMutex.Lock()
	defer l.frameMutex.Unlock()

	id := l.frameHandlerIDs.New()
	l.frameHandlers = append(l.frameHandlers, frameHandler{id: id, handle: h})

	return func() {
		l.frameMutex.Lock()
		defer l.frameMutex.Unlock()

		i := slices.IndexFunc(l.frameHandlers, func(fh frameHandler) bool {
			return fh.id == id
		})
		if i < 0 {
			return
		}
		l.frameHandlers = slices.Delete(l.frameHandlers, i, i+1)
		l.frameHandlerIDs.Reuse(id)
	}
}

// Exec runs fn on the frame goroutine and waits for it to return. It fails
// when the level is closed or ctx is done first.
func (l *Level) Exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}

	select {
	case l.execChan <- job:
	case <-l.closed:
		return l.closedError()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-l.closed:
		return l.closedError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartDispatchFrames runs the frame loop until the level is closed, then
// unloads the level. It blocks and only runs once.
func (l *Level) StartDispatchFrames() {
	l.startFrameOnce.Do(func() {
		l.lifecycleMutex.Lock()
		select {
		case <-l.closed:
			l.lifecycleMutex.Unlock()
			l.unload()
			return
		default:
		}
		l.running = true
		l.lifecycleMutex.Unlock()

		defer l.unload()

		var number uint64
		last := time.Now()

		for {
			select {
			case <-l.closed:
				return

			case job := <-l.execChan:
				job()

			case now := <-l.frameTicker.C:
				number++
				frame := Frame{
					Number: number,
					Time:   now,
					Delta:  now.Sub(last),
				}
				last = now

				l.frameMutex.RLock()
				for _, fh := range l.frameHandlers {
					fh.handle(frame)
				}
				l.frameMutex.RUnlock()
			}
		}
	})
}

// Close stops the frame loop. The level is unloaded once the loop exits, or
// right away when it never started.
func (l *Level) Close() {
	l.closeOnce.Do(func() {
		l.lifecycleMutex.Lock()
		l.frameTicker.Stop()
		close(l.closed)
		running := l.running
		l.lifecycleMutex.Unlock()

		if !running {
			l.unload()
		}
	})
}

// Unloaded returns a channel closed once the level released its entities
// and its index.
func (l *Level) Unloaded() <-chan struct{} {
	return l.unloaded
}

func (l *Level) unload() {
	l.unloadOnce.Do(func() {
		l.entityMutex.Lock()
		for _, e := range l.entities {
			instrumentDecreaseEntityGauge(l.Name, e.Kind)
		}
		clear(l.entities)
		l.entityMutex.Unlock()

		l.spatial.Index.Reset()

		logs.WithTag("level_id", l.ID).
			WithTag("level_uuid", l.LevelUUID).
			WithTag("level", l.Name).
			Info("level unloaded")
		close(l.unloaded)
	})
}

func (l *Level) closedError() error {
	return errors.New("level is closed").
		WithType(ErrTypeLevelClosed).
		WithTag("level_id", l.ID)
}

// LevelStore keeps the loaded levels.
type LevelStore struct {
	initOnce sync.Once
	mutex    sync.RWMutex
	levels   map[uint32]*Level
	ids      IDGenerator
}

func (s *LevelStore) init() {
	s.levels = make(map[uint32]*Level)
}

func (s *LevelStore) NewID() uint32 {
	return s.ids.New()
}

func (s *LevelStore) Add(level *Level) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.levels[level.ID] = level

	instrumentIncreaseLevelGauge(level.Name)
	instrumentCountLevel(level.Name)
}

// Remove unregisters and closes level. Removing a level that is not in the
// store is a no-op.
func (s *LevelStore) Remove(level *Level) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.levels[level.ID]; !ok {
		return
	}
	delete(s.levels, level.ID)
	level.Close()

	s.ids.Reuse(level.ID)

	instrumentDecreaseLevelGauge(level.Name)
}

func (s *LevelStore) Get(id uint32) (*Level, error) {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	level, ok := s.levels[id]
	if !ok {
		return nil, errors.New("level not found").
			WithType(ErrTypeLevelNotFound).
			WithTag("level_id", id)
	}
	return level, nil
}

// List returns the loaded levels ordered by id.
func (s *LevelStore) List() []*Level {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	levels := make([]*Level, 0, len(s.levels))
	for _, l := range s.levels {
		levels = append(levels, l)
	}
	s.mutex.RUnlock()

	slices.SortFunc(levels, func(a, b *Level) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return levels
}

func (s *LevelStore) Len() int {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.levels)
}
