// Package quadtree implements a region quadtree over axis-aligned bounding
// rectangles. It answers "which items overlap this area?" for items that
// are registered and unregistered as they appear, move and disappear.
//
// An Index is not safe for concurrent use. Callers must serialize every
// call, queries and traversals included.
package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	ErrTypeUninitialized = "quadtree_uninitialized"
	ErrTypeInvalidConfig = "quadtree_invalid_config"

	defaultIndexName = "default"

	// MaxDepthLimit bounds Config.MaxDepth. Quadrants of a float64 map stop
	// shrinking long before that depth.
	MaxDepthLimit = 64
)

// Config holds the tuning of an index.
type Config struct {
	// The number of items a leaf holds before it subdivides.
	Capacity int `json:"capacity" yaml:"capacity"`

	// The depth at which nodes stop subdividing and accept overflow.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// A hint used to size query results. It has no effect on correctness.
	ExpectedCollisionCount int `json:"expected_collision_count" yaml:"expected_collision_count"`
}

// Validate returns an error when the capacity or the max depth is not
// positive, or when the max depth exceeds MaxDepthLimit.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("quadtree capacity must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("capacity", c.Capacity)
	}
	if c.MaxDepth <= 0 {
		return errors.New("quadtree max depth must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_depth", c.MaxDepth)
	}
	if c.MaxDepth > MaxDepthLimit {
		return errors.New("quadtree max depth is too large").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_depth", c.MaxDepth).
			WithTag("limit", MaxDepthLimit)
	}
	if c.ExpectedCollisionCount < 0 {
		return errors.New("quadtree expected collision count must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("expected_collision_count", c.ExpectedCollisionCount)
	}
	return nil
}

// Bounded is implemented by values that expose their current bounds.
type Bounded interface {
	Bounds() Rect
}

// Option configures an index at creation.
type Option func(*options)

type options struct {
	name                   string
	expectedCollisionCount int
}

// WithName sets the name used to label the index metrics and logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithExpectedCollisionCount sets the initial capacity of query results.
func WithExpectedCollisionCount(n int) Option {
	return func(o *options) {
		o.expectedCollisionCount = n
	}
}

// Index is a quadtree over items of type T. Items are handles: the index
// never copies their state and reads their bounds through the function
// given to New each time it needs them.
//
// An index is unusable until Init is called. Calling anything other than
// Init, Initialized or Reset on an uninitialized index panics.
type Index[T comparable] struct {
	name                   string
	boundsOf               func(T) Rect
	expectedCollisionCount int

	tree    *tree[T]
	root    *Node[T]
	members map[T]struct{}
	metrics indexMetrics
}

// New returns an uninitialized index reading item bounds with boundsOf.
func New[T comparable](boundsOf func(T) Rect, opts ...Option) *Index[T] {
	o := options{name: defaultIndexName}
	for _, opt := range opts {
		opt(&o)
	}

	return &Index[T]{
		name:                   o.name,
		boundsOf:               boundsOf,
		expectedCollisionCount: max(o.expectedCollisionCount, 0),
		metrics:                newIndexMetrics(o.name),
	}
}

// NewBounded returns an uninitialized index over values exposing their own
// bounds.
func NewBounded[T interface {
	comparable
	Bounded
}](opts ...Option) *Index[T] {
	return New(func(item T) Rect { return item.Bounds() }, opts...)
}

// Init builds an empty root covering mapBounds and discards any previous
// state. It panics when mapBounds is invalid, when capacity or maxDepth is
// not positive, or when maxDepth exceeds MaxDepthLimit.
func (i *Index[T]) Init(mapBounds Rect, capacity, maxDepth int) {
	conf := Config{
		Capacity:               capacity,
		MaxDepth:               maxDepth,
		ExpectedCollisionCount: i.expectedCollisionCount,
	}
	if err := conf.Validate(); err != nil {
		panic(err)
	}
	if !mapBounds.Valid() {
		panic(errors.New("quadtree map bounds are invalid").
			WithType(ErrTypeInvalidConfig).
			WithTag("bounds", mapBounds.String()))
	}

	i.tree = &tree[T]{
		boundsOf: i.boundsOf,
		capacity: capacity,
		maxDepth: maxDepth,
		nodes:    1,
	}
	root := newNode(i.tree, mapBounds, 0)
	i.root = &root
	i.members = make(map[T]struct{})
	i.metrics.instrumentSize(0, 1)
}

// InitWithConfig is Init taking its tuning from conf, expected collision
// count included.
func (i *Index[T]) InitWithConfig(mapBounds Rect, conf Config) {
	i.SetExpectedCollisionCount(conf.ExpectedCollisionCount)
	i.Init(mapBounds, conf.Capacity, conf.MaxDepth)
}

// Initialized reports whether Init was called since creation or the last
// Reset.
func (i *Index[T]) Initialized() bool {
	return i.root != nil
}

// Reset discards the root and every reference to indexed items. The index
// must be initialized again before use.
func (i *Index[T]) Reset() {
	i.tree = nil
	i.root = nil
	i.members = nil
	i.metrics.instrumentSize(0, 0)
}

// SetExpectedCollisionCount sets the initial capacity of query results.
func (i *Index[T]) SetExpectedCollisionCount(n int) {
	i.expectedCollisionCount = max(n, 0)
}

// Config returns the tuning the index was initialized with.
func (i *Index[T]) Config() Config {
	i.mustBeInitialized()

	return Config{
		Capacity:               i.tree.capacity,
		MaxDepth:               i.tree.maxDepth,
		ExpectedCollisionCount: i.expectedCollisionCount,
	}
}

func (i *Index[T]) Name() string {
	return i.name
}

// Bounds returns the map bounds covered by the root.
func (i *Index[T]) Bounds() Rect {
	i.mustBeInitialized()
	return i.root.bounds
}

// Len returns the number of indexed items.
func (i *Index[T]) Len() int {
	i.mustBeInitialized()
	return len(i.members)
}

// Contains reports whether item is indexed.
func (i *Index[T]) Contains(item T) bool {
	i.mustBeInitialized()

	_, ok := i.members[item]
	return ok
}

// Insert indexes item and reports whether it was indexed. An item whose
// bounds are not within the map bounds is not indexed; if it was indexed
// before, it is removed. Inserting an already indexed item relocates it
// according to its current bounds.
func (i *Index[T]) Insert(item T) bool {
	i.mustBeInitialized()

	b := i.boundsOf(item)
	_, indexed := i.members[item]
	if indexed {
		i.detach(item, b)
	}

	if !b.Valid() || !i.root.bounds.Contains(b) {
		i.metrics.outOfBounds.Inc()
		logs.WithTag("index", i.name).
			WithTag("bounds", b.String()).
			WithTag("map_bounds", i.root.bounds.String()).
			Debug("item is out of the map bounds and is not indexed")
		if indexed {
			delete(i.members, item)
			i.metrics.removes.Inc()
			i.metrics.instrumentSize(len(i.members), i.tree.nodes)
		}
		return false
	}

	i.root.insert(item, b)
	i.members[item] = struct{}{}
	if !indexed {
		i.metrics.inserts.Inc()
	}
	i.metrics.instrumentSize(len(i.members), i.tree.nodes)
	return true
}

// Remove unindexes item and reports whether it was indexed. Removing an
// item that is not indexed is a no-op.
func (i *Index[T]) Remove(item T) bool {
	i.mustBeInitialized()

	if _, ok := i.members[item]; !ok {
		return false
	}

	i.detach(item, i.boundsOf(item))
	delete(i.members, item)
	i.metrics.removes.Inc()
	i.metrics.instrumentSize(len(i.members), i.tree.nodes)
	return true
}

// Update relocates item after its bounds changed from previous to their
// current value, and reports whether the item is indexed afterwards. An item
// that is not indexed yet is inserted.
func (i *Index[T]) Update(item T, previous Rect) bool {
	i.mustBeInitialized()

	if _, ok := i.members[item]; ok {
		i.detach(item, previous)
		delete(i.members, item)
	}
	return i.Insert(item)
}

// detach removes item from the tree, looking on the path of hint first and
// in the whole tree when it is not there.
func (i *Index[T]) detach(item T, hint Rect) {
	if i.root.remove(item, hint) {
		return
	}
	if !i.root.removeAnywhere(item) {
		logs.WithTag("index", i.name).
			WithTag("bounds", hint.String()).
			Debug("indexed item was not found in the tree")
	}
}

// Query returns every indexed item whose bounds intersect area. The order is
// stable as long as the index is not modified.
func (i *Index[T]) Query(area Rect) []T {
	return i.QueryInto(area, make([]T, 0, i.expectedCollisionCount))
}

// QueryInto is Query appending to dst, which lets per-frame callers reuse
// a buffer.
func (i *Index[T]) QueryInto(area Rect, dst []T) []T {
	i.mustBeInitialized()

	i.root.Query(area, &dst)
	return dst
}

// Traverse walks every node in pre-order. visit must not modify the index.
func (i *Index[T]) Traverse(visit func(*Node[T])) {
	i.mustBeInitialized()
	i.root.Traverse(visit)
}

// Rebuild reinserts every indexed item into a fresh root, dropping the
// subdivisions left empty by removals. Items that left the map bounds are
// dropped from the index.
func (i *Index[T]) Rebuild() {
	i.mustBeInitialized()

	items := i.root.collect(make([]T, 0, len(i.members)))
	conf := i.Config()
	i.Init(i.root.bounds, conf.Capacity, conf.MaxDepth)
	for _, item := range items {
		b := i.boundsOf(item)
		if !b.Valid() || !i.root.bounds.Contains(b) {
			i.metrics.outOfBounds.Inc()
			continue
		}
		i.root.insert(item, b)
		i.members[item] = struct{}{}
	}
	i.metrics.instrumentSize(len(i.members), i.tree.nodes)
	i.metrics.rebuilds.Inc()
}

func (i *Index[T]) mustBeInitialized() {
	if i.root == nil {
		panic(errors.New("quadtree index is used before being initialized").
			WithType(ErrTypeUninitialized).
			WithTag("index", i.name))
	}
}
