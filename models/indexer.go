package models

import (
	"github.com/szgerii/Safari-sub001/quadtree"
)

// IndexPolicy reports whether an entity is tracked by the spatial index.
// Highly mobile kinds are left out to avoid re-indexing them every frame.
type IndexPolicy func(*Entity) bool

// DefaultIndexPolicy indexes every kind but tourists and jeeps.
func DefaultIndexPolicy(e *Entity) bool {
	switch e.Kind {
	case KindTourist, KindJeep:
		return false
	default:
		return true
	}
}

// IndexKinds returns a policy that indexes the given kinds only.
func IndexKinds(kinds ...EntityKind) IndexPolicy {
	var set [len(entityKindNames)]bool
	for _, k := range kinds {
		if int(k) < len(set) {
			set[k] = true
		}
	}

	return func(e *Entity) bool {
		return int(e.Kind) < len(set) && set[e.Kind]
	}
}

// SpatialIndex binds park entities to a quadtree. The policy is applied
// before any call reaches the quadtree, which knows nothing about kinds.
//
// Like the quadtree, a SpatialIndex must only be used from the frame
// goroutine of its level.
type SpatialIndex struct {
	Index  *quadtree.Index[*Entity]
	Policy IndexPolicy
}

// NewSpatialIndex returns an initialized spatial index covering bounds.
func NewSpatialIndex(name string, bounds quadtree.Rect, conf quadtree.Config, policy IndexPolicy) *SpatialIndex {
	if policy == nil {
		policy = DefaultIndexPolicy
	}

	idx := quadtree.New((*Entity).Bounds, quadtree.WithName(name))
	idx.InitWithConfig(bounds, conf)

	return &SpatialIndex{
		Index:  idx,
		Policy: policy,
	}
}

// Indexes reports whether the policy lets e into the index.
func (s *SpatialIndex) Indexes(e *Entity) bool {
	return s.Policy(e)
}

// Track indexes e and reports whether it is indexed. Entities rejected by the
// policy or out of the map bounds are not indexed.
func (s *SpatialIndex) Track(e *Entity) bool {
	if !s.Policy(e) {
		return false
	}
	return s.Index.Insert(e)
}

// Untrack removes e from the index. It is a no-op for entities that are not
// indexed.
func (s *SpatialIndex) Untrack(e *Entity) bool {
	if !s.Policy(e) {
		return false
	}
	return s.Index.Remove(e)
}

// Move sets the position of e and keeps the index in sync. It reports whether
// e is indexed afterwards. An entity that left the map is unindexed until it
// moves back in.
func (s *SpatialIndex) Move(e *Entity, x, y float64) bool {
	previous := e.Bounds()
	e.SetPosition(x, y)

	if !s.Policy(e) {
		return false
	}
	if s.Index.Contains(e) {
		return s.Index.Update(e, previous)
	}
	return s.Index.Insert(e)
}

// Query returns the indexed entities whose bounds intersect area.
func (s *SpatialIndex) Query(area quadtree.Rect) []*Entity {
	return s.Index.Query(area)
}

// QueryInto is Query appending to dst.
func (s *SpatialIndex) QueryInto(area quadtree.Rect, dst []*Entity) []*Entity {
	return s.Index.QueryInto(area, dst)
}

// Nearby appends to dst the indexed entities, other than e, intersecting the
// bounds of e grown by radius on every side.
func (s *SpatialIndex) Nearby(e *Entity, radius float64, dst []*Entity) []*Entity {
	start := len(dst)
	dst = s.Index.QueryInto(e.Bounds().Expand(radius), dst)

	res := dst[:start]
	for _, other := range dst[start:] {
		if other != e {
			res = append(res, other)
		}
	}
	clear(dst[len(res):])
	return res
}
