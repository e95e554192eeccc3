package models

import (
	"strings"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/szgerii/Safari-sub001/quadtree"
	"gopkg.in/yaml.v3"
)

// EntityKind is the category of a park entity.
type EntityKind uint8

const (
	KindUnknown EntityKind = iota
	KindAnimal
	KindRanger
	KindPoacher
	KindTourist
	KindJeep
	KindPlant
)

var entityKindNames = [...]string{
	KindUnknown: "unknown",
	KindAnimal:  "animal",
	KindRanger:  "ranger",
	KindPoacher: "poacher",
	KindTourist: "tourist",
	KindJeep:    "jeep",
	KindPlant:   "plant",
}

// EntityKinds lists every known kind.
var EntityKinds = []EntityKind{
	KindAnimal,
	KindRanger,
	KindPoacher,
	KindTourist,
	KindJeep,
	KindPlant,
}

// ParseEntityKind returns the kind with the given name.
func ParseEntityKind(s string) (EntityKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range EntityKinds {
		if entityKindNames[k] == s {
			return k, nil
		}
	}
	return KindUnknown, errors.New("unknown entity kind").
		WithType(ErrTypeInvalidConfig).
		WithTag("kind", s)
}

func (k EntityKind) String() string {
	if int(k) < len(entityKindNames) {
		return entityKindNames[k]
	}
	return entityKindNames[KindUnknown]
}

// Mobile reports whether entities of the kind move around the map.
func (k EntityKind) Mobile() bool {
	switch k {
	case KindPlant, KindUnknown:
		return false
	default:
		return true
	}
}

func (k EntityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EntityKind) UnmarshalText(text []byte) error {
	kind, err := ParseEntityKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

func (k *EntityKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(s))
}

// Entity is a park object occupying an axis-aligned area of the map. Its
// bounds are read by the spatial index each time they are needed.
type Entity struct {
	ID   uint32
	Kind EntityKind

	mutex  sync.RWMutex
	bounds quadtree.Rect
}

func NewEntity(id uint32, kind EntityKind, bounds quadtree.Rect) *Entity {
	return &Entity{
		ID:     id,
		Kind:   kind,
		bounds: bounds,
	}
}

func (e *Entity) Bounds() quadtree.Rect {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.bounds
}

// Position returns the top-left corner of the entity.
func (e *Entity) Position() (float64, float64) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.bounds.X, e.bounds.Y
}

// SetPosition moves the top-left corner of the entity. Indexed entities must
// be moved with Level.MoveEntity so the index follows.
func (e *Entity) SetPosition(x, y float64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.bounds.X = x
	e.bounds.Y = y
}

// EntityInfo is the serializable view of an entity.
type EntityInfo struct {
	ID     uint32        `json:"id"`
	Kind   EntityKind    `json:"kind"`
	Bounds quadtree.Rect `json:"bounds"`
}

func (e *Entity) Info() EntityInfo {
	return EntityInfo{
		ID:     e.ID,
		Kind:   e.Kind,
		Bounds: e.Bounds(),
	}
}

func EntitiesInfo(entities []*Entity) []EntityInfo {
	infos := make([]EntityInfo, len(entities))
	for i, e := range entities {
		infos[i] = e.Info()
	}
	return infos
}
