package models

import "sync"

// IDGenerator hands out sequential ids starting at 1. Released ids are handed
// out again, most recently released first.
type IDGenerator struct {
	mutex     sync.Mutex
	currentID uint32
	released  []uint32
}

// New returns an unused id.
func (g *IDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if n := len(g.released); n != 0 {
		id := g.released[n-1]
		g.released = g.released[:n-1]
		return id
	}

	g.currentID++
	return g.currentID
}

// Reuse makes id available to New again. Ids that were never handed out or
// that are already released are ignored.
func (g *IDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if id == 0 || id > g.currentID {
		return
	}
	for _, r := range g.released {
		if r == id {
			return
		}
	}
	g.released = append(g.released, id)
}
