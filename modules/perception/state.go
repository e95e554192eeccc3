package perception

import (
	"cmp"
	"slices"
	"sync"
)

// Detection is a poacher seen by a ranger.
type Detection struct {
	RangerID  uint32 `json:"ranger_id"`
	PoacherID uint32 `json:"poacher_id"`
	Frame     uint64 `json:"frame"`
}

// State keeps the latest detection of each poacher.
type State struct {
	mutex      sync.RWMutex
	detections map[uint32]Detection
}

func (s *State) Record(d Detection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.detections == nil {
		s.detections = make(map[uint32]Detection)
	}
	s.detections[d.PoacherID] = d
}

// LastSeen returns the latest detection of a poacher.
func (s *State) LastSeen(poacherID uint32) (Detection, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	d, ok := s.detections[poacherID]
	return d, ok
}

func (s *State) Forget(poacherID uint32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.detections, poacherID)
}

// Detections returns the latest detection of every poacher ordered by
// poacher id.
func (s *State) Detections() []Detection {
	s.mutex.RLock()
	detections := make([]Detection, 0, len(s.detections))
	for _, d := range s.detections {
		detections = append(detections, d)
	}
	s.mutex.RUnlock()

	slices.SortFunc(detections, func(a, b Detection) int {
		return cmp.Compare(a.PoacherID, b.PoacherID)
	})
	return detections
}
