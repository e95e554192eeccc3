package movement

type target struct {
	x float64
	y float64
}

// State holds the wandering destinations of the mobile entities of a level.
// It is only used from the frame goroutine.
type State struct {
	targets map[uint32]target
}

func (s *State) target(entityID uint32) (target, bool) {
	t, ok := s.targets[entityID]
	return t, ok
}

func (s *State) setTarget(entityID uint32, t target) {
	if s.targets == nil {
		s.targets = make(map[uint32]target)
	}
	s.targets[entityID] = t
}

// prune forgets the targets of entities that are not in alive.
func (s *State) prune(alive map[uint32]struct{}) {
	for id := range s.targets {
		if _, ok := alive[id]; !ok {
			delete(s.targets, id)
		}
	}
}

// Len returns the number of entities with a destination.
func (s *State) Len() int {
	return len(s.targets)
}
