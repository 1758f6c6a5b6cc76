package tracking

import (
	"landmarktracker/utils"
	"sync"
)

// stateRegister is the single-slot store carrying predicted regions from
// one cycle to the next. A value written during cycle N is only read at
// the start of cycle N+1: the orchestrator reads the slot exactly once
// before it writes it, so there is a strict one-cycle lag.
type stateRegister struct {
	mu      sync.RWMutex
	regions []utils.Region
}

// get returns a copy of the current slot. The register starts empty.
func (s *stateRegister) get() []utils.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.regions) == 0 {
		return nil
	}
	out := make([]utils.Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// set overwrites the slot. The caller's slice is copied so later
// mutations cannot corrupt the stored state.
func (s *stateRegister) set(regions []utils.Region) {
	var stored []utils.Region
	if len(regions) > 0 {
		stored = make([]utils.Region, len(regions))
		copy(stored, regions)
	}
	s.mu.Lock()
	s.regions = stored
	s.mu.Unlock()
}

// length returns the number of regions currently in the slot.
func (s *stateRegister) length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.regions)
}
