package handler

import "sync"

// LoadedSet records the sessions whose questionnaire page has been served at
// least once. The gateway only adds; the status tracker only reads.
type LoadedSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewLoadedSet() *LoadedSet {
	return &LoadedSet{ids: make(map[string]struct{})}
}

func (s *LoadedSet) Add(sessionID string) {
	s.mu.Lock()
	s.ids[sessionID] = struct{}{}
	s.mu.Unlock()
}

func (s *LoadedSet) IsLoaded(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[sessionID]
	return ok
}

func (s *LoadedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
