package records

import "sync"

// Store keeps the most recent record per tag.
type Store struct {
	mu     sync.RWMutex
	latest map[Tag]Record
}

func NewStore() *Store {
	return &Store{latest: make(map[Tag]Record)}
}

// Put replaces the slot for rec's tag.
func (s *Store) Put(rec Record) {
	s.mu.Lock()
	s.latest[rec.Tag()] = rec
	s.mu.Unlock()
}

func (s *Store) Get(tag Tag) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.latest[tag]
	return rec, ok
}

// Snapshot copies the current slots.
func (s *Store) Snapshot() map[Tag]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Tag]Record, len(s.latest))
	for tag, rec := range s.latest {
		out[tag] = rec
	}
	return out
}

// Latest returns the stored record of type T, e.g. Latest[InstantaneousDemand](store).
func Latest[T Record](s *Store) (T, bool) {
	var zero T
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.latest {
		if v, ok := rec.(T); ok {
			return v, true
		}
	}
	return zero, false
}
