package event

import "sync"

// initialAge is the age a freshly emitted entry starts at. update()
// decrements age by one per call; an entry is evicted once its age
// reaches zero. Starting at 2 gives an event visibility in the frame
// it's emitted and the frame after, then eviction the frame after that.
const initialAge = 2

// entry is one emitted value paired with its remaining lifetime.
type entry[T any] struct {
	val T
	age int
}

// store is the per-type container for events: a single slice acting as
// a queue, with base tracking the absolute index of entries[0]. Reader
// cursors are absolute indices, so they stay valid across eviction —
// a cursor behind base just means "everything up to base already seen
// or expired," never an out-of-range read.
type store[T any] struct {
	mu      sync.Mutex
	entries []entry[T]
	base    int64
	name    string
	diag    Diagnostics
}

func (s *store[T]) emit(v T) {
	s.mu.Lock()
	s.entries = append(s.entries, entry[T]{val: v, age: initialAge})
	s.mu.Unlock()
	if s.diag != nil {
		s.diag.EventEmit(s.name, 1)
	}
}

func (s *store[T]) emitMany(vals []T) {
	if len(vals) == 0 {
		return
	}
	s.mu.Lock()
	for _, v := range vals {
		s.entries = append(s.entries, entry[T]{val: v, age: initialAge})
	}
	s.mu.Unlock()
	if s.diag != nil {
		s.diag.EventEmit(s.name, len(vals))
	}
}

// update decrements every entry's age and evicts entries whose age has
// reached zero, advancing base past them. Called once per frame from
// the auto-installed Last-schedule system.
func (s *store[T]) update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		s.entries[i].age--
	}

	drop := 0
	for drop < len(s.entries) && s.entries[drop].age <= 0 {
		drop++
	}
	if drop == 0 {
		return
	}
	remaining := len(s.entries) - drop
	copy(s.entries, s.entries[drop:])
	s.entries = s.entries[:remaining]
	s.base += int64(drop)
}

// forEach yields every entry not yet seen by the cursor at *ptr, then
// advances *ptr past them (or past the one yield stopped at).
func (s *store[T]) forEach(ptr *int64, yield func(T) bool) {
	s.mu.Lock()
	entries := s.entries
	base := s.base
	s.mu.Unlock()

	start := *ptr - base
	if start < 0 {
		start = 0
	}
	var i int64
	for i = start; i < int64(len(entries)); i++ {
		if !yield(entries[i].val) {
			*ptr = base + i + 1
			return
		}
	}
	*ptr = base + int64(len(entries))
}

// drain returns every entry not yet seen by *ptr as a slice and
// advances *ptr to the end.
func (s *store[T]) drain(ptr *int64) []T {
	s.mu.Lock()
	entries := s.entries
	base := s.base
	s.mu.Unlock()

	start := *ptr - base
	if start < 0 {
		start = 0
	}
	if start >= int64(len(entries)) {
		*ptr = base + int64(len(entries))
		return nil
	}
	out := make([]T, 0, int64(len(entries))-start)
	for i := start; i < int64(len(entries)); i++ {
		out = append(out, entries[i].val)
	}
	*ptr = base + int64(len(entries))
	return out
}
