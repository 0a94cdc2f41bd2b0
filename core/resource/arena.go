package resource

import "sync"

// Ref is a non-owning, generation tagged reference to a Source. It stops
// resolving once the source was recycled, even if the arena reused the
// same instance for another key.
type Ref struct {
	src *Source
	gen uint32
}

// Source returns the referenced source when it is still live.
func (r Ref) Source() (*Source, bool) {
	if r.src == nil {
		return nil, false
	}
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	if r.src.recycled || r.src.gen != r.gen {
		return nil, false
	}
	return r.src, true
}

// Valid reports whether the reference still resolves.
func (r Ref) Valid() bool {
	_, ok := r.Source()
	return ok
}

// ArenaStats describes the allocation state of an arena.
type ArenaStats struct {
	Live    int `json:"live"`
	Free    int `json:"free"`
	Created int `json:"created"`
}

// Arena is a per-category free list of sources.
type Arena struct {
	mu       sync.Mutex
	category Category
	free     []*Source
	live     int
	created  int
}

// NewArena creates an empty arena for category.
func NewArena(category Category) *Arena {
	return &Arena{
		category: category,
		free:     make([]*Source, 0, 16),
	}
}

// Category returns the category the arena serves.
func (a *Arena) Category() Category {
	return a.category
}

// get pops a recycled source or allocates a new one.
func (a *Arena) get() *Source {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.live++
	if n := len(a.free); n > 0 {
		s := a.free[n-1]
		a.free[n-1] = nil
		a.free = a.free[:n-1]
		return s
	}
	a.created++
	return &Source{arena: a}
}

// put resets s, bumps its generation and pushes it onto the free list.
func (a *Arena) put(s *Source) bool {
	s.mu.Lock()
	if s.recycled || s.arena != a {
		s.mu.Unlock()
		return false
	}
	s.gen++
	s.recycled = true
	s.key = Key{}
	s.state = StateWaiting
	s.handle = nil
	s.progress = 0
	s.listeners = nil
	s.deps = nil
	s.depsResolved = false
	s.backend = nil
	s.owner = nil
	s.mu.Unlock()

	a.mu.Lock()
	a.free = append(a.free, s)
	a.live--
	a.mu.Unlock()
	return true
}

// Stats returns the allocation counters of the arena.
func (a *Arena) Stats() ArenaStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ArenaStats{Live: a.live, Free: len(a.free), Created: a.created}
}
