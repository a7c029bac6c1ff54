// Package rotation maintains the rotating cursors over search terms and
// target cities that decide what each discovery cycle searches.
package rotation

import (
	"fmt"
	"sync"
)

// Scheduler holds the (term, city) cursor pair. Both indices advance by
// exactly one per NextTarget call, wrapping modulo their list lengths, so the
// full cross product is covered after lcm(len(terms), len(cities)) cycles.
type Scheduler struct {
	mu        sync.Mutex
	terms     []string
	cities    []string
	termIndex int
	cityIndex int
}

// New builds a Scheduler over the configured term and city lists.
func New(terms, cities []string) (*Scheduler, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("rotation: terms must not be empty")
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("rotation: cities must not be empty")
	}
	return &Scheduler{
		terms:  append([]string(nil), terms...),
		cities: append([]string(nil), cities...),
	}, nil
}

// NextTarget returns the current (term, city) pair and advances both cursors.
// This is a consume-and-advance operation: there is no peek and no rollback,
// matching the fire-and-forget cadence it supports. Indices advance even when
// the cycle that follows finds nothing.
func (s *Scheduler) NextTarget() (term, city string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	term = s.terms[s.termIndex]
	city = s.cities[s.cityIndex]
	s.termIndex = (s.termIndex + 1) % len(s.terms)
	s.cityIndex = (s.cityIndex + 1) % len(s.cities)
	return term, city
}

// Indices reports the current cursor positions, primarily for observability.
func (s *Scheduler) Indices() (termIndex, cityIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.termIndex, s.cityIndex
}
