// Package status tracks timed conditions applied to a combatant, such as
// guarding or poison.
package status

import (
	"fmt"
	"strings"
)

// Kind identifies a status condition.
type Kind string

const (
	// Guarding halves incoming damage until the holder's next action.
	Guarding   Kind = "guarding"
	Confused   Kind = "confusion"
	Poisoned   Kind = "poison"
	Paralyzed  Kind = "paralysis"
	Asleep     Kind = "sleep"
	Burned     Kind = "burn"
	Inspirited Kind = "inspirited"
)

// UntilConsumed marks a status that does not expire by ticking.
const UntilConsumed = -1

var known = map[Kind]struct{}{
	Guarding:   {},
	Confused:   {},
	Poisoned:   {},
	Paralyzed:  {},
	Asleep:     {},
	Burned:     {},
	Inspirited: {},
}

// ParseKind converts a case-insensitive name into a known Kind.
//
// Postcondition: Returns an error when name is not a known status.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := known[k]; !ok {
		return "", fmt.Errorf("unknown status %q", name)
	}
	return k, nil
}

// Active is one status currently held by a combatant.
type Active struct {
	Kind           Kind `json:"kind"`
	TurnsRemaining int  `json:"turns_remaining"`
}

// Set tracks the statuses applied to one combatant, in the order they were
// first applied. A combatant holds at most one instance of each Kind.
// It is not safe for concurrent use; the caller must serialise access.
type Set struct {
	entries []Active
	index   map[Kind]int
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{index: make(map[Kind]int)}
}

// Apply adds kind or refreshes it if already held. turns is the number of
// end-of-turn ticks before expiry; UntilConsumed never expires by ticking.
//
// Precondition: turns > 0 or turns == UntilConsumed.
// Postcondition: Has(kind) is true with exactly turns remaining. A refreshed
// status keeps its original position.
func (s *Set) Apply(kind Kind, turns int) error {
	if turns <= 0 && turns != UntilConsumed {
		return fmt.Errorf("status %s: turns must be > 0 or %d, got %d", kind, UntilConsumed, turns)
	}
	if i, ok := s.index[kind]; ok {
		s.entries[i].TurnsRemaining = turns
		return nil
	}
	s.index[kind] = len(s.entries)
	s.entries = append(s.entries, Active{Kind: kind, TurnsRemaining: turns})
	return nil
}

// Remove deletes kind and reports whether it was held.
func (s *Set) Remove(kind Kind) bool {
	i, ok := s.index[kind]
	if !ok {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.reindex()
	return true
}

func (s *Set) reindex() {
	clear(s.index)
	for i, a := range s.entries {
		s.index[a.Kind] = i
	}
}

// Has reports whether kind is currently held.
func (s *Set) Has(kind Kind) bool {
	_, ok := s.index[kind]
	return ok
}

// Len returns the number of held statuses.
func (s *Set) Len() int {
	return len(s.entries)
}

// Tick decrements every timed status by one turn and removes those that
// reach zero. Statuses held UntilConsumed are unaffected.
//
// Postcondition: For every kind in the returned slice, Has(kind) is false.
// The returned slice is in application order.
func (s *Set) Tick() []Kind {
	var expired []Kind
	kept := s.entries[:0]
	for _, a := range s.entries {
		if a.TurnsRemaining != UntilConsumed {
			a.TurnsRemaining--
			if a.TurnsRemaining <= 0 {
				expired = append(expired, a.Kind)
				continue
			}
		}
		kept = append(kept, a)
	}
	s.entries = kept
	if len(expired) > 0 {
		s.reindex()
	}
	return expired
}

// All returns a snapshot of the held statuses in application order.
func (s *Set) All() []Active {
	return append(make([]Active, 0, len(s.entries)), s.entries...)
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	cp := &Set{entries: s.All(), index: make(map[Kind]int, len(s.entries))}
	cp.reindex()
	return cp
}
