// Package element defines the elemental affinities of moves and the
// per-element damage resistances of Yo-kai.
package element

import (
	"fmt"
	"strings"
)

// Element is an elemental affinity. The zero value is None, meaning the
// move is non-elemental.
type Element int

const (
	None Element = iota
	Fire
	Water
	Electric
	Earth
	Wind
	Ice
)

var names = [...]string{
	None:     "none",
	Fire:     "fire",
	Water:    "water",
	Electric: "electric",
	Earth:    "earth",
	Wind:     "wind",
	Ice:      "ice",
}

// aliases maps legacy data spellings onto canonical names.
var aliases = map[string]Element{
	"lightning": Electric,
	"thunder":   Electric,
	"":          None,
	"null":      None,
}

// All returns the six elemental affinities, excluding None.
func All() []Element {
	return []Element{Fire, Water, Electric, Earth, Wind, Ice}
}

func (e Element) String() string {
	if e < None || int(e) >= len(names) {
		return fmt.Sprintf("element(%d)", int(e))
	}
	return names[e]
}

// Valid reports whether e is one of the declared elements.
func (e Element) Valid() bool {
	return e >= None && int(e) < len(names)
}

// Parse converts a case-insensitive name into an Element.
//
// Postcondition: Returns an error when s names no known element.
func Parse(s string) (Element, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if e, ok := aliases[key]; ok {
		return e, nil
	}
	for i, n := range names {
		if n == key {
			return Element(i), nil
		}
	}
	return None, fmt.Errorf("unknown element %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (e Element) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid element %d", int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Element) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Resistances maps an element to the damage multiplier applied when a Yo-kai
// is hit by a move of that element. Missing entries default to 1.0.
type Resistances map[Element]float64

// Get returns the multiplier for e. None always yields 1.0.
func (r Resistances) Get(e Element) float64 {
	if e == None {
		return 1.0
	}
	if v, ok := r[e]; ok {
		return v
	}
	return 1.0
}

// Clone returns an independent copy of r.
func (r Resistances) Clone() Resistances {
	if r == nil {
		return nil
	}
	out := make(Resistances, len(r))
	for e, v := range r {
		out[e] = v
	}
	return out
}

// FromNames builds Resistances from name-keyed data such as decoded YAML.
//
// Postcondition: Returns an error on an unknown element name or a negative
// multiplier.
func FromNames(m map[string]float64) (Resistances, error) {
	out := make(Resistances, len(m))
	for name, v := range m {
		e, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if e == None {
			return nil, fmt.Errorf("resistance for %q: non-elemental damage has no resistance", name)
		}
		if v < 0 {
			return nil, fmt.Errorf("resistance for %s must be >= 0, got %v", e, v)
		}
		out[e] = v
	}
	return out, nil
}

// Names returns r keyed by canonical element names.
func (r Resistances) Names() map[string]float64 {
	out := make(map[string]float64, len(r))
	for e, v := range r {
		out[e.String()] = v
	}
	return out
}
