package importer

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NameToID converts a display name to a stable snake_case identifier.
// Accented letters are folded to their base letter first.
//
// Postcondition: result is lowercase, contains only [a-z0-9_], and is
// idempotent (NameToID(NameToID(s)) == NameToID(s)).
func NameToID(name string) string {
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		folded = name
	}
	s := strings.ToLower(folded)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	var b strings.Builder
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}

// IDAllocator hands out unique ids derived from display names within one
// table. A name that collides gets a numeric suffix.
type IDAllocator struct {
	used map[string]int
}

// NewIDAllocator creates an empty IDAllocator.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{used: make(map[string]int)}
}

// Allocate returns a fresh id for name. fallback is used when name has no
// usable characters.
//
// Postcondition: the result is non-empty and never returned twice.
func (a *IDAllocator) Allocate(name, fallback string) string {
	base := NameToID(name)
	if base == "" {
		base = NameToID(fallback)
	}
	if base == "" {
		base = "entry"
	}
	n := a.used[base]
	a.used[base] = n + 1
	if n == 0 {
		return base
	}
	id := base + "_" + strconv.Itoa(n+1)
	for a.used[id] > 0 {
		n++
		id = base + "_" + strconv.Itoa(n+1)
	}
	a.used[id] = 1
	return id
}
