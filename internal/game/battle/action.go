package battle

import (
	"fmt"
	"strings"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
)

// Side identifies one of the two participants of a battle.
type Side int

const (
	SideA Side = iota
	SideB
)

// Opponent returns the other side.
func (s Side) Opponent() Side { return 1 - s }

func (s Side) String() string {
	switch s {
	case SideA:
		return "a"
	case SideB:
		return "b"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Category is what a combatant does with its turn.
type Category int

const (
	CategoryAttack Category = iota
	CategoryTechnique
	CategoryInspirit
	CategorySoultimate
	// CategoryGuard halves incoming damage until the actor acts again.
	CategoryGuard
	// CategoryLoaf spends the turn doing nothing.
	CategoryLoaf
	// CategoryForfeit concedes the battle when the turn resolves.
	CategoryForfeit
)

var categoryNames = [...]string{
	CategoryAttack:     "attack",
	CategoryTechnique:  "technique",
	CategoryInspirit:   "inspirit",
	CategorySoultimate: "soultimate",
	CategoryGuard:      "guard",
	CategoryLoaf:       "loaf",
	CategoryForfeit:    "forfeit",
}

func (c Category) String() string {
	if c < CategoryAttack || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory converts a case-insensitive name into a Category.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == key {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MoveKind returns the catalog table a damaging category reads from.
func (c Category) MoveKind() (catalog.MoveKind, bool) {
	switch c {
	case CategoryAttack:
		return catalog.KindAttack, true
	case CategoryTechnique:
		return catalog.KindTechnique, true
	case CategorySoultimate:
		return catalog.KindSoultimate, true
	}
	return 0, false
}

// Action is one side's submission for the current turn.
type Action struct {
	ActorSlot  int      `json:"actor_slot"`
	Category   Category `json:"category"`
	TargetSlot int      `json:"target_slot"`
	// MoveID may be left empty to use the actor's move for Category.
	MoveID string `json:"move_id,omitempty"`
}

// Forfeit returns the action that concedes the battle.
func Forfeit() Action { return Action{Category: CategoryForfeit} }
