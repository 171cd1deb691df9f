// Package battle implements the two-sided, simultaneous-turn battle engine.
package battle

import (
	"errors"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/calc"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/status"
)

// MaxSoul is the full soul meter; a soultimate requires it.
const MaxSoul = 100

// Moveset names the catalog id used for each move category.
type Moveset struct {
	Attack     string `json:"attack"`
	Technique  string `json:"technique"`
	Inspirit   string `json:"inspirit"`
	Soultimate string `json:"soultimate"`
}

// For returns the move id bound to category, or "" when it carries none.
func (m Moveset) For(c Category) string {
	switch c {
	case CategoryAttack:
		return m.Attack
	case CategoryTechnique:
		return m.Technique
	case CategoryInspirit:
		return m.Inspirit
	case CategorySoultimate:
		return m.Soultimate
	}
	return ""
}

// Combatant is one Yo-kai's mutable battle state. Stats are final: level,
// IV, EV, attitude and equipment resolution happen before a Combatant is
// built.
type Combatant struct {
	CatalogID   string
	Name        string
	SkillID     string
	Stats       catalog.Stats
	Resistances element.Resistances
	Moves       Moveset
	CurrentHP   int
	CurrentSoul int
	Stages      calc.Stages
	Statuses    *status.Set
}

// NewCombatant creates a Combatant at full HP with an empty soul meter.
//
// Precondition: stats.HP > 0.
func NewCombatant(catalogID, name string, stats catalog.Stats, res element.Resistances, moves Moveset, skillID string) *Combatant {
	return &Combatant{
		CatalogID:   catalogID,
		Name:        name,
		SkillID:     skillID,
		Stats:       stats,
		Resistances: res.Clone(),
		Moves:       moves,
		CurrentHP:   stats.HP,
		Statuses:    status.NewSet(),
	}
}

// MaxHP returns the combatant's HP ceiling.
func (c *Combatant) MaxHP() int { return c.Stats.HP }

// IsFainted reports whether the combatant is out of HP.
func (c *Combatant) IsFainted() bool { return c.CurrentHP <= 0 }

// ApplyDamage reduces CurrentHP by amount, flooring at zero, and returns the
// HP actually removed.
//
// Precondition: amount >= 0.
// Postcondition: CurrentHP >= 0.
func (c *Combatant) ApplyDamage(amount int) int {
	if amount > c.CurrentHP {
		amount = c.CurrentHP
	}
	c.CurrentHP -= amount
	return amount
}

// GainSoul adds n to the soul meter, capped at MaxSoul.
func (c *Combatant) GainSoul(n int) {
	c.CurrentSoul += n
	if c.CurrentSoul > MaxSoul {
		c.CurrentSoul = MaxSoul
	}
}

// StageSet implements calc.Subject.
func (c *Combatant) StageSet() *calc.Stages { return &c.Stages }

// StatusSet implements calc.Subject.
func (c *Combatant) StatusSet() *status.Set { return c.Statuses }

// HP implements calc.Subject.
func (c *Combatant) HP() (int, int) { return c.CurrentHP, c.Stats.HP }

// SetHP implements calc.Subject, clamping to [0, MaxHP].
func (c *Combatant) SetHP(v int) {
	switch {
	case v < 0:
		v = 0
	case v > c.Stats.HP:
		v = c.Stats.HP
	}
	c.CurrentHP = v
}

// Roster is one side's ordered team. Exactly one member is active at a time;
// when it faints the next standing member steps in at end of turn.
type Roster struct {
	Members []*Combatant
	active  int
}

// NewRoster creates a Roster whose first member is active.
//
// Precondition: at least one member, none nil.
func NewRoster(members ...*Combatant) (*Roster, error) {
	if len(members) == 0 {
		return nil, errors.New("roster must have at least one member")
	}
	for _, m := range members {
		if m == nil {
			return nil, errors.New("roster member must not be nil")
		}
	}
	return &Roster{Members: members}, nil
}

// Active returns the front-line combatant.
func (r *Roster) Active() *Combatant { return r.Members[r.active] }

// ActiveSlot returns the index of the front-line combatant.
func (r *Roster) ActiveSlot() int { return r.active }

// Member returns the combatant at slot.
func (r *Roster) Member(slot int) (*Combatant, bool) {
	if slot < 0 || slot >= len(r.Members) {
		return nil, false
	}
	return r.Members[slot], true
}

// Standing returns the number of non-fainted members.
func (r *Roster) Standing() int {
	n := 0
	for _, m := range r.Members {
		if !m.IsFainted() {
			n++
		}
	}
	return n
}

// promote moves the first standing member to the front if the active one
// has fainted. It reports whether the active slot changed.
func (r *Roster) promote() bool {
	if !r.Active().IsFainted() {
		return false
	}
	for i, m := range r.Members {
		if !m.IsFainted() {
			r.active = i
			return true
		}
	}
	return false
}
