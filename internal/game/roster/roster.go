// Package roster validates submitted teams and resolves them into battle
// rosters with final stats.
package roster

import (
	"errors"
	"fmt"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
)

// Intake rules.
const (
	IVTotal  = 40
	EVBudget = 5
	MinLevel = 1
	MaxLevel = 99
)

// Member is one submitted team entry. IVs and EVs are ordered
// [HP, STR, SPR, DEF, SPD]; EVs model gym training, which never raises HP.
type Member struct {
	CatalogID    string   `json:"catalog_id"`
	Level        int      `json:"level"`
	IVs          [5]int   `json:"ivs"`
	EVs          [5]int   `json:"evs"`
	AttitudeID   string   `json:"attitude_id,omitempty"`
	EquipmentIDs []string `json:"equipment_ids,omitempty"`
}

// Team is an ordered list of members; the first one starts on the field.
type Team []Member

// ValidateIVs reports an error unless all five IVs are non-negative and sum
// to IVTotal.
func ValidateIVs(ivs [5]int) error {
	sum := 0
	for i, v := range ivs {
		if v < 0 {
			return fmt.Errorf("iv[%d] must be >= 0, got %d", i, v)
		}
		sum += v
	}
	if sum != IVTotal {
		return fmt.Errorf("ivs must sum to %d, got %d", IVTotal, sum)
	}
	return nil
}

// ValidateEVs reports an error unless the HP entry is zero and the four
// trainable entries are non-negative and sum to at most EVBudget.
func ValidateEVs(evs [5]int) error {
	if evs[0] != 0 {
		return fmt.Errorf("hp cannot be gym trained, got %d", evs[0])
	}
	sum := 0
	for i, v := range evs[1:] {
		if v < 0 {
			return fmt.Errorf("ev[%d] must be >= 0, got %d", i+1, v)
		}
		sum += v
	}
	if sum > EVBudget {
		return fmt.Errorf("evs must sum to at most %d, got %d", EVBudget, sum)
	}
	return nil
}

// ResolveStats folds IVs, EVs, attitude boost and equipment bonuses into the
// base stat line. Every stat is floored at 1.
func ResolveStats(base catalog.Stats, m Member, att catalog.AttitudeDef, gear []catalog.EquipmentDef) catalog.Stats {
	s := base.Add(catalog.FromArray(m.IVs)).Add(catalog.FromArray(m.EVs)).Add(att.Boost)
	for _, g := range gear {
		s = s.Add(g.Bonus)
	}
	floor := func(v int) int {
		if v < 1 {
			return 1
		}
		return v
	}
	return catalog.Stats{HP: floor(s.HP), STR: floor(s.STR), SPR: floor(s.SPR), DEF: floor(s.DEF), SPD: floor(s.SPD)}
}

// Resolver turns submitted teams into battle rosters.
type Resolver struct {
	src        catalog.IntakeSource
	maxMembers int
}

// NewResolver creates a Resolver.
//
// Precondition: src must be non-nil; maxMembers > 0.
func NewResolver(src catalog.IntakeSource, maxMembers int) *Resolver {
	return &Resolver{src: src, maxMembers: maxMembers}
}

// Validate checks team without building anything. All problems are reported
// together in one CodeInvalidRoster error.
func (r *Resolver) Validate(team Team) error {
	_, err := r.resolve(team)
	return err
}

// Build validates team and returns a ready roster.
//
// Postcondition: On success every combatant is at full HP with zero soul.
func (r *Resolver) Build(team Team) (*battle.Roster, error) {
	members, err := r.resolve(team)
	if err != nil {
		return nil, err
	}
	return battle.NewRoster(members...)
}

func (r *Resolver) resolve(team Team) ([]*battle.Combatant, error) {
	if len(team) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidRoster, "team must have at least one member")
	}
	if len(team) > r.maxMembers {
		return nil, apperrors.Newf(apperrors.CodeInvalidRoster, "team has %d members, limit is %d", len(team), r.maxMembers)
	}
	var errs []error
	out := make([]*battle.Combatant, 0, len(team))
	for i, m := range team {
		c, err := r.resolveMember(m)
		if err != nil {
			errs = append(errs, fmt.Errorf("member %d (%s): %w", i, m.CatalogID, err))
			continue
		}
		out = append(out, c)
	}
	if len(errs) > 0 {
		joined := errors.Join(errs...)
		return nil, apperrors.Wrap(apperrors.CodeInvalidRoster, joined.Error(), joined)
	}
	return out, nil
}

func (r *Resolver) resolveMember(m Member) (*battle.Combatant, error) {
	def, err := r.src.GetYokai(m.CatalogID)
	if err != nil {
		return nil, err
	}
	if m.Level < MinLevel || m.Level > MaxLevel {
		return nil, fmt.Errorf("level must be in [%d, %d], got %d", MinLevel, MaxLevel, m.Level)
	}
	if err := ValidateIVs(m.IVs); err != nil {
		return nil, err
	}
	if err := ValidateEVs(m.EVs); err != nil {
		return nil, err
	}
	var att catalog.AttitudeDef
	if m.AttitudeID != "" {
		if att, err = r.src.GetAttitude(m.AttitudeID); err != nil {
			return nil, err
		}
	}
	if len(m.EquipmentIDs) > def.EquipmentSlots {
		return nil, fmt.Errorf("%d equipment items exceed %d slots", len(m.EquipmentIDs), def.EquipmentSlots)
	}
	gear := make([]catalog.EquipmentDef, 0, len(m.EquipmentIDs))
	for _, id := range m.EquipmentIDs {
		g, err := r.src.GetEquipment(id)
		if err != nil {
			return nil, err
		}
		gear = append(gear, g)
	}
	stats := ResolveStats(def.Base, m, att, gear)
	moves := battle.Moveset{
		Attack:     def.AttackID,
		Technique:  def.TechniqueID,
		Inspirit:   def.InspiritID,
		Soultimate: def.SoultimateID,
	}
	return battle.NewCombatant(def.ID, def.Name, stats, def.Resistances, moves, def.SkillID), nil
}
