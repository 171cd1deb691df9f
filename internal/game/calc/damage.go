// Package calc implements the pure damage and inspirit-effect arithmetic of
// a battle. Nothing here rolls dice except Calculator, which draws the
// damage roll from an injected Source.
package calc

import (
	"math"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
)

// Damage roll bounds and fixed multipliers.
const (
	RandomMin       = 0.9
	RandomMax       = 1.1
	GuardMultiplier = 0.5
	CritMultiplier  = 1.25
	MoxieMultiplier = 2.0
)

// Source is the randomness the Calculator draws from.
type Source interface {
	// Intn returns a uniformly distributed integer in [0, n).
	Intn(n int) int
}

// Multipliers records every factor applied to the raw damage.
type Multipliers struct {
	Random    float64 `json:"random"`
	Guard     float64 `json:"guard"`
	Elemental float64 `json:"elemental"`
	Crit      float64 `json:"crit"`
	Moxie     float64 `json:"moxie"`
}

// Product returns the combined factor.
func (m Multipliers) Product() float64 {
	return m.Random * m.Guard * m.Elemental * m.Crit * m.Moxie
}

// AttackInput carries everything ComputeAttack needs. Stats are final
// base stats with attitude and equipment already folded in.
type AttackInput struct {
	Move                catalog.MoveDef
	Attacker            catalog.Stats
	AttackerStages      Stages
	Defender            catalog.Stats
	DefenderStages      Stages
	DefenderResistances element.Resistances
	IsDefending         bool
	IsCrit              bool
	IsMoxieActive       bool
}

// AttackResult is the outcome of one damage calculation. Damage is per hit.
type AttackResult struct {
	Damage      int         `json:"damage"`
	HitCount    int         `json:"hit_count"`
	Raw         float64     `json:"raw"`
	Unrounded   float64     `json:"-"`
	AttackStat  float64     `json:"attack_stat"`
	Defence     float64     `json:"defence"`
	Multipliers Multipliers `json:"multipliers"`
}

// DamageRange is the damage span over the full random roll.
type DamageRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ComputeAttack runs the damage pipeline with a fixed random roll.
//
// Precondition: random is in [RandomMin, RandomMax].
// Postcondition: Damage >= 0 and HitCount >= 1.
func ComputeAttack(in AttackInput, random float64) AttackResult {
	atkStat, elemental, hits := selectAttack(in)

	defence := Effective(in.Defender.DEF, in.DefenderStages.DEF)
	if in.IsCrit {
		defence = 0
	}
	raw := atkStat/2 + float64(in.Move.Power())/2 - defence/4
	if raw < 1 {
		raw = 1
	}

	m := Multipliers{Random: random, Guard: 1, Elemental: elemental, Crit: 1, Moxie: 1}
	if in.IsDefending {
		m.Guard = GuardMultiplier
	}
	if in.IsCrit {
		m.Crit = CritMultiplier
	}
	if in.IsMoxieActive && in.Move.Kind == catalog.KindSoultimate {
		m.Moxie = MoxieMultiplier
	}

	unrounded := raw * m.Product()
	return AttackResult{
		Damage:      int(math.Round(unrounded)),
		HitCount:    hits,
		Raw:         raw,
		Unrounded:   unrounded,
		AttackStat:  atkStat,
		Defence:     defence,
		Multipliers: m,
	}
}

// ComputeDamageRange evaluates the pipeline at both ends of the roll.
func ComputeDamageRange(in AttackInput) DamageRange {
	return DamageRange{
		Min: ComputeAttack(in, RandomMin).Damage,
		Max: ComputeAttack(in, RandomMax).Damage,
	}
}

func selectAttack(in AttackInput) (atkStat, elemental float64, hits int) {
	str := Effective(in.Attacker.STR, in.AttackerStages.STR)
	spr := Effective(in.Attacker.SPR, in.AttackerStages.SPR)
	switch in.Move.Kind {
	case catalog.KindTechnique:
		return spr, in.DefenderResistances.Get(in.Move.Element), 1
	case catalog.KindSoultimate:
		if in.Move.Element != element.None {
			return spr, in.DefenderResistances.Get(in.Move.Element), in.Move.HitCount()
		}
		return str, 1.0, in.Move.HitCount()
	default:
		return str, 1.0, in.Move.HitCount()
	}
}

// HitsToKO returns how many hits of damage bring hp to zero, or -1 when
// damage is not positive.
func HitsToKO(damage, hp int) int {
	if damage <= 0 {
		return -1
	}
	if hp <= 0 {
		return 0
	}
	return (hp + damage - 1) / damage
}

// Calculator draws the damage roll and the critical-hit roll from a Source.
type Calculator struct {
	src Source
}

// NewCalculator creates a Calculator.
//
// Precondition: src must not be nil.
func NewCalculator(src Source) *Calculator {
	return &Calculator{src: src}
}

// RollRandom returns a roll in [RandomMin, RandomMax] in steps of 0.01.
func (c *Calculator) RollRandom() float64 {
	return float64(90+c.src.Intn(21)) / 100
}

// Chance reports whether a d100 roll lands under percent. Critical hits and
// status checks both roll through it.
func (c *Calculator) Chance(percent int) bool {
	if percent <= 0 {
		return false
	}
	return c.src.Intn(100) < percent
}

// Compute runs ComputeAttack with a fresh damage roll.
func (c *Calculator) Compute(in AttackInput) AttackResult {
	return ComputeAttack(in, c.RollRandom())
}
