package calc_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/calc"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/status"
)

// fixedSrc always returns val, clamped to [0, n).
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

func power(p int) *int { return &p }

func attackMove(p int) catalog.MoveDef {
	return catalog.MoveDef{ID: "jab", Kind: catalog.KindAttack, BasePower: power(p), Hits: 1}
}

func baseInput() calc.AttackInput {
	return calc.AttackInput{
		Move:     attackMove(50),
		Attacker: catalog.Stats{HP: 100, STR: 120, SPR: 80, DEF: 50, SPD: 60},
		Defender: catalog.Stats{HP: 100, STR: 60, SPR: 60, DEF: 70, SPD: 60},
	}
}

func TestComputeAttack_WorkedExample(t *testing.T) {
	res := calc.ComputeAttack(baseInput(), 1.0)
	assert.Equal(t, 67.5, res.Raw)
	assert.Equal(t, 68, res.Damage)
	assert.Equal(t, 1, res.HitCount)
	assert.Equal(t, calc.Multipliers{Random: 1, Guard: 1, Elemental: 1, Crit: 1, Moxie: 1}, res.Multipliers)
}

func TestComputeAttack_WorkedExampleGuarding(t *testing.T) {
	in := baseInput()
	in.IsDefending = true
	res := calc.ComputeAttack(in, 1.0)
	assert.Equal(t, 34, res.Damage)
	assert.Equal(t, calc.GuardMultiplier, res.Multipliers.Guard)
}

func TestComputeAttack_RawFloorsAtOne(t *testing.T) {
	in := baseInput()
	in.Attacker.STR = 1
	in.Move = attackMove(0)
	in.Defender.DEF = 999
	res := calc.ComputeAttack(in, calc.RandomMin)
	assert.Equal(t, 1.0, res.Raw)
	assert.Equal(t, 1, res.Damage)
}

func TestComputeAttack_CritZeroesDefence(t *testing.T) {
	in := baseInput()
	in.IsCrit = true
	res := calc.ComputeAttack(in, 1.0)
	assert.Equal(t, 0.0, res.Defence)
	assert.Equal(t, int(math.Round(85*1.25)), res.Damage)
}

func TestComputeAttack_TechniqueUsesSpiritAndResistance(t *testing.T) {
	in := baseInput()
	in.Move = catalog.MoveDef{Kind: catalog.KindTechnique, BasePower: power(60), Hits: 4, Element: element.Fire}
	in.DefenderResistances = element.Resistances{element.Fire: 1.5}
	res := calc.ComputeAttack(in, 1.0)
	assert.Equal(t, 80.0, res.AttackStat)
	assert.Equal(t, 1, res.HitCount)
	assert.Equal(t, 1.5, res.Multipliers.Elemental)
}

func TestComputeAttack_SoultimateStatSelection(t *testing.T) {
	in := baseInput()
	in.DefenderResistances = element.Resistances{element.Ice: 0.5}
	in.Move = catalog.MoveDef{Kind: catalog.KindSoultimate, BasePower: power(100), Hits: 2}
	plain := calc.ComputeAttack(in, 1.0)
	assert.Equal(t, 120.0, plain.AttackStat)
	assert.Equal(t, 1.0, plain.Multipliers.Elemental)
	assert.Equal(t, 2, plain.HitCount)

	in.Move.Element = element.Ice
	icy := calc.ComputeAttack(in, 1.0)
	assert.Equal(t, 80.0, icy.AttackStat)
	assert.Equal(t, 0.5, icy.Multipliers.Elemental)
}

func TestComputeAttack_AttackIgnoresElement(t *testing.T) {
	in := baseInput()
	in.Move.Element = element.Water
	in.DefenderResistances = element.Resistances{element.Water: 2}
	assert.Equal(t, 1.0, calc.ComputeAttack(in, 1.0).Multipliers.Elemental)
}

func TestComputeAttack_MissingPowerTreatedAsZero(t *testing.T) {
	in := baseInput()
	in.Move.BasePower = nil
	assert.Equal(t, 42.5, calc.ComputeAttack(in, 1.0).Raw)
}

func TestComputeDamageRange(t *testing.T) {
	r := calc.ComputeDamageRange(baseInput())
	assert.Equal(t, calc.DamageRange{Min: 61, Max: 74}, r)
}

func TestHitsToKO(t *testing.T) {
	assert.Equal(t, 2, calc.HitsToKO(68, 100))
	assert.Equal(t, 1, calc.HitsToKO(100, 100))
	assert.Equal(t, -1, calc.HitsToKO(0, 100))
	assert.Equal(t, 0, calc.HitsToKO(10, 0))
}

func TestCalculator_Rolls(t *testing.T) {
	assert.Equal(t, 0.9, calc.NewCalculator(fixedSrc{0}).RollRandom())
	assert.Equal(t, 1.0, calc.NewCalculator(fixedSrc{10}).RollRandom())
	assert.Equal(t, 1.1, calc.NewCalculator(fixedSrc{20}).RollRandom())

	assert.True(t, calc.NewCalculator(fixedSrc{4}).Chance(5))
	assert.False(t, calc.NewCalculator(fixedSrc{5}).Chance(5))
	assert.False(t, calc.NewCalculator(fixedSrc{0}).Chance(0))
}

func TestProperty_StageMultiplierMonotone(t *testing.T) {
	assert.Equal(t, 1.0, calc.StageMultiplier(0))
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.IntRange(calc.MinStage, calc.MaxStage-1).Draw(rt, "stage")
		lo, hi := calc.StageMultiplier(s), calc.StageMultiplier(s+1)
		assert.LessOrEqual(rt, lo, hi)
		assert.GreaterOrEqual(rt, lo, 0.25)
		assert.LessOrEqual(rt, hi, 4.0)
	})
}

func drawInput(rt *rapid.T) calc.AttackInput {
	kind := rapid.SampledFrom([]catalog.MoveKind{catalog.KindAttack, catalog.KindTechnique, catalog.KindSoultimate}).Draw(rt, "kind")
	el := rapid.SampledFrom(append(element.All(), element.None)).Draw(rt, "element")
	stat := func(label string) int { return rapid.IntRange(1, 400).Draw(rt, label) }
	stage := func(label string) int { return rapid.IntRange(calc.MinStage, calc.MaxStage).Draw(rt, label) }
	return calc.AttackInput{
		Move: catalog.MoveDef{
			Kind:      kind,
			BasePower: power(rapid.IntRange(0, 300).Draw(rt, "power")),
			Hits:      rapid.IntRange(1, 5).Draw(rt, "hits"),
			Element:   el,
		},
		Attacker:            catalog.Stats{HP: 100, STR: stat("str"), SPR: stat("spr"), DEF: stat("adef"), SPD: 10},
		AttackerStages:      calc.Stages{STR: stage("s_str"), SPR: stage("s_spr")},
		Defender:            catalog.Stats{HP: 100, DEF: stat("def")},
		DefenderStages:      calc.Stages{DEF: stage("s_def")},
		DefenderResistances: element.Resistances{el: rapid.Float64Range(0.1, 3).Draw(rt, "res")},
		IsDefending:         rapid.Bool().Draw(rt, "defending"),
		IsCrit:              rapid.Bool().Draw(rt, "crit"),
		IsMoxieActive:       rapid.Bool().Draw(rt, "moxie"),
	}
}

func drawRandom(rt *rapid.T) float64 {
	return float64(rapid.IntRange(90, 110).Draw(rt, "roll")) / 100
}

func TestProperty_DamageLowerBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := drawInput(rt)
		res := calc.ComputeAttack(in, drawRandom(rt))
		m := res.Multipliers
		floor := int(math.Round(1 * calc.RandomMin * m.Guard * m.Elemental * m.Crit * m.Moxie))
		assert.GreaterOrEqual(rt, res.Damage, floor)
		assert.GreaterOrEqual(rt, res.Damage, 0)
	})
}

func TestProperty_CritNeverWeaker(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := drawInput(rt)
		r := drawRandom(rt)
		in.IsCrit = false
		normal := calc.ComputeAttack(in, r)
		in.IsCrit = true
		crit := calc.ComputeAttack(in, r)
		assert.GreaterOrEqual(rt, crit.Damage, normal.Damage)
		assert.Equal(rt, 0.0, crit.Defence)
	})
}

func TestProperty_GuardHalvesWithinRounding(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := drawInput(rt)
		r := drawRandom(rt)
		in.IsDefending = false
		open := calc.ComputeAttack(in, r)
		in.IsDefending = true
		guarded := calc.ComputeAttack(in, r)
		assert.InDelta(rt, open.Unrounded/2, guarded.Unrounded, 1e-9)
		assert.InDelta(rt, float64(open.Damage)/2, float64(guarded.Damage), 1)
	})
}

func TestProperty_ResistanceDirection(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := drawInput(rt)
		in.Move.Kind = rapid.SampledFrom([]catalog.MoveKind{catalog.KindTechnique, catalog.KindSoultimate}).Draw(rt, "elemental_kind")
		in.Move.Element = rapid.SampledFrom(element.All()).Draw(rt, "el")
		r := drawRandom(rt)

		in.DefenderResistances = element.Resistances{}
		neutral := calc.ComputeAttack(in, r)
		in.DefenderResistances = element.Resistances{in.Move.Element: rapid.Float64Range(0.1, 0.95).Draw(rt, "weak")}
		resisted := calc.ComputeAttack(in, r)
		in.DefenderResistances = element.Resistances{in.Move.Element: rapid.Float64Range(1.05, 3).Draw(rt, "strong")}
		weak := calc.ComputeAttack(in, r)

		assert.Less(rt, resisted.Unrounded, neutral.Unrounded)
		assert.Greater(rt, weak.Unrounded, neutral.Unrounded)
		assert.LessOrEqual(rt, resisted.Damage, neutral.Damage)
		assert.GreaterOrEqual(rt, weak.Damage, neutral.Damage)
	})
}

func TestProperty_MoxieDoublesSoultimate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := drawInput(rt)
		in.Move.Kind = catalog.KindSoultimate
		r := drawRandom(rt)
		in.IsMoxieActive = false
		plain := calc.ComputeAttack(in, r)
		in.IsMoxieActive = true
		moxie := calc.ComputeAttack(in, r)
		assert.InDelta(rt, 2*plain.Unrounded, moxie.Unrounded, 1e-9)
		assert.Equal(rt, int(math.Round(2*plain.Unrounded)), moxie.Damage)
		assert.Equal(rt, calc.MoxieMultiplier, moxie.Multipliers.Moxie)
	})
}

func TestProperty_MoxieIgnoredOutsideSoultimate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := drawInput(rt)
		in.Move.Kind = rapid.SampledFrom([]catalog.MoveKind{catalog.KindAttack, catalog.KindTechnique}).Draw(rt, "k")
		in.IsMoxieActive = true
		assert.Equal(rt, 1.0, calc.ComputeAttack(in, 1.0).Multipliers.Moxie)
	})
}

// subject is a minimal calc.Subject.
type subject struct {
	stages   calc.Stages
	statuses *status.Set
	hp, max  int
}

func newSubject(hp, max int) *subject {
	return &subject{statuses: status.NewSet(), hp: hp, max: max}
}

func (s *subject) StageSet() *calc.Stages { return &s.stages }
func (s *subject) StatusSet() *status.Set { return s.statuses }
func (s *subject) HP() (int, int) { return s.hp, s.max }
func (s *subject) SetHP(v int) { s.hp = v }

func TestApplyInspirit_AllStatsDeltaSaturates(t *testing.T) {
	def := catalog.InspiritDef{ID: "sap", Effects: []catalog.Effect{catalog.AllStatsDelta{Stages: -1}}}
	caster, target := newSubject(100, 100), newSubject(100, 100)

	calc.ApplyInspirit(def, caster, target)
	assert.Equal(t, calc.Stages{STR: -1, SPR: -1, DEF: -1, SPD: -1}, target.stages)
	for i := 0; i < 3; i++ {
		calc.ApplyInspirit(def, caster, target)
	}
	assert.Equal(t, calc.Stages{STR: -4, SPR: -4, DEF: -4, SPD: -4}, target.stages)
	calc.ApplyInspirit(def, caster, target)
	out := calc.ApplyInspirit(def, caster, target)
	assert.Equal(t, calc.Stages{STR: -6, SPR: -6, DEF: -6, SPD: -6}, target.stages)
	require.Len(t, out.StatChanges, 4)
	assert.Equal(t, calc.StatChange{Stat: catalog.StatSTR, From: -5, To: -6}, out.StatChanges[0])

	calc.ApplyInspirit(def, caster, target)
	assert.Equal(t, calc.Stages{STR: -6, SPR: -6, DEF: -6, SPD: -6}, target.stages)
	assert.Equal(t, calc.Stages{}, caster.stages)
}

func TestApplyInspirit_StatDeltaAndStatus(t *testing.T) {
	def := catalog.InspiritDef{Effects: []catalog.Effect{
		catalog.StatDelta{Stat: catalog.StatDEF, Stages: -2},
		catalog.InflictStatus{Kind: status.Confused, Duration: 2},
	}}
	caster, target := newSubject(100, 100), newSubject(100, 100)
	out := calc.ApplyInspirit(def, caster, target)
	assert.Equal(t, -2, target.stages.DEF)
	assert.Equal(t, []status.Kind{status.Confused}, out.StatusesInflicted)

	calc.ApplyInspirit(catalog.InspiritDef{Effects: []catalog.Effect{
		catalog.InflictStatus{Kind: status.Confused, Duration: 5},
	}}, caster, target)
	assert.Equal(t, []status.Active{{Kind: status.Confused, TurnsRemaining: 5}}, target.statuses.All())
}

func TestApplyInspirit_Drain(t *testing.T) {
	def := catalog.InspiritDef{Effects: []catalog.Effect{catalog.Drain{Fraction: 0.25}}}
	caster, target := newSubject(50, 100), newSubject(90, 130)
	out := calc.ApplyInspirit(def, caster, target)
	assert.Equal(t, 58, target.hp)
	assert.Equal(t, 82, caster.hp)
	assert.Equal(t, calc.HPDelta{Attacker: 32, Target: -32}, out.HPDelta)
}

func TestApplyInspirit_DrainCapsAndFloors(t *testing.T) {
	def := catalog.InspiritDef{Effects: []catalog.Effect{catalog.Drain{Fraction: 0.5}}}
	caster, target := newSubject(95, 100), newSubject(10, 100)
	out := calc.ApplyInspirit(def, caster, target)
	assert.Equal(t, 0, target.hp)
	assert.Equal(t, 100, caster.hp)
	assert.Equal(t, calc.HPDelta{Attacker: 5, Target: -10}, out.HPDelta)
}

func TestProperty_ShiftStaysInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var s calc.Stages
		n := rapid.IntRange(1, 30).Draw(rt, "n")
		for i := 0; i < n; i++ {
			stat := rapid.SampledFrom(catalog.AllStats()).Draw(rt, "stat")
			s.Shift(stat, rapid.IntRange(-6, 6).Draw(rt, "delta"))
			v := s.Get(stat)
			assert.GreaterOrEqual(rt, v, calc.MinStage)
			assert.LessOrEqual(rt, v, calc.MaxStage)
		}
	})
}
