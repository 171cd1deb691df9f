package battle_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/status"
)

// fixedSrc returns val for every draw, clamped into [0, n). val 10 yields a
// 1.0 damage roll and no 5% critical hit.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

type moxieSkills map[string]bool

func (m moxieSkills) MoxieActive(c *battle.Combatant) bool { return m[c.SkillID] }

func pow(p int) *int { return &p }

func testCatalog(t *testing.T) *catalog.Registry {
	t.Helper()
	reg := catalog.NewRegistry()
	for _, m := range []catalog.MoveDef{
		{ID: "jab", Name: "Jab", Kind: catalog.KindAttack, BasePower: pow(50), Hits: 1},
		{ID: "flurry", Name: "Flurry", Kind: catalog.KindAttack, BasePower: pow(20), Hits: 3},
		{ID: "ember", Name: "Ember", Kind: catalog.KindTechnique, BasePower: pow(60), Hits: 1, Element: element.Fire},
		{ID: "finisher", Name: "Finisher", Kind: catalog.KindSoultimate, BasePower: pow(100), Hits: 1},
	} {
		require.NoError(t, reg.RegisterMove(m))
	}
	for _, in := range []catalog.InspiritDef{
		{ID: "sap", Name: "Sap", Targets: catalog.TargetEnemy, Effects: []catalog.Effect{catalog.AllStatsDelta{Stages: -1}}},
		{ID: "pep", Name: "Pep", Targets: catalog.TargetSelf, Effects: []catalog.Effect{catalog.AllStatsDelta{Stages: 1}}},
		{ID: "leech", Name: "Leech", Targets: catalog.TargetEnemy, Effects: []catalog.Effect{catalog.Drain{Fraction: 0.5}}},
		{ID: "lull", Name: "Lull", Targets: catalog.TargetEnemy, Effects: []catalog.Effect{catalog.InflictStatus{Kind: status.Asleep, Duration: 2}}},
	} {
		require.NoError(t, reg.RegisterInspirit(in))
	}
	return reg
}

var fighterStats = catalog.Stats{HP: 200, STR: 120, SPR: 80, DEF: 70, SPD: 60}

func fighter(name string) *battle.Combatant {
	return battle.NewCombatant(name, name, fighterStats, element.Resistances{element.Fire: 1.5},
		battle.Moveset{Attack: "jab", Technique: "ember", Inspirit: "sap", Soultimate: "finisher"}, "")
}

func roster(t *testing.T, members ...*battle.Combatant) *battle.Roster {
	t.Helper()
	r, err := battle.NewRoster(members...)
	require.NoError(t, err)
	return r
}

func newEngine(t *testing.T, a, b *battle.Roster, opts ...func(*battle.Config)) *battle.Engine {
	t.Helper()
	cfg := battle.DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	e, err := battle.NewEngine(cfg, testCatalog(t), moxieSkills{"moxie": true}, fixedSrc{10}, zap.NewNop(), a, b)
	require.NoError(t, err)
	return e
}

func jab() battle.Action { return battle.Action{Category: battle.CategoryAttack} }

func act(c battle.Category) battle.Action { return battle.Action{Category: c} }
