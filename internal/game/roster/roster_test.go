package roster_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/roster"
)

func shippedCatalog(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.LoadDirectory(filepath.Join("..", "..", "..", "content", "catalog"))
	require.NoError(t, err)
	return reg
}

func jibanyan() roster.Member {
	return roster.Member{
		CatalogID:    "jibanyan",
		Level:        60,
		IVs:          [5]int{8, 8, 8, 8, 8},
		EVs:          [5]int{0, 2, 0, 3, 0},
		AttitudeID:   "rough",
		EquipmentIDs: []string{"cicada_sword", "sneakers"},
	}
}

func TestValidateIVs(t *testing.T) {
	assert.NoError(t, roster.ValidateIVs([5]int{40, 0, 0, 0, 0}))
	assert.Error(t, roster.ValidateIVs([5]int{8, 8, 8, 8, 7}))
	assert.Error(t, roster.ValidateIVs([5]int{-1, 9, 8, 8, 16}))
}

func TestValidateEVs(t *testing.T) {
	assert.NoError(t, roster.ValidateEVs([5]int{0, 1, 1, 1, 2}))
	assert.NoError(t, roster.ValidateEVs([5]int{}))
	assert.Error(t, roster.ValidateEVs([5]int{0, 2, 2, 2, 0}))
	assert.Error(t, roster.ValidateEVs([5]int{1, 0, 0, 0, 0}))
	assert.Error(t, roster.ValidateEVs([5]int{0, -1, 0, 0, 0}))
}

func TestProperty_IVsSummingToTotalAreValid(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var ivs [5]int
		left := roster.IVTotal
		for i := 0; i < 4; i++ {
			ivs[i] = rapid.IntRange(0, left).Draw(rt, "iv")
			left -= ivs[i]
		}
		ivs[4] = left
		assert.NoError(rt, roster.ValidateIVs(ivs))
		ivs[rapid.IntRange(0, 4).Draw(rt, "bump")]++
		assert.Error(rt, roster.ValidateIVs(ivs))
	})
}

func TestResolveStats(t *testing.T) {
	base := catalog.Stats{HP: 120, STR: 90, SPR: 60, DEF: 70, SPD: 85}
	att := catalog.AttitudeDef{Boost: catalog.Stats{STR: 10, DEF: -5}}
	gear := []catalog.EquipmentDef{{Bonus: catalog.Stats{STR: 10}}, {Bonus: catalog.Stats{SPD: 10}}}
	got := roster.ResolveStats(base, jibanyan(), att, gear)
	assert.Equal(t, catalog.Stats{HP: 128, STR: 120, SPR: 68, DEF: 76, SPD: 103}, got)
}

func TestResolveStats_FloorsAtOne(t *testing.T) {
	got := roster.ResolveStats(catalog.Stats{HP: 1, DEF: 2}, roster.Member{}, catalog.AttitudeDef{Boost: catalog.Stats{DEF: -10}}, nil)
	assert.Equal(t, 1, got.DEF)
	assert.Equal(t, 1, got.STR)
}

func TestResolver_Build(t *testing.T) {
	r := roster.NewResolver(shippedCatalog(t), 6)
	team := roster.Team{jibanyan(), {CatalogID: "komasan", Level: 30, IVs: [5]int{10, 10, 10, 5, 5}}}

	built, err := r.Build(team)
	require.NoError(t, err)
	require.Len(t, built.Members, 2)
	assert.Equal(t, 0, built.ActiveSlot())

	jiba := built.Members[0]
	assert.Equal(t, "Jibanyan", jiba.Name)
	assert.Equal(t, 128, jiba.CurrentHP)
	assert.Equal(t, 128, jiba.MaxHP())
	assert.Equal(t, 0, jiba.CurrentSoul)
	assert.Equal(t, "paws_of_fury", jiba.Moves.Attack)
	assert.Equal(t, "moxie", jiba.SkillID)
}

func TestResolver_BuildDoesNotShareCatalogResistances(t *testing.T) {
	reg := shippedCatalog(t)
	before, err := reg.GetYokai("jibanyan")
	require.NoError(t, err)
	want := before.Resistances.Get(element.Water)

	first, err := roster.NewResolver(reg, 6).Build(roster.Team{jibanyan()})
	require.NoError(t, err)
	first.Active().Resistances[element.Water] = 99

	after, err := reg.GetYokai("jibanyan")
	require.NoError(t, err)
	assert.Equal(t, want, after.Resistances.Get(element.Water))

	second, err := roster.NewResolver(reg, 6).Build(roster.Team{jibanyan()})
	require.NoError(t, err)
	assert.Equal(t, want, second.Active().Resistances.Get(element.Water), "each match gets its own copy")

	after.Resistances[element.Water] = 42
	again, err := reg.GetYokai("jibanyan")
	require.NoError(t, err)
	assert.Equal(t, want, again.Resistances.Get(element.Water))
}

func TestResolver_RejectsBadTeams(t *testing.T) {
	r := roster.NewResolver(shippedCatalog(t), 2)

	tooMany := roster.Team{jibanyan(), jibanyan(), jibanyan()}
	unknown := jibanyan()
	unknown.CatalogID = "nobody"
	badLevel := jibanyan()
	badLevel.Level = 0
	overGeared := jibanyan()
	overGeared.EquipmentIDs = []string{"cicada_sword", "sneakers", "iron_plate"}
	badAttitude := jibanyan()
	badAttitude.AttitudeID = "grumpy"

	for name, team := range map[string]roster.Team{
		"empty":         {},
		"too many":      tooMany,
		"unknown yokai": {unknown},
		"bad level":     {badLevel},
		"over geared":   {overGeared},
		"bad attitude":  {badAttitude},
	} {
		err := r.Validate(team)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRoster, name)
	}
}

func TestResolver_ReportsEveryBadMember(t *testing.T) {
	r := roster.NewResolver(shippedCatalog(t), 6)
	a, b := jibanyan(), jibanyan()
	a.IVs = [5]int{}
	b.EVs = [5]int{0, 5, 5, 0, 0}
	err := r.Validate(roster.Team{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "member 0")
	assert.Contains(t, err.Error(), "member 1")
}
