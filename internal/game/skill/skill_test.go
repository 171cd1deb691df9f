package skill_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/dice"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/skill"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/scripting"
)

const shippedScripts = "../../../content/scripts/skills"

func combatant(skillID string, hp int) *battle.Combatant {
	c := battle.NewCombatant("y", "Y", catalog.Stats{HP: 100, STR: 1, SPR: 1, DEF: 1, SPD: 1}, nil, battle.Moveset{}, skillID)
	c.CurrentHP = hp
	return c
}

func scripts(t *testing.T, logger *zap.Logger, dir string) *scripting.Manager {
	t.Helper()
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(1), logger), logger)
	require.NoError(t, mgr.Load("skills", dir, 0))
	t.Cleanup(mgr.Close)
	return mgr
}

func TestStaticEvaluator(t *testing.T) {
	def := skill.NewStaticEvaluator()
	assert.True(t, def.MoxieActive(combatant("moxie", 100)))
	assert.False(t, def.MoxieActive(combatant("snow_guard", 100)))
	assert.False(t, def.MoxieActive(combatant("", 100)))
	assert.False(t, def.MoxieActive(nil))

	custom := skill.NewStaticEvaluator("berserk")
	assert.True(t, custom.MoxieActive(combatant("berserk", 100)))
	assert.False(t, custom.MoxieActive(combatant("moxie", 100)))
}

func TestScriptEvaluator_ShippedHook(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ev := skill.NewScriptEvaluator(scripts(t, logger, shippedScripts), "skills", nil, logger)

	assert.True(t, ev.MoxieActive(combatant("moxie", 100)))
	assert.False(t, ev.MoxieActive(combatant("ambusher", 100)))
	assert.False(t, ev.MoxieActive(combatant("last_stand", 26)))
	assert.True(t, ev.MoxieActive(combatant("last_stand", 25)))
}

func TestScriptEvaluator_NilReturnUsesFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.lua"), []byte(`function moxie_active(c) return nil end`), 0o644))
	logger := zaptest.NewLogger(t)
	ev := skill.NewScriptEvaluator(scripts(t, logger, dir), "skills", skill.NewStaticEvaluator(), logger)

	assert.True(t, ev.MoxieActive(combatant("moxie", 100)))
	assert.False(t, ev.MoxieActive(combatant("other", 100)))
}

func TestScriptEvaluator_MissingHookUsesFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.lua"), []byte(`-- no hooks`), 0o644))
	logger := zaptest.NewLogger(t)
	ev := skill.NewScriptEvaluator(scripts(t, logger, dir), "skills", skill.NewStaticEvaluator(), logger)
	assert.True(t, ev.MoxieActive(combatant("moxie", 100)))

	bare := skill.NewScriptEvaluator(scripts(t, logger, dir), "skills", nil, logger)
	assert.False(t, bare.MoxieActive(combatant("moxie", 100)))
}

func TestScriptEvaluator_ErrorIsInactive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.lua"), []byte(`function moxie_active(c) error("nope") end`), 0o644))
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	ev := skill.NewScriptEvaluator(scripts(t, logger, dir), "skills", skill.NewStaticEvaluator(), logger)

	assert.False(t, ev.MoxieActive(combatant("moxie", 100)))
	assert.Equal(t, 1, logs.FilterMessage("moxie hook failed; treating as inactive").Len())
}

var (
	_ battle.MoxieEvaluator = (*skill.StaticEvaluator)(nil)
	_ battle.MoxieEvaluator = (*skill.ScriptEvaluator)(nil)
)
