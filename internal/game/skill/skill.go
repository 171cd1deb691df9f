// Package skill decides whether a combatant's passive skill is active.
// Evaluators satisfy battle.MoxieEvaluator.
package skill

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/scripting"
)

// Moxie is the skill id that doubles soultimate damage.
const Moxie = "moxie"

// MoxieHook is the Lua global consulted by ScriptEvaluator.
const MoxieHook = "moxie_active"

// StaticEvaluator treats a fixed set of skill ids as moxie.
type StaticEvaluator struct {
	skills map[string]struct{}
}

// NewStaticEvaluator returns an evaluator for ids, or for Moxie alone when
// ids is empty.
func NewStaticEvaluator(ids ...string) *StaticEvaluator {
	if len(ids) == 0 {
		ids = []string{Moxie}
	}
	s := &StaticEvaluator{skills: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.skills[id] = struct{}{}
	}
	return s
}

// MoxieActive implements battle.MoxieEvaluator.
func (s *StaticEvaluator) MoxieActive(c *battle.Combatant) bool {
	if c == nil || c.SkillID == "" {
		return false
	}
	_, ok := s.skills[c.SkillID]
	return ok
}

// ScriptEvaluator asks the moxie_active Lua hook. When the script set has
// no such hook, or the hook returns nil, the fallback decides. A script
// error counts as inactive.
type ScriptEvaluator struct {
	scripts  *scripting.Manager
	key      string
	fallback battle.MoxieEvaluator
	logger   *zap.Logger
}

// NewScriptEvaluator creates a ScriptEvaluator over the script set key.
//
// Precondition: scripts and logger must be non-nil. fallback may be nil,
// meaning inactive.
func NewScriptEvaluator(scripts *scripting.Manager, key string, fallback battle.MoxieEvaluator, logger *zap.Logger) *ScriptEvaluator {
	return &ScriptEvaluator{scripts: scripts, key: key, fallback: fallback, logger: logger}
}

// MoxieActive implements battle.MoxieEvaluator.
func (e *ScriptEvaluator) MoxieActive(c *battle.Combatant) bool {
	if c == nil {
		return false
	}
	ret, err := e.scripts.CallHook(e.key, MoxieHook, func(L *lua.LState) []lua.LValue {
		t := L.NewTable()
		t.RawSetString("id", lua.LString(c.CatalogID))
		t.RawSetString("skill", lua.LString(c.SkillID))
		t.RawSetString("hp", lua.LNumber(c.CurrentHP))
		t.RawSetString("max_hp", lua.LNumber(c.MaxHP()))
		t.RawSetString("soul", lua.LNumber(c.CurrentSoul))
		return []lua.LValue{t}
	})
	if err != nil {
		e.logger.Warn("moxie hook failed; treating as inactive",
			zap.String("combatant", c.CatalogID),
			zap.String("skill", c.SkillID),
			zap.Error(err),
		)
		return false
	}
	if ret == lua.LNil {
		return e.fallback != nil && e.fallback.MoxieActive(c)
	}
	return lua.LVAsBool(ret)
}
