package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the engine table:
//
//	engine.chance(percent) -> bool   d100 roll under percent
//	engine.log(msg)                  debug log line
func (m *Manager) registerModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(m.roller.Percent(L.CheckInt(1))))
		return 1
	}))
	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("engine", engine)
}
