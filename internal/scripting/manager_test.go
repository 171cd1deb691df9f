package scripting_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/dice"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/scripting"
)

type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int { return f.val % n }

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	return scripting.NewManager(dice.NewLoggedRoller(fixedSrc{val: 10}, logger), logger), logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

func nums(vals ...float64) scripting.ArgBuilder {
	return func(*lua.LState) []lua.LValue {
		out := make([]lua.LValue, len(vals))
		for i, v := range vals {
			out[i] = lua.LNumber(v)
		}
		return out
	}
}

func TestManager_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `function add(a, b) return a + b end`)
	require.NoError(t, mgr.Load("skills", dir, 0))

	assert.True(t, mgr.HasHook("skills", "add"))
	ret, err := mgr.CallHook("skills", "add", nums(3, 4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_MissingHookOrKeyIsNoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load("skills", writeTempLua(t, "empty.lua", `-- nothing`), 0))

	ret, err := mgr.CallHook("skills", "nope", nil)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)

	ret, err = mgr.CallHook("other", "nope", nil)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.False(t, mgr.HasHook("other", "nope"))
}

func TestManager_RuntimeErrorIsReturnedAndLogged(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.Load("skills", writeTempLua(t, "bad.lua", `function boom() error("kaboom") end`), 0))

	_, err := mgr.CallHook("skills", "boom", nil)
	assert.True(t, errors.Is(err, scripting.ErrScript))
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestManager_InstructionLimitPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "loop.lua", `
		function spin() while true do end end
		function quick() return 1 end
	`)
	require.NoError(t, mgr.Load("skills", dir, 1000))

	_, err := mgr.CallHook("skills", "spin", nil)
	assert.ErrorIs(t, err, scripting.ErrScript)

	for i := 0; i < 50; i++ {
		ret, err := mgr.CallHook("skills", "quick", nil)
		require.NoError(t, err, "each call gets a fresh budget")
		assert.Equal(t, lua.LNumber(1), ret)
	}
}

func TestManager_SandboxStripsDangerousGlobals(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "probe.lua", `
		function probe()
			return dofile == nil and loadfile == nil and load == nil and require == nil and os == nil and io == nil
		end
	`)
	require.NoError(t, mgr.Load("skills", dir, 0))
	ret, err := mgr.CallHook("skills", "probe", nil)
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)
}

func TestManager_EngineModule(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "engine.lua", `
		function roll(p)
			engine.log("rolling")
			return engine.chance(p)
		end
	`)
	require.NoError(t, mgr.Load("skills", dir, 0))

	ret, err := mgr.CallHook("skills", "roll", nums(50))
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)
	ret, err = mgr.CallHook("skills", "roll", nums(5))
	require.NoError(t, err)
	assert.Equal(t, lua.LFalse, ret)
	assert.Equal(t, 2, logs.FilterMessage("lua").Len())
}

func TestManager_LoadErrors(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.Load("skills", filepath.Join(t.TempDir(), "missing"), 0))
	assert.Error(t, mgr.Load("skills", writeTempLua(t, "syntax.lua", `function (`), 0))
}

func TestManager_ConcurrentCalls(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load("skills", writeTempLua(t, "hooks.lua", `function add(a, b) return a + b end`), 0))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n float64) {
			defer wg.Done()
			ret, err := mgr.CallHook("skills", "add", nums(n, 1))
			assert.NoError(t, err)
			assert.Equal(t, lua.LNumber(n+1), ret)
		}(float64(i))
	}
	wg.Wait()
	mgr.Close()
}
