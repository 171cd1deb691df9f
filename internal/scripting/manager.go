package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/dice"
)

// ErrScript wraps every Lua runtime error returned by CallHook.
var ErrScript = errors.New("lua runtime error")

// ArgBuilder produces hook arguments inside the target VM.
type ArgBuilder func(L *lua.LState) []lua.LValue

// vm is one loaded script set. An LState is single-threaded, so every call
// holds mu.
type vm struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
}

// Manager owns one sandboxed VM per script set, keyed by name.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// Load creates a VM for key, registers the engine module, then executes every
// *.lua file in dir in lexicographic order. An existing VM for key is
// replaced.
//
// Precondition: key is non-empty; dir is a readable directory. instLimit <= 0
// selects DefaultInstructionLimit.
// Postcondition: returns an error on any read or Lua load failure, leaving
// any previous VM for key in place.
func (m *Manager) Load(key, dir string, instLimit int) error {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", dir, key, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	L := NewSandboxedState()
	m.registerModules(L)
	ctx, cancel := newCountingContext(instLimit * (len(files) + 1))
	L.SetContext(ctx)
	for _, path := range files {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}
	L.RemoveContext()
	cancel()

	m.mu.Lock()
	if old, ok := m.vms[key]; ok {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.vms[key] = &vm{L: L, instLimit: instLimit}
	m.mu.Unlock()

	m.logger.Info("scripts loaded",
		zap.String("key", key),
		zap.Int("files", len(files)),
	)
	return nil
}

// HasHook reports whether key's VM defines a global function named hook.
func (m *Manager) HasHook(key, hook string) bool {
	v := m.get(key)
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.L.GetGlobal(hook).Type() == lua.LTFunction
}

// CallHook calls the global function hook in key's VM with a fresh
// instruction budget. build may be nil for a no-argument call.
//
// Postcondition: Returns (LNil, nil) when the VM or hook does not exist.
// A Lua runtime error or exhausted budget is logged at Warn and returned
// wrapped in ErrScript.
func (m *Manager) CallHook(key, hook string, build ArgBuilder) (lua.LValue, error) {
	v := m.get(key)
	if v == nil {
		m.logger.Debug("scripting: no VM for key", zap.String("key", key), zap.String("hook", hook))
		return lua.LNil, nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}
	var args []lua.LValue
	if build != nil {
		args = build(v.L)
	}

	ctx, cancel := newCountingContext(v.instLimit)
	defer cancel()
	v.L.SetContext(ctx)
	defer v.L.RemoveContext()

	if err := v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("key", key),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("%w: %s/%s: %v", ErrScript, key, hook, err)
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, key)
	}
}

func (m *Manager) get(key string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vms[key]
}
