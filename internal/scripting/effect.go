package scripting

import (
	"fmt"

	"github.com/jmlt/demoplayer/internal/effect"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// LuaEffect drives an effect defined as a global Lua table with optional
// init, post_init, run and deinit functions. Each function receives the
// table as self; run also receives the demo time.
type LuaEffect struct {
	name string
	e    *Engine
}

// HasEffect reports whether a global table called name exists.
func (e *Engine) HasEffect(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LTable)
	return ok
}

// Effect returns a factory for the Lua effect table called name.
func (e *Engine) Effect(name string) effect.Factory {
	return func() effect.Effect {
		return &LuaEffect{name: name, e: e}
	}
}

func (l *LuaEffect) Name() string { return l.name }

// hook looks up a function field of the effect table.
func (l *LuaEffect) hook(name string) (*lua.LTable, *lua.LFunction) {
	tbl, ok := l.e.vm.GetGlobal(l.name).(*lua.LTable)
	if !ok {
		return nil, nil
	}
	fn, ok := tbl.RawGetString(name).(*lua.LFunction)
	if !ok {
		return tbl, nil
	}
	return tbl, fn
}

// with binds h as the authoring host for the duration of fn.
func (l *LuaEffect) with(h effect.Host, fn func() error) error {
	prevEffect := l.e.effectHost
	l.e.effectHost = h
	defer func() { l.e.effectHost = prevEffect }()
	if sh, ok := h.(Host); ok {
		prev := l.e.Bind(sh)
		defer l.e.Bind(prev)
	}
	return fn()
}

func (l *LuaEffect) invoke(hook string, fn *lua.LFunction, args ...lua.LValue) error {
	if err := l.e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		return fmt.Errorf("lua %s.%s: %w", l.name, hook, err)
	}
	return nil
}

func (l *LuaEffect) Init(h effect.Host) error {
	tbl, fn := l.hook("init")
	if fn == nil {
		return nil
	}
	return l.with(h, func() error { return l.invoke("init", fn, tbl) })
}

func (l *LuaEffect) PostInit(h effect.Host) error {
	tbl, fn := l.hook("post_init")
	if fn == nil {
		h.ProcessAnimation()
		return nil
	}
	return l.with(h, func() error { return l.invoke("post_init", fn, tbl) })
}

func (l *LuaEffect) Run(h effect.Host, t float64) {
	tbl, fn := l.hook("run")
	if fn == nil {
		h.DrawAnimation(t)
		return
	}
	err := l.with(h, func() error { return l.invoke("run", fn, tbl, lua.LNumber(t)) })
	if err != nil {
		l.e.log.Error("lua effect run error", zap.String("effect", l.name), zap.Error(err))
	}
}

func (l *LuaEffect) Deinit(h effect.Host) {
	tbl, fn := l.hook("deinit")
	if fn == nil {
		h.DeinitAnimation()
		return
	}
	err := l.with(h, func() error { return l.invoke("deinit", fn, tbl) })
	if err != nil {
		l.e.log.Error("lua effect deinit error", zap.String("effect", l.name), zap.Error(err))
	}
}
