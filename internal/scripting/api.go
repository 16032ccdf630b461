package scripting

import (
	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/expr"
	"github.com/jmlt/demoplayer/internal/layer"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func (e *Engine) installAPI() {
	for name, fn := range map[string]lua.LGFunction{
		"set_scene":       e.luaSetScene,
		"add_animation":   e.luaAddAnimation,
		"add_timeline":    e.luaAddTimeline,
		"add_sync":        e.luaAddSync,
		"notify_resource": e.luaNotifyResource,
		"resource_loaded": e.luaResourceLoaded,
		"log_warning":     e.luaLog(zap.WarnLevel),
		"log_debug":       e.luaLog(zap.DebugLevel),
		"log_error":       e.luaLog(zap.ErrorLevel),

		"process_animation": e.luaProcessAnimation,
		"draw_animation":    e.luaDrawAnimation,
	} {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

// bound reports whether a host is attached, logging the call otherwise.
func (e *Engine) bound(fn string) bool {
	if e.host == nil {
		e.log.Error("lua authoring call without a host", zap.String("func", fn))
		return false
	}
	return true
}

// set_scene(name [, {composition = bool, init = "fn"}])
func (e *Engine) luaSetScene(L *lua.LState) int {
	s := data.Scene{Name: L.CheckString(1)}
	if opts := L.OptTable(2, nil); opts != nil {
		if v, ok := opts.RawGetString("composition").(lua.LBool); ok {
			b := bool(v)
			s.Composition = &b
		}
		s.Init = lStr(opts, "init")
	}
	if e.bound("set_scene") {
		e.host.SetScene(s)
	}
	return 0
}

// add_animation{name=, layer=, start=, duration=, effect=, resource=, sync=, params={}}
func (e *Engine) luaAddAnimation(L *lua.LState) int {
	t := L.CheckTable(1)
	a := data.Animation{
		Name:     lStr(t, "name"),
		Layer:    toLayer(t.RawGetString("layer")),
		Start:    lNum(t, "start"),
		Duration: lOptNum(t, "duration"),
		Effect:   lStr(t, "effect"),
		Resource: lStr(t, "resource"),
		Sync:     lStr(t, "sync"),
	}
	if params, ok := t.RawGetString("params").(*lua.LTable); ok {
		a.Params = make(map[string]expr.Value)
		params.ForEach(func(k, v lua.LValue) {
			key, ok := k.(lua.LString)
			if !ok {
				return
			}
			if val, ok := toValue(v); ok {
				a.Params[string(key)] = val
			} else {
				e.log.Warn("lua animation parameter ignored",
					zap.String("animation", a.Name),
					zap.String("param", string(key)),
					zap.String("type", v.Type().String()))
			}
		})
	}
	if e.bound("add_animation") {
		e.host.AddAnimation(a)
	}
	return 0
}

// add_timeline{scene=, layer=, start=, duration=}
func (e *Engine) luaAddTimeline(L *lua.LState) int {
	t := L.CheckTable(1)
	entry := data.TimelineEntry{
		Scene:    lStr(t, "scene"),
		Layer:    toLayer(t.RawGetString("layer")),
		Start:    lNum(t, "start"),
		Duration: lOptNum(t, "duration"),
	}
	if e.bound("add_timeline") {
		e.host.AddTimeline(entry)
	}
	return 0
}

// add_sync{name=, type=, start=, ["end"]=, duration=, on_start=, on_run=, on_end=, patterns={{...}}}
func (e *Engine) luaAddSync(L *lua.LState) int {
	t := L.CheckTable(1)
	s := data.SyncTrack{
		Name:      lStr(t, "name"),
		Type:      lStr(t, "type"),
		Start:     lOptNum(t, "start"),
		End:       lOptNum(t, "end"),
		Duration:  lOptNum(t, "duration"),
		Callbacks: lCallbacks(t),
	}
	if patterns, ok := t.RawGetString("patterns").(*lua.LTable); ok {
		for i := 1; i <= patterns.Len(); i++ {
			p, ok := patterns.RawGetInt(i).(*lua.LTable)
			if !ok {
				continue
			}
			s.Patterns = append(s.Patterns, data.Pattern{
				Start:     lOptNum(p, "start"),
				End:       lOptNum(p, "end"),
				Duration:  lOptNum(p, "duration"),
				Callbacks: lCallbacks(p),
			})
		}
	}
	ok := false
	if e.bound("add_sync") {
		ok = e.host.AddSync(s)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) luaNotifyResource(L *lua.LState) int {
	name := L.CheckString(1)
	ok := false
	if e.bound("notify_resource") {
		ok = e.host.AddNotifyResource(name)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) luaResourceLoaded(L *lua.LState) int {
	name := L.CheckString(1)
	ok := false
	if e.bound("resource_loaded") {
		ok = e.host.NotifyResourceLoaded(name)
	}
	L.Push(lua.LBool(ok))
	return 1
}

// draw_animation(t) runs the default draw from inside an effect's run hook.
func (e *Engine) luaDrawAnimation(L *lua.LState) int {
	t := float64(L.CheckNumber(1))
	if e.effectHost == nil {
		e.log.Error("lua draw_animation outside an effect hook")
		return 0
	}
	e.effectHost.DrawAnimation(t)
	return 0
}

func (e *Engine) luaProcessAnimation(L *lua.LState) int {
	if e.effectHost == nil {
		e.log.Error("lua process_animation outside an effect hook")
		return 0
	}
	e.effectHost.ProcessAnimation()
	return 0
}

func (e *Engine) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		if ce := e.log.Check(level, L.CheckString(1)); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

// --- Lua helpers ---

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	if v := t.RawGetString(key); v != lua.LNil {
		return lua.LVAsString(v)
	}
	return ""
}

// lNum reads a number field, 0 when absent.
func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lOptNum reads a number field, nil when absent.
func lOptNum(t *lua.LTable, key string) *float64 {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		f := float64(n)
		return &f
	}
	return nil
}

func lCallbacks(t *lua.LTable) data.Callbacks {
	return data.Callbacks{
		OnStart: lStr(t, "on_start"),
		OnRun:   lStr(t, "on_run"),
		OnEnd:   lStr(t, "on_end"),
	}
}

func toLayer(v lua.LValue) layer.Layer {
	switch x := v.(type) {
	case lua.LNumber:
		return layer.Float(float64(x))
	case lua.LString:
		return layer.Name(string(x))
	}
	return layer.Layer{}
}

func toValue(v lua.LValue) (expr.Value, bool) {
	switch x := v.(type) {
	case lua.LNumber:
		return expr.Literal(float64(x)), true
	case lua.LString:
		return expr.Named(string(x)), true
	case *lua.LTable:
		fs := make([]float64, 0, x.Len())
		for i := 1; i <= x.Len(); i++ {
			n, ok := x.RawGetInt(i).(lua.LNumber)
			if !ok {
				return expr.Value{}, false
			}
			fs = append(fs, float64(n))
		}
		return expr.List(fs...), true
	}
	return expr.Value{}, false
}
