package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/effect"
	"github.com/jmlt/demoplayer/internal/expr"
	"github.com/jmlt/demoplayer/internal/scene"
	"github.com/jmlt/demoplayer/internal/syncengine"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Host receives authoring calls made from scripts.
type Host interface {
	SetScene(s data.Scene)
	AddAnimation(a data.Animation)
	AddTimeline(e data.TimelineEntry)
	AddSync(s data.SyncTrack) bool
	AddNotifyResource(name string) bool
	NotifyResourceLoaded(name string) bool
}

// Engine wraps a single gopher-lua VM for demo scripts.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	host   Host
	chunks map[string]*lua.LFunction

	effectHost effect.Host // set while a Lua effect hook runs
}

// NewEngine creates a Lua engine with the authoring API installed.
func NewEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, chunks: make(map[string]*lua.LFunction)}
	e.installAPI()
	return e
}

// LoadFile runs one script file.
func (e *Engine) LoadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// LoadDir loads all .lua files in a directory in name order.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// DoString runs a script snippet.
func (e *Engine) DoString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("lua: %w", err)
	}
	return nil
}

// Bind sets the host that authoring calls go to and returns the previous one.
func (e *Engine) Bind(h Host) Host {
	prev := e.host
	e.host = h
	return prev
}

func (e *Engine) contextTable(ctx expr.Context) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("scene", lua.LString(ctx.Scene))
	t.RawSetString("animation", lua.LString(ctx.Animation))
	t.RawSetString("progress", lua.LNumber(ctx.Progress))
	t.RawSetString("time", lua.LNumber(ctx.Time))
	return t
}

// Resolve evaluates a named expression. A name that is a global function
// is called with a context table; anything else is compiled once as
// "return <name>" and evaluated with the globals progress, time, scene
// and animation set.
func (e *Engine) Resolve(ctx expr.Context, name string) (expr.Result, error) {
	if isIdent(name) {
		if fn, ok := e.vm.GetGlobal(name).(*lua.LFunction); ok {
			return e.call(name, fn, e.contextTable(ctx))
		}
	}

	fn, ok := e.chunks[name]
	if !ok {
		var err error
		fn, err = e.vm.LoadString("return " + name)
		if err != nil {
			return expr.Result{}, fmt.Errorf("compile expression %q: %w", name, err)
		}
		e.chunks[name] = fn
	}

	e.vm.SetGlobal("progress", lua.LNumber(ctx.Progress))
	e.vm.SetGlobal("time", lua.LNumber(ctx.Time))
	e.vm.SetGlobal("scene", lua.LString(ctx.Scene))
	e.vm.SetGlobal("animation", lua.LString(ctx.Animation))
	return e.call(name, fn)
}

func (e *Engine) call(name string, fn *lua.LFunction, args ...lua.LValue) (expr.Result, error) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		return expr.Result{}, fmt.Errorf("evaluate %q: %w", name, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return toResult(name, result)
}

func toResult(name string, v lua.LValue) (expr.Result, error) {
	switch x := v.(type) {
	case lua.LNumber:
		return expr.Scalar(float64(x)), nil
	case lua.LBool:
		if x {
			return expr.Scalar(1), nil
		}
		return expr.Scalar(0), nil
	case *lua.LTable:
		n := x.Len()
		out := make([]float64, 0, n)
		for i := 1; i <= n; i++ {
			num, ok := x.RawGetInt(i).(lua.LNumber)
			if !ok {
				return expr.Result{}, fmt.Errorf("%w: %q element %d", expr.ErrNotNumeric, name, i)
			}
			out = append(out, float64(num))
		}
		return expr.Result{Values: out}, nil
	}
	return expr.Result{}, fmt.Errorf("%w: %q returned %s", expr.ErrNotNumeric, name, v.Type())
}

// Callback returns a sync callback that calls the named global function with
// an event table. An empty name yields nil so track-level fallbacks apply.
func (e *Engine) Callback(name string) syncengine.Callback {
	if name == "" {
		return nil
	}
	return func(ev syncengine.Event) {
		fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
		if !ok {
			e.log.Error("lua function not found", zap.String("name", name))
			return
		}

		t := e.vm.NewTable()
		t.RawSetString("track", lua.LString(ev.Track))
		t.RawSetString("pattern", lua.LNumber(ev.Pattern))
		t.RawSetString("phase", lua.LString(ev.Phase.String()))
		t.RawSetString("time", lua.LNumber(ev.Time))
		t.RawSetString("progress", lua.LNumber(ev.Progress))
		if ev.Binding != nil {
			if a, ok := ev.Binding.Target.(*scene.Animation); ok {
				t.RawSetString("animation", lua.LString(a.Name))
			}
		}

		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, t); err != nil {
			e.log.Error("lua callback error", zap.String("func", name), zap.Error(err))
		}
	}
}

// Call invokes a global function without arguments. Missing functions and
// runtime errors are logged; false is returned.
func (e *Engine) Call(name string) bool {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		e.log.Error("lua function not found", zap.String("name", name))
		return false
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return false
	}
	return true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
