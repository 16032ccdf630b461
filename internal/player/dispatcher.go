package player

import (
	"sort"

	"github.com/jmlt/demoplayer/internal/expr"
	"github.com/jmlt/demoplayer/internal/layer"
	"github.com/jmlt/demoplayer/internal/scene"
	"go.uber.org/zap"
)

// DrawCall is one animation to draw in a frame.
type DrawCall struct {
	Time      float64 // demo time
	SceneTime float64 // time since the scene activation started
	Scene     string
	SceneKey  layer.Key
	Animation *scene.Animation
	Key       layer.Key
	Progress  float64 // sync progress, else position in the animation window
	Synced    bool
	Values    map[string]expr.Result
}

// Renderer receives the frame in draw order.
type Renderer interface {
	BeginComposition(c *scene.Composition, call DrawCall)
	EndComposition(c *scene.Composition, call DrawCall)
	Draw(call DrawCall)
}

// LogRenderer is the headless renderer: every call is a debug log line.
type LogRenderer struct {
	log *zap.Logger
}

func NewLogRenderer(log *zap.Logger) *LogRenderer {
	return &LogRenderer{log: log}
}

func (r *LogRenderer) BeginComposition(c *scene.Composition, call DrawCall) {
	r.log.Debug("composition begin", zap.String("target", c.Target), zap.String("scene", call.Scene))
}

func (r *LogRenderer) EndComposition(c *scene.Composition, call DrawCall) {
	r.log.Debug("composition end", zap.String("target", c.Target), zap.String("scene", call.Scene))
}

func (r *LogRenderer) Draw(call DrawCall) {
	r.log.Debug("draw",
		zap.String("scene", call.Scene),
		zap.String("animation", call.Animation.Name),
		zap.String("key", string(call.Key)),
		zap.Float64("time", call.SceneTime),
		zap.Float64("progress", call.Progress))
}

// Dispatcher turns the live timeline into draw calls.
type Dispatcher struct {
	ctx    *Context
	log    *zap.Logger
	failed map[string]bool // scene/animation/param that already logged an error
	absent map[string]bool // scheduled scenes that were never created
}

func NewDispatcher(ctx *Context, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		ctx:    ctx,
		log:    log,
		failed: make(map[string]bool),
		absent: make(map[string]bool),
	}
}

// Frame computes the draw calls at demo time t. Scenes are visited in
// timeline order and their animations at scene-local time; sync tracks run
// on demo time.
func (d *Dispatcher) Frame(l *Loader, t float64) []DrawCall {
	var calls []DrawCall
	for _, sa := range l.ActiveAt(t) {
		s, ok := l.Scenes().Get(sa.Value)
		if !ok {
			if !d.absent[sa.Value] {
				d.absent[sa.Value] = true
				d.log.Warn("scheduled scene not found", zap.String("scene", sa.Value))
			}
			continue
		}
		local := t - sa.Start
		for _, aa := range s.ActiveAt(local) {
			a := aa.Value
			call := DrawCall{
				Time:      t,
				SceneTime: local,
				Scene:     s.Name,
				SceneKey:  sa.Key,
				Animation: a,
				Key:       aa.Key,
			}
			if a.Sync != nil {
				call.Progress = d.ctx.Sync.Calculate(t, a.Sync)
				call.Synced = true
			} else {
				call.Progress = ownProgress(a, local)
			}
			call.Values = d.evaluate(s.Name, a, call)
			calls = append(calls, call)
		}
	}
	return calls
}

// ownProgress is the position of t in the animation window; 0 when the
// animation never ends.
func ownProgress(a *scene.Animation, t float64) float64 {
	if a.Duration == nil || *a.Duration <= 0 {
		return 0
	}
	p := (t - a.Start) / *a.Duration
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

func (d *Dispatcher) evaluate(sceneName string, a *scene.Animation, call DrawCall) map[string]expr.Result {
	if len(a.Params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx := expr.Context{
		Scene:     sceneName,
		Animation: a.Name,
		Progress:  call.Progress,
		Time:      call.SceneTime,
	}
	out := make(map[string]expr.Result, len(keys))
	for _, k := range keys {
		res, err := d.ctx.Evaluator.Evaluate(ctx, a.Params[k])
		if err != nil {
			id := sceneName + "/" + a.Name + "/" + k
			if !d.failed[id] {
				d.failed[id] = true
				d.log.Error("animation parameter failed",
					zap.String("scene", sceneName),
					zap.String("animation", a.Name),
					zap.String("param", k),
					zap.Error(err))
			}
			continue
		}
		out[k] = res
	}
	return out
}

// Render hands the calls to the renderer in order.
func (d *Dispatcher) Render(calls []DrawCall) {
	r := d.ctx.Renderer
	for _, call := range calls {
		c := call.Animation.Composition
		switch {
		case c == nil:
			r.Draw(call)
		case c.Stage == scene.StageBegin:
			r.BeginComposition(c, call)
		default:
			r.EndComposition(c, call)
		}
	}
}

// Draw computes and renders the frame at demo time t.
func (d *Dispatcher) Draw(l *Loader, t float64) []DrawCall {
	calls := d.Frame(l, t)
	d.Render(calls)
	return calls
}
