// Package player ties scenes, sync tracks, effects and resources into a
// playable demo.
package player

import (
	"github.com/jmlt/demoplayer/internal/core/event"
	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/effect"
	"github.com/jmlt/demoplayer/internal/expr"
	"github.com/jmlt/demoplayer/internal/resource"
	"github.com/jmlt/demoplayer/internal/rocket"
	"github.com/jmlt/demoplayer/internal/scene"
	"github.com/jmlt/demoplayer/internal/syncengine"
	"go.uber.org/zap"
)

// Scripts is the script side of the player: named expressions, sync
// callbacks and scene init functions.
type Scripts interface {
	expr.Resolver
	Callback(name string) syncengine.Callback
	Call(name string) bool
}

type Options struct {
	Scripts   Scripts        // nil = no named expressions or callbacks
	Rocket    *rocket.Device // nil = a device at the default tempo
	Renderer  Renderer       // nil = LogRenderer
	Templates scene.Templates
}

// Context is the process-scoped player state. It is created at player start
// and torn down with Close; nothing in the player keeps package globals.
type Context struct {
	Sync      *syncengine.Engine
	Resources *resource.Tracker
	Evaluator *expr.Evaluator
	Effects   *effect.Registry
	Bus       *event.Bus
	Rocket    *rocket.Device
	Scripts   Scripts
	Renderer  Renderer
	Templates scene.Templates

	stages map[string]*Stage
	log    *zap.Logger
}

func NewContext(opts Options, log *zap.Logger) *Context {
	c := &Context{
		Sync:      syncengine.New(log),
		Resources: resource.NewTracker(),
		Bus:       event.NewBus(),
		Rocket:    opts.Rocket,
		Scripts:   opts.Scripts,
		Renderer:  opts.Renderer,
		Templates: opts.Templates,
		stages:    make(map[string]*Stage),
		log:       log,
	}
	if c.Rocket == nil {
		c.Rocket = rocket.NewDevice(rocket.DefaultBPM, rocket.DefaultRowsPerBeat, log)
	}
	if c.Renderer == nil {
		c.Renderer = NewLogRenderer(log)
	}
	var resolver expr.Resolver
	if opts.Scripts != nil {
		resolver = opts.Scripts
	}
	c.Evaluator = expr.NewEvaluator(resolver)
	c.Effects = effect.NewRegistry(func(name string) effect.Host { return c.NewStage(name) }, log)
	return c
}

// NewStage creates the loader and dispatcher pair of one effect.
func (c *Context) NewStage(name string) *Stage {
	s := &Stage{
		name:       name,
		ctx:        c,
		Loader:     NewLoader(c, c.log.With(zap.String("effect", name))),
		Dispatcher: NewDispatcher(c, c.log.With(zap.String("effect", name))),
	}
	c.stages[name] = s
	return s
}

// Stage returns the stage created for an effect, if any.
func (c *Context) Stage(name string) (*Stage, bool) {
	s, ok := c.stages[name]
	return s, ok
}

// SyncDefinition converts an authored track. Rocket tracks read the device
// track of the same name; callback names resolve through the scripts.
func (c *Context) SyncDefinition(t data.SyncTrack) syncengine.Definition {
	def := syncengine.Definition{
		Name:      t.Name,
		Start:     t.Start,
		End:       t.End,
		Duration:  t.Duration,
		Callbacks: c.callbacks(t.Callbacks),
	}
	if t.IsRocket() {
		def.Source = c.Rocket.Track(t.Name)
	}
	for _, p := range t.Patterns {
		def.Patterns = append(def.Patterns, syncengine.PatternDefinition{
			Start:     p.Start,
			End:       p.End,
			Duration:  p.Duration,
			Callbacks: c.callbacks(p.Callbacks),
		})
	}
	return def
}

func (c *Context) callbacks(cb data.Callbacks) syncengine.Callbacks {
	if c.Scripts == nil {
		if cb != (data.Callbacks{}) {
			c.log.Warn("sync callbacks ignored, no scripts loaded",
				zap.String("on_start", cb.OnStart),
				zap.String("on_run", cb.OnRun),
				zap.String("on_end", cb.OnEnd))
		}
		return syncengine.Callbacks{}
	}
	return syncengine.Callbacks{
		Start: c.Scripts.Callback(cb.OnStart),
		Run:   c.Scripts.Callback(cb.OnRun),
		End:   c.Scripts.Callback(cb.OnEnd),
	}
}

// Close deinitialises running effects and clears every registry.
func (c *Context) Close() {
	c.Effects.DeinitAll()
	c.Sync.Reset()
	c.Resources.Reset()
	c.stages = make(map[string]*Stage)
	c.log.Debug("player context closed")
}
