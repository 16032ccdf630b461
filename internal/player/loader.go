package player

import (
	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/scene"
	"github.com/jmlt/demoplayer/internal/timeline"
	"go.uber.org/zap"
)

// Loader owns the scenes of one effect and the timeline that schedules them.
// Single-goroutine access only (frame loop).
type Loader struct {
	ctx      *Context
	scenes   *scene.Registry
	timeline *timeline.Timeline[string]
	log      *zap.Logger
}

func NewLoader(ctx *Context, log *zap.Logger) *Loader {
	return &Loader{
		ctx:      ctx,
		scenes:   scene.NewRegistry(ctx.Templates, log),
		timeline: timeline.New[string](log),
		log:      log,
	}
}

// AddSceneToTimeline schedules scenes. Layer defaults to 1, start to 0 and a
// missing duration keeps the scene live forever.
func (l *Loader) AddSceneToTimeline(entries ...data.TimelineEntry) {
	for _, e := range entries {
		a := l.timeline.Add(e.Layer, timeline.Window{Start: e.Start, Duration: e.Duration}, e.Scene)
		l.log.Debug("scene scheduled",
			zap.String("scene", e.Scene),
			zap.String("layer", string(a.Key)),
			zap.Float64("start", e.Start))
	}
}

// SetScene selects the scene that AddAnimation targets, creating it on first use.
func (l *Loader) SetScene(name string, opts scene.Options) *scene.Scene {
	return l.scenes.SetActive(name, opts)
}

func (l *Loader) AddAnimation(a *scene.Animation) *timeline.Activation[*scene.Animation] {
	return l.scenes.AddAnimation(a)
}

// ProcessAnimation finishes loading: every scene is put on the timeline when
// none was scheduled, resources of animations are announced and scene init
// functions run.
func (l *Loader) ProcessAnimation() {
	if l.timeline.Empty() {
		l.log.Debug("no timeline defined, adding default timeline")
		for _, name := range l.scenes.Names() {
			l.AddSceneToTimeline(data.TimelineEntry{Scene: name})
		}
	}

	for _, name := range l.scenes.Names() {
		s, _ := l.scenes.Get(name)
		l.log.Debug("processing animations for scene", zap.String("scene", name))
		l.initScene(s)
		for _, act := range s.Animations() {
			if r := act.Value.Resource; r != "" {
				l.AddNotifyResource(r)
			}
		}
	}
}

// initScene runs the scene's init function with the scene active, so
// animations it adds land in that scene.
func (l *Loader) initScene(s *scene.Scene) {
	if s.Init == "" {
		return
	}
	if l.ctx.Scripts == nil {
		l.log.Warn("scene init function ignored, no scripts loaded",
			zap.String("scene", s.Name), zap.String("init", s.Init))
		return
	}
	prev := l.scenes.Active()
	l.scenes.SetActive(s.Name, scene.Options{})
	l.ctx.Scripts.Call(s.Init)
	if prev != nil {
		l.scenes.SetActive(prev.Name, scene.Options{})
	}
}

// DeinitAnimation drops every scene and scheduled entry.
func (l *Loader) DeinitAnimation() {
	l.scenes.Reset()
	l.timeline.Reset()
	l.log.Debug("animations deinitialised")
}

// ActiveAt returns the scene activations live at demo time t, draw order.
func (l *Loader) ActiveAt(t float64) []*timeline.Activation[string] {
	return l.timeline.ActiveAt(t)
}

func (l *Loader) Scenes() *scene.Registry { return l.scenes }

func (l *Loader) Timeline() *timeline.Timeline[string] { return l.timeline }

func (l *Loader) AddNotifyResource(name string) bool {
	return l.ctx.Resources.AddNotifyResource(name)
}

func (l *Loader) NotifyResourceLoaded(name string) bool {
	return l.ctx.Resources.NotifyResourceLoaded(name)
}
