package player

import (
	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/scene"
	"github.com/jmlt/demoplayer/internal/scripting"
	"github.com/jmlt/demoplayer/internal/syncengine"
	"go.uber.org/zap"
)

// Stage is the host an effect draws through: its own loader and dispatcher
// over the shared context. It serves both the effect lifecycle and the
// script authoring calls.
type Stage struct {
	name string
	ctx  *Context

	Loader     *Loader
	Dispatcher *Dispatcher
}

func (s *Stage) Name() string { return s.name }

// binder is implemented by scripts that accept authoring calls.
type binder interface {
	Bind(h scripting.Host) scripting.Host
}

// ProcessAnimation finishes loading. Scene init functions run with this
// stage as their authoring host.
func (s *Stage) ProcessAnimation() {
	if b, ok := s.ctx.Scripts.(binder); ok {
		prev := b.Bind(s)
		defer b.Bind(prev)
	}
	s.Loader.ProcessAnimation()
}

func (s *Stage) DrawAnimation(t float64) { s.Dispatcher.Draw(s.Loader, t) }

func (s *Stage) DeinitAnimation() { s.Loader.DeinitAnimation() }

// SetScene selects (and creates) a scene and adds the animations it carries.
func (s *Stage) SetScene(d data.Scene) {
	s.Loader.SetScene(d.Name, scene.Options{NoComposition: d.NoComposition(), Init: d.Init})
	for _, a := range d.Animations {
		s.AddAnimation(a)
	}
}

func (s *Stage) AddAnimation(d data.Animation) {
	s.Loader.AddAnimation(Animation(d))
}

func (s *Stage) AddTimeline(e data.TimelineEntry) {
	s.Loader.AddSceneToTimeline(e)
}

// AddSync registers one track; a later track of the same name replaces it.
func (s *Stage) AddSync(t data.SyncTrack) bool {
	return s.ctx.Sync.Register(s.ctx.SyncDefinition(t)) == 1
}

func (s *Stage) AddNotifyResource(name string) bool { return s.Loader.AddNotifyResource(name) }

func (s *Stage) NotifyResourceLoaded(name string) bool { return s.Loader.NotifyResourceLoaded(name) }

// Apply loads a whole demo definition. Sync tracks are registered together
// so each track without a start follows the previous one.
func (s *Stage) Apply(d *data.Demo) {
	for _, sc := range d.Scenes {
		s.SetScene(sc)
	}
	s.Loader.AddSceneToTimeline(d.Timeline...)

	defs := make([]syncengine.Definition, 0, len(d.Sync))
	for _, t := range d.Sync {
		defs = append(defs, s.ctx.SyncDefinition(t))
	}
	accepted := s.ctx.Sync.Register(defs...)

	for _, r := range d.Resources {
		s.AddNotifyResource(r)
	}
	s.ctx.log.Debug("demo definition applied",
		zap.String("effect", s.name),
		zap.String("demo", d.Name),
		zap.Int("scenes", d.SceneCount()),
		zap.Int("animations", d.AnimationCount()),
		zap.Int("sync_tracks", accepted))
}

// Animation converts an authored animation. A sync binding points back at
// the animation so callbacks can see what they drive.
func Animation(d data.Animation) *scene.Animation {
	a := &scene.Animation{
		Name:     d.Name,
		Layer:    d.Layer,
		Start:    d.Start,
		Duration: d.Duration,
		Effect:   d.Effect,
		Resource: d.Resource,
		Params:   d.Params,
	}
	if d.Sync != "" {
		a.Sync = &syncengine.Binding{Track: d.Sync, Target: a}
	}
	return a
}
