// Package scene holds named scenes and the animations scheduled in them.
package scene

import (
	"strings"

	"github.com/jmlt/demoplayer/internal/expr"
	"github.com/jmlt/demoplayer/internal/layer"
	"github.com/jmlt/demoplayer/internal/syncengine"
	"github.com/jmlt/demoplayer/internal/timeline"
	"go.uber.org/zap"
)

// DefaultName is the scene created when animations arrive before any
// scene was selected.
const DefaultName = "Default"

type Stage uint8

const (
	StageBegin Stage = iota + 1
	StageEnd
)

func (s Stage) String() string {
	switch s {
	case StageBegin:
		return "begin"
	case StageEnd:
		return "end"
	}
	return "none"
}

// Composition is the payload of the wrapper animations that bind an
// off-screen target before a scene's content and resolve it afterwards.
type Composition struct {
	Target string
	Stage  Stage
	Params map[string]any
}

// Clone returns a deep copy; wrappers of different scenes never share maps.
func (c *Composition) Clone() *Composition {
	if c == nil {
		return nil
	}
	out := *c
	if c.Params != nil {
		out.Params = cloneMap(c.Params)
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case []float64:
		return append([]float64(nil), x...)
	}
	return v
}

// Animation is one unit of scene content.
type Animation struct {
	Name     string
	Layer    layer.Layer
	Start    float64
	Duration *float64 // nil = lasts as long as the scene
	Effect   string
	Resource string

	Sync        *syncengine.Binding
	Composition *Composition
	Params      map[string]expr.Value
}

func (a *Animation) window() timeline.Window {
	return timeline.Window{Start: a.Start, Duration: a.Duration}
}

// Options tune scene creation. They only apply to the first registration.
type Options struct {
	NoComposition bool
	Init          string
}

type Scene struct {
	Name        string
	Init        string
	Composition bool

	anims *timeline.Timeline[*Animation]
}

// ActiveAt returns the animations live at scene-local time t, draw order.
func (s *Scene) ActiveAt(t float64) []*timeline.Activation[*Animation] {
	return s.anims.ActiveAt(t)
}

func (s *Scene) Animations() []*timeline.Activation[*Animation] {
	return s.anims.All()
}

func (s *Scene) Add(a *Animation) *timeline.Activation[*Animation] {
	return s.anims.Add(a.Layer, a.window(), a)
}

// Templates are copied into each new scene's wrapper animations. A nil
// template disables that wrapper.
type Templates struct {
	Begin *Composition
	End   *Composition
}

// DefaultTemplates uses target as the off-screen name; "{scene}" expands
// to the scene name.
func DefaultTemplates(target string) Templates {
	return Templates{
		Begin: &Composition{Target: target, Stage: StageBegin},
		End:   &Composition{Target: target, Stage: StageEnd},
	}
}

type Registry struct {
	scenes    map[string]*Scene
	order     []string
	active    *Scene
	templates Templates
	log       *zap.Logger
}

func NewRegistry(templates Templates, log *zap.Logger) *Registry {
	return &Registry{
		scenes:    make(map[string]*Scene),
		templates: templates,
		log:       log,
	}
}

// GetOrCreate returns the scene called name, creating it on first use.
// Options of later calls are ignored.
func (r *Registry) GetOrCreate(name string, opts Options) *Scene {
	if s, ok := r.scenes[name]; ok {
		return s
	}

	s := &Scene{
		Name:        name,
		Init:        opts.Init,
		Composition: !opts.NoComposition,
		anims:       timeline.New[*Animation](r.log),
	}
	if s.Composition {
		r.wrap(s)
	}
	r.scenes[name] = s
	r.order = append(r.order, name)
	r.log.Debug("scene created", zap.String("scene", name), zap.Bool("composition", s.Composition))
	return s
}

func (r *Registry) wrap(s *Scene) {
	if c := r.templates.Begin.Clone(); c != nil {
		c.Target = strings.ReplaceAll(c.Target, "{scene}", s.Name)
		s.Add(&Animation{Name: "composition.begin", Layer: layer.Num(layer.Min), Composition: c})
	}
	if c := r.templates.End.Clone(); c != nil {
		c.Target = strings.ReplaceAll(c.Target, "{scene}", s.Name)
		s.Add(&Animation{Name: "composition.end", Layer: layer.Num(layer.Max), Composition: c})
	}
}

// SetActive selects the scene that AddAnimation targets.
func (r *Registry) SetActive(name string, opts Options) *Scene {
	r.active = r.GetOrCreate(name, opts)
	return r.active
}

// AddAnimation schedules a in the active scene, creating DefaultName
// without composition when nothing is active.
func (r *Registry) AddAnimation(a *Animation) *timeline.Activation[*Animation] {
	if r.active == nil {
		r.SetActive(DefaultName, Options{NoComposition: true})
	}
	return r.active.Add(a)
}

func (r *Registry) Get(name string) (*Scene, bool) {
	s, ok := r.scenes[name]
	return s, ok
}

func (r *Registry) Active() *Scene { return r.active }

// Names returns scene names in creation order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.scenes) }

func (r *Registry) Reset() {
	r.scenes = make(map[string]*Scene)
	r.order = nil
	r.active = nil
}
