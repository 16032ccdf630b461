package player

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/jmlt/demoplayer/internal/expr"
	"github.com/jmlt/demoplayer/internal/scene"
	"github.com/jmlt/demoplayer/internal/syncengine"
	"go.uber.org/zap"
)

// trace collects renderer calls and script callbacks in firing order.
type trace struct {
	b strings.Builder
}

func (tr *trace) line(format string, args ...any) {
	fmt.Fprintf(&tr.b, format+"\n", args...)
}

func (tr *trace) String() string { return tr.b.String() }

type recorder struct {
	tr *trace
}

func (r recorder) BeginComposition(c *scene.Composition, call DrawCall) {
	r.tr.line("  begin %s scene_t=%g", c.Target, call.SceneTime)
}

func (r recorder) EndComposition(c *scene.Composition, call DrawCall) {
	r.tr.line("  end %s scene_t=%g", c.Target, call.SceneTime)
}

func (r recorder) Draw(call DrawCall) {
	var b strings.Builder
	fmt.Fprintf(&b, "  draw %s/%s key=%s scene_t=%g progress=%g",
		call.Scene, call.Animation.Name, call.Key, call.SceneTime, call.Progress)
	if call.Synced {
		b.WriteString(" synced")
	}
	for _, k := range sortedKeys(call.Values) {
		fmt.Fprintf(&b, " %s=%v", k, call.Values[k].Values)
	}
	r.tr.line("%s", b.String())
}

func sortedKeys(m map[string]expr.Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fakeScripts resolves "progress" and "time", fails "broken" and records
// callbacks and init calls.
type fakeScripts struct {
	tr    *trace
	calls []string
}

func (f *fakeScripts) Resolve(ctx expr.Context, name string) (expr.Result, error) {
	switch name {
	case "progress":
		return expr.Scalar(ctx.Progress), nil
	case "time":
		return expr.Scalar(ctx.Time), nil
	case "broken":
		return expr.Result{}, errors.New("boom")
	}
	return expr.Result{}, fmt.Errorf("unknown expression %q", name)
}

func (f *fakeScripts) Callback(name string) syncengine.Callback {
	if name == "" {
		return nil
	}
	return func(ev syncengine.Event) {
		if f.tr != nil {
			f.tr.line("  event %s %s %s progress=%g", name, ev.Phase, ev.Track, ev.Progress)
		}
	}
}

func (f *fakeScripts) Call(name string) bool {
	f.calls = append(f.calls, name)
	return true
}

func newTestContext(t *testing.T, scripts Scripts, r Renderer, log *zap.Logger) *Context {
	t.Helper()
	if log == nil {
		log = zap.NewNop()
	}
	ctx := NewContext(Options{
		Scripts:   scripts,
		Renderer:  r,
		Templates: scene.DefaultTemplates("fbo.{scene}"),
	}, log)
	t.Cleanup(ctx.Close)
	return ctx
}

func ptr(f float64) *float64 { return &f }
