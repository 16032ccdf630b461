package player

import (
	"testing"

	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/layer"
	"github.com/jmlt/demoplayer/internal/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoader_SceneOrderAndComposition(t *testing.T) {
	ctx := newTestContext(t, nil, nil, nil)
	l := NewLoader(ctx, zap.NewNop())

	l.SetScene("A", scene.Options{NoComposition: true})
	l.SetScene("B", scene.Options{NoComposition: true})
	l.AddSceneToTimeline(
		data.TimelineEntry{Scene: "A", Layer: layer.Num(5)},
		data.TimelineEntry{Scene: "B", Layer: layer.Num(1)},
	)

	var names []string
	for _, a := range l.ActiveAt(0) {
		names = append(names, a.Value)
	}
	assert.Equal(t, []string{"B", "A"}, names)

	c := l.SetScene("C", scene.Options{})
	l.AddAnimation(&scene.Animation{Name: "content", Layer: layer.Num(3)})

	var keys []layer.Key
	var anims []string
	for _, a := range c.ActiveAt(0) {
		keys = append(keys, a.Key)
		anims = append(anims, a.Value.Name)
	}
	assert.Equal(t, []layer.Key{"000000", "000003", "099999"}, keys)
	assert.Equal(t, []string{"composition.begin", "content", "composition.end"}, anims)
	assert.Equal(t, "fbo.C", c.ActiveAt(0)[0].Value.Composition.Target)

	a, _ := l.Scenes().Get("A")
	assert.Empty(t, a.Animations(), "no wrappers without composition")
}

func TestLoader_AnimationWithoutSceneGoesToDefault(t *testing.T) {
	ctx := newTestContext(t, nil, nil, nil)
	l := NewLoader(ctx, zap.NewNop())

	l.AddAnimation(&scene.Animation{Name: "lonely"})
	s, ok := l.Scenes().Get(scene.DefaultName)
	require.True(t, ok)
	assert.False(t, s.Composition)
	require.Len(t, s.Animations(), 1)
	assert.Equal(t, layer.Key("000001"), s.Animations()[0].Key)
}

func TestLoader_ProcessAnimationDefaultTimeline(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	scripts := &fakeScripts{}
	ctx := newTestContext(t, scripts, nil, nil)
	l := NewLoader(ctx, zap.New(core))

	l.SetScene("X", scene.Options{NoComposition: true, Init: "x_init"})
	l.AddAnimation(&scene.Animation{Name: "tex", Resource: "tex.png"})
	l.AddAnimation(&scene.Animation{Name: "tex2", Resource: "tex.png"})
	l.SetScene("Y", scene.Options{NoComposition: true})

	l.ProcessAnimation()
	require.Equal(t, 2, l.Timeline().Len())
	var names []string
	for _, a := range l.ActiveAt(1000) {
		names = append(names, a.Value)
		assert.Equal(t, layer.Key("000001"), a.Key)
	}
	assert.Equal(t, []string{"X", "Y"}, names)
	assert.Equal(t, 1, logs.FilterMessage("no timeline defined, adding default timeline").Len())

	assert.Equal(t, []string{"x_init"}, scripts.calls)
	completed, expected := ctx.Resources.Counts()
	assert.Equal(t, int64(0), completed)
	assert.Equal(t, int64(1), expected)
	assert.True(t, l.NotifyResourceLoaded("tex.png"))
	assert.False(t, l.NotifyResourceLoaded("tex.png"))

	l.ProcessAnimation()
	assert.Equal(t, 2, l.Timeline().Len(), "fallback only applies to an empty timeline")
}

func TestLoader_InitWithoutScripts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := newTestContext(t, nil, nil, nil)
	l := NewLoader(ctx, zap.New(core))

	l.SetScene("X", scene.Options{Init: "x_init"})
	l.ProcessAnimation()
	assert.Equal(t, 1, logs.FilterMessage("scene init function ignored, no scripts loaded").Len())
}

func TestLoader_DeinitAnimation(t *testing.T) {
	ctx := newTestContext(t, nil, nil, nil)
	l := NewLoader(ctx, zap.NewNop())

	l.SetScene("X", scene.Options{})
	l.AddSceneToTimeline(data.TimelineEntry{Scene: "X"})
	l.DeinitAnimation()

	assert.Zero(t, l.Scenes().Len())
	assert.True(t, l.Timeline().Empty())
	assert.Nil(t, l.Scenes().Active())
}
