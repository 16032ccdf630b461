package data

import (
	"path/filepath"
	"testing"

	"github.com/jmlt/demoplayer/internal/expr"
	"github.com/jmlt/demoplayer/internal/layer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDemo(t *testing.T) {
	d, err := LoadDemo(filepath.Join("testdata", "demo.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sample", d.Name)
	assert.Equal(t, 2, d.SceneCount())
	assert.Equal(t, 3, d.AnimationCount())
	assert.Equal(t, 2, d.SyncCount())
	assert.Equal(t, []string{"logo.png", "intro.fs"}, d.Resources)
	assert.Equal(t, []string{"Main"}, d.Effects)

	intro := d.Scenes[0]
	assert.True(t, intro.NoComposition())
	assert.False(t, d.Scenes[1].NoComposition(), "composition defaults to on")
	assert.Equal(t, "outro_init", d.Scenes[1].Init)

	logo := intro.Animations[0]
	assert.Equal(t, layer.Num(5), logo.Layer)
	require.NotNil(t, logo.Duration)
	assert.Equal(t, 10.0, *logo.Duration)
	assert.Equal(t, "beat", logo.Sync)
	assert.Equal(t, expr.Literal(2), logo.Params["scale"])
	assert.Equal(t, expr.List(0, 0.5, 0), logo.Params["position"])
	assert.Equal(t, expr.Named("progress * 360"), logo.Params["angle"])
	assert.True(t, intro.Animations[1].Layer.IsOpaque())

	require.Len(t, d.Timeline, 2)
	assert.Nil(t, d.Timeline[1].Duration)
	assert.Equal(t, 20.0, d.Timeline[1].Start)

	beat := d.Sync[0]
	assert.False(t, beat.IsRocket())
	assert.Equal(t, "beat_start", beat.OnStart)
	require.Len(t, beat.Patterns, 1)
	assert.Equal(t, "beat_run", beat.Patterns[0].OnRun)
	assert.Equal(t, 50.0, *beat.Patterns[0].End)
	assert.True(t, d.Sync[1].IsRocket())
}

func TestParseDemo_Validation(t *testing.T) {
	src := `
scenes:
  - animations: []
timeline:
  - scene: Missing
sync:
  - name: x
    type: midi
`
	_, err := ParseDemo([]byte(src))
	require.Error(t, err)
	assert.ErrorContains(t, err, "scene 0: missing name")
	assert.ErrorContains(t, err, `unknown scene "Missing"`)
	assert.ErrorContains(t, err, `unknown type "midi"`)
}

func TestLoadDemo_Errors(t *testing.T) {
	_, err := LoadDemo(filepath.Join("testdata", "nope.yaml"))
	assert.ErrorContains(t, err, "read demo definition")

	_, err = ParseDemo([]byte("scenes: {"))
	assert.ErrorContains(t, err, "parse demo definition")
}
