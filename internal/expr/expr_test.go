package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeResolver struct {
	calls []Context
}

func (f *fakeResolver) Resolve(ctx Context, name string) (Result, error) {
	f.calls = append(f.calls, ctx)
	return Result{Values: []float64{ctx.Progress * 2, float64(len(name))}}, nil
}

func TestEvaluate(t *testing.T) {
	r := &fakeResolver{}
	ev := NewEvaluator(r)
	ctx := Context{Scene: "Intro", Animation: "logo", Progress: 0.25, Time: 3}

	res, err := ev.Evaluate(ctx, Literal(4))
	require.NoError(t, err)
	assert.True(t, res.IsScalar())
	assert.Equal(t, 4.0, res.Scalar())

	res, err = ev.Evaluate(ctx, List(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, res.Values)

	res, err = ev.Evaluate(ctx, Named("abc"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 3}, res.Values)
	require.Len(t, r.calls, 1)
	assert.Equal(t, ctx, r.calls[0])

	res, err = ev.Evaluate(ctx, Value{})
	require.NoError(t, err)
	assert.Empty(t, res.Values)
	assert.Zero(t, res.Scalar())
}

func TestEvaluate_NoResolver(t *testing.T) {
	_, err := NewEvaluator(nil).Evaluate(Context{}, Named("x"))
	assert.ErrorIs(t, err, ErrNoResolver)
}

func TestList_CopiesInput(t *testing.T) {
	in := []float64{1, 2}
	v := List(in...)
	in[0] = 9
	res, _ := NewEvaluator(nil).Evaluate(Context{}, v)
	assert.Equal(t, []float64{1, 2}, res.Values)
}

func TestValue_UnmarshalYAML(t *testing.T) {
	var doc map[string]Value
	src := "scale: 2\nalpha: 0.5\npos: [0, 1.5, -2]\nspin: progress * 360\nnone: ~\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	assert.Equal(t, Literal(2), doc["scale"])
	assert.Equal(t, Literal(0.5), doc["alpha"])
	assert.Equal(t, List(0, 1.5, -2), doc["pos"])
	assert.Equal(t, KindNamed, doc["spin"].Kind())
	assert.Equal(t, "progress * 360", doc["spin"].Name())
	assert.True(t, doc["none"].IsNone())

	var bad map[string]Value
	assert.Error(t, yaml.Unmarshal([]byte("pos: [a, b]\n"), &bad))
}
