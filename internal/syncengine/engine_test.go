package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func f(v float64) *float64 { return &v }

type recorder struct {
	events []Event
}

func (r *recorder) cb(tag string) Callback {
	return func(ev Event) {
		ev.Binding = nil
		ev.Track = tag
		r.events = append(r.events, ev)
	}
}

func (r *recorder) phases() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Track + ":" + ev.Phase.String()
	}
	return out
}

func (r *recorder) count(p Phase) int {
	n := 0
	for _, ev := range r.events {
		if ev.Phase == p {
			n++
		}
	}
	return n
}

type fixedSource struct{ v float64 }

func (s *fixedSource) CurrentValue() float64 { return s.v }

func TestPatternProgressAndWraparound(t *testing.T) {
	e := New(zap.NewNop())
	rec := &recorder{}
	n := e.Register(Definition{
		Name:     "beat",
		Start:    f(0),
		End:      f(100),
		Patterns: []PatternDefinition{{Start: f(0), End: f(50)}},
		Callbacks: Callbacks{
			Start: rec.cb("track"),
			End:   rec.cb("track"),
		},
	})
	require.Equal(t, 1, n)

	b := &Binding{Track: "beat"}
	assert.Equal(t, 0.0, e.Calculate(0, b))
	assert.Equal(t, 0.5, e.Calculate(25, b))
	assert.Equal(t, 0.5, b.Progress)
	assert.InDelta(t, 0.98, e.Calculate(49, b), 1e-9)
	assert.Equal(t, 1, rec.count(PhaseStart), "start fires once on entry")
	assert.Zero(t, rec.count(PhaseEnd))

	assert.Equal(t, 0.0, e.Calculate(60, b))
	assert.Equal(t, 0.0, e.Calculate(70, b))
	assert.Equal(t, 1, rec.count(PhaseEnd), "end fires once on exit")

	assert.Equal(t, 0.5, e.Calculate(125, b))
	assert.Equal(t, 2, rec.count(PhaseStart))
	assert.Equal(t, 125.0, rec.events[len(rec.events)-1].Time)
}

func TestRunFiresEveryQuery(t *testing.T) {
	e := New(zap.NewNop())
	rec := &recorder{}
	e.Register(Definition{
		Name:      "pulse",
		End:       f(10),
		Callbacks: Callbacks{Run: rec.cb("track")},
	})
	for _, tm := range []float64{1, 1, 1, 2} {
		e.Progress("pulse", tm)
	}
	assert.Equal(t, 4, rec.count(PhaseRun))
	assert.Equal(t, 0.2, rec.events[3].Progress)
}

func TestCallbackResolution(t *testing.T) {
	e := New(zap.NewNop())
	rec := &recorder{}
	e.Register(Definition{
		Name: "mix",
		End:  f(20),
		Patterns: []PatternDefinition{
			{Start: f(0), Duration: f(10), Callbacks: Callbacks{Start: rec.cb("p0"), End: rec.cb("p0")}},
			{Start: f(10), Duration: f(10)},
		},
		Callbacks: Callbacks{Start: rec.cb("track"), End: rec.cb("track")},
	})

	b := &Binding{Track: "mix"}
	e.Calculate(1, b)
	e.Calculate(11, b)
	e.Calculate(19, b)
	e.Calculate(21, b)

	assert.Equal(t, []string{
		"p0:start",
		"p0:end",
		"track:start",
		"p0:start",
		"track:end",
	}, rec.phases())
}

func TestBackwardSeekEndsPattern(t *testing.T) {
	e := New(zap.NewNop())
	rec := &recorder{}
	e.Register(Definition{
		Name:      "seek",
		End:       f(100),
		Patterns:  []PatternDefinition{{Start: f(0), End: f(50)}},
		Callbacks: Callbacks{Start: rec.cb("t"), End: rec.cb("t")},
	})
	b := &Binding{Track: "seek"}
	e.Calculate(30, b)
	assert.Equal(t, 0.0, e.Calculate(20, b), "rewind ends the pattern")
	assert.Equal(t, []string{"t:start", "t:end"}, rec.phases())

	assert.Equal(t, 0.42, e.Calculate(21, b))
	assert.Equal(t, []string{"t:start", "t:end", "t:start"}, rec.phases())
}

func TestOverlappingPatternsAreIndependent(t *testing.T) {
	e := New(zap.NewNop())
	e.Register(Definition{
		Name: "layers",
		End:  f(100),
		Patterns: []PatternDefinition{
			{Start: f(0), End: f(100)},
			{Start: f(10), End: f(30)},
		},
	})
	b := &Binding{Track: "layers"}
	e.Calculate(0, b)
	assert.Equal(t, 0.5, e.Calculate(20, b))
	info, ok := e.Track("layers")
	require.True(t, ok)
	assert.True(t, info.Patterns[0].Started)
	assert.True(t, info.Patterns[1].Started)
}

func TestPreprocessing(t *testing.T) {
	e := New(zap.NewNop())
	n := e.Register(
		Definition{Name: "a", Start: f(0), Duration: f(8), Patterns: make([]PatternDefinition, 4)},
		Definition{Name: "b", Duration: f(6)},
		Definition{Name: "c", End: f(30), Patterns: []PatternDefinition{{Duration: f(2)}, {}}},
	)
	require.Equal(t, 3, n)

	a, _ := e.Track("a")
	require.Len(t, a.Patterns, 4)
	for i, p := range a.Patterns {
		assert.Equal(t, float64(2*i), p.Start)
		assert.Equal(t, 2.0, p.Duration)
	}

	b, _ := e.Track("b")
	assert.Equal(t, 8.0, b.Start, "start continues at previous end")
	assert.Equal(t, 14.0, b.End)
	require.Len(t, b.Patterns, 1)
	assert.Equal(t, PatternInfo{Start: 8, End: 14, Duration: 6}, b.Patterns[0])

	c, _ := e.Track("c")
	assert.Equal(t, 14.0, c.Start)
	assert.Equal(t, 16.0, c.Duration)
	assert.Equal(t, PatternInfo{Start: 14, End: 16, Duration: 2}, c.Patterns[0])
	assert.Equal(t, PatternInfo{Start: 16, End: 24, Duration: 8}, c.Patterns[1])

	assert.Equal(t, []string{"a", "b", "c"}, e.Names())
}

func TestRejectsNonPositiveDurations(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := New(zap.New(core))

	n := e.Register(
		Definition{Name: "zero", End: f(10), Patterns: []PatternDefinition{{Start: f(0), Duration: f(0)}}},
		Definition{Name: "neg", Start: f(0), End: f(10), Patterns: []PatternDefinition{
			{Start: f(5), End: f(2)},
			{Start: f(0), End: f(5)},
		}},
		Definition{Name: "noend", Start: f(0), End: f(0)},
	)
	assert.Equal(t, 1, n)

	_, ok := e.Track("zero")
	assert.False(t, ok)
	neg, ok := e.Track("neg")
	require.True(t, ok)
	assert.Len(t, neg.Patterns, 1)
	_, ok = e.Track("noend")
	assert.False(t, ok)

	assert.Equal(t, 2, logs.FilterMessage("sync pattern rejected, duration must be positive").Len())
	assert.Equal(t, 1, logs.FilterMessage("sync track rejected, no valid patterns").Len())
	assert.Equal(t, 1, logs.FilterMessage("sync track rejected, end must be positive").Len())
}

func TestExternalMode(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := New(zap.New(core))
	src := &fixedSource{v: 0.25}
	rec := &recorder{}
	e.Register(Definition{
		Name:      "rocket",
		Source:    src,
		Patterns:  []PatternDefinition{{Start: f(0), End: f(1)}},
		Callbacks: Callbacks{Start: rec.cb("r"), Run: rec.cb("r"), End: rec.cb("r")},
	})
	assert.Equal(t, 1, logs.FilterMessage("sync track has an external source, patterns ignored").Len())

	b := &Binding{Track: "rocket"}
	assert.Equal(t, 0.25, e.Calculate(0, b))
	src.v = 3.5
	assert.Equal(t, 3.5, e.Calculate(1000, b))
	e.Calculate(-5, b)

	assert.Equal(t, []string{"r:start", "r:run", "r:run", "r:run"}, rec.phases())
	assert.Equal(t, -1, rec.events[0].Pattern)
	assert.Equal(t, 3.5, e.Value("rocket"))

	// re-registration resets the once-per-lifetime start
	e.Register(Definition{Name: "rocket", Source: src, Callbacks: Callbacks{Start: rec.cb("r2")}})
	e.Calculate(0, b)
	assert.Equal(t, "r2:start", rec.phases()[4])
	assert.Equal(t, []string{"rocket"}, e.Names())
}

func TestUnknownTrack(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := New(zap.New(core))

	b := &Binding{Track: "ghost", Progress: 0.7}
	assert.Equal(t, 0.0, e.Calculate(5, b))
	assert.Equal(t, 0.0, b.Progress)
	assert.Equal(t, 0.0, e.Progress("ghost", 6))
	assert.Equal(t, 0.0, e.Calculate(1, nil))

	missing := logs.FilterMessage("sync track not found").All()
	require.Len(t, missing, 2)
	assert.Equal(t, zapcore.WarnLevel, missing[0].Level)
	assert.Equal(t, zapcore.DebugLevel, missing[1].Level)

	assert.Equal(t, 0.0, e.Value("pattern-or-missing"))
}

func TestReset(t *testing.T) {
	e := New(zap.NewNop())
	e.Register(Definition{Name: "x", End: f(1)})
	require.Equal(t, 1, e.Len())
	e.Reset()
	assert.Zero(t, e.Len())
	assert.Empty(t, e.Names())
}
