package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmlt/demoplayer/internal/core/event"
	coresys "github.com/jmlt/demoplayer/internal/core/system"
	"github.com/jmlt/demoplayer/internal/effect"
	"github.com/jmlt/demoplayer/internal/perf"
	"github.com/jmlt/demoplayer/internal/player"
	"github.com/jmlt/demoplayer/internal/rocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ticker is an effect that records the times it ran at.
type ticker struct {
	times *[]float64
}

func (t ticker) Name() string                  { return "ticker" }
func (t ticker) Run(_ effect.Host, at float64) { *t.times = append(*t.times, at) }
func (t ticker) PostInit(effect.Host) error    { return nil }
func (t ticker) Deinit(effect.Host)            {}

func newTicker(times *[]float64) effect.Factory {
	return func() effect.Effect { return ticker{times: times} }
}

func TestFrameLoop(t *testing.T) {
	log := zap.NewNop()
	ctx := player.NewContext(player.Options{}, log)
	defer ctx.Close()

	var ran []float64
	ctx.Effects.Register("ticker", newTicker(&ran))
	require.NoError(t, ctx.Effects.Init("ticker"))

	timer := player.NewTimer(120)
	ready := NewReadinessSystem(ctx.Resources, ctx.Bus, timer, log)

	runner := coresys.NewRunner()
	runner.Register(NewDrawSystem(ctx.Effects, timer))
	runner.Register(NewEndSystem(timer, ctx.Rocket, ctx.Bus, 1, false, log))
	runner.Register(ready)
	runner.Register(NewEventSystem(ctx.Bus))
	runner.Register(NewClockSystem(timer, ctx.Rocket))

	var loaded []event.ResourcesLoaded
	var finished []event.DemoFinished
	event.Subscribe(ctx.Bus, func(e event.ResourcesLoaded) { loaded = append(loaded, e) })
	event.Subscribe(ctx.Bus, func(e event.DemoFinished) { finished = append(finished, e) })

	ctx.Resources.AddNotifyResource("a.png")
	runner.Tick(250 * time.Millisecond)
	assert.False(t, ready.Ready())

	ctx.Resources.NotifyResourceLoaded("a.png")
	runner.Tick(250 * time.Millisecond)
	assert.True(t, ready.Ready())
	assert.Empty(t, loaded, "delivered on the next frame")

	runner.Tick(250 * time.Millisecond)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(1), loaded[0].Count)
	assert.Equal(t, 0.5, loaded[0].Time)

	runner.Tick(250 * time.Millisecond)
	runner.Tick(250 * time.Millisecond)
	assert.True(t, timer.Paused())
	runner.Tick(250 * time.Millisecond)
	require.Len(t, finished, 1)
	assert.Equal(t, 1.0, finished[0].Time)

	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1, 1, 1}, ran)
	assert.Equal(t, 16.0, ctx.Rocket.Row(), "row follows the clock at 120 bpm, 8 rows per beat")
	assert.Len(t, loaded, 1, "emitted once")
}

func TestEndSystem_Loop(t *testing.T) {
	bus := event.NewBus()
	timer := player.NewTimer(120)
	s := NewEndSystem(timer, nil, bus, 2, true, zap.NewNop())

	timer.SetSeconds(2.5)
	s.Update(0)
	assert.Equal(t, 0.5, timer.Seconds())
	assert.False(t, timer.Paused())
	assert.Zero(t, bus.Pending())
}

func TestEndSystem_LoopMovesTrackerRow(t *testing.T) {
	bus := event.NewBus()
	timer := player.NewTimer(120)
	dev := rocket.NewDevice(120, 8, zap.NewNop())
	dev.Track("cam").SetKeys([]rocket.Key{{Row: 0, Value: 0}, {Row: 32, Value: 32, Interp: rocket.Linear}})

	runner := coresys.NewRunner()
	runner.Register(NewClockSystem(timer, dev), NewEndSystem(timer, dev, bus, 2, true, zap.NewNop()))

	timer.SetSeconds(1.75)
	runner.Tick(500 * time.Millisecond)
	require.InDelta(t, 0.25, timer.Seconds(), 1e-9)
	assert.Equal(t, dev.RowAt(timer.Seconds()), dev.Row(), "row follows the rewound timer in the same frame")
	assert.InDelta(t, 4.0, dev.Row(), 1e-9)
}

func TestEndSystem_NoEnd(t *testing.T) {
	bus := event.NewBus()
	timer := player.NewTimer(120)
	timer.SetSeconds(1e6)
	NewEndSystem(timer, nil, bus, 0, false, zap.NewNop()).Update(0)
	assert.Zero(t, bus.Pending())
}

func TestStatsSystem(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	counter := perf.NewCounter(60, clock)
	s := NewStatsSystem(counter, nil, time.Second, clock, zap.NewNop())

	for i := 0; i < 30; i++ {
		now = now.Add(20 * time.Millisecond)
		s.Update(0)
	}
	st := s.Stats()
	assert.Equal(t, uint64(30), st.Frames)
	assert.Equal(t, 60.0, st.FPS, "target until a full window elapsed")

	for i := 0; i < 20; i++ {
		now = now.Add(20 * time.Millisecond)
		s.Update(0)
	}
	assert.Equal(t, 50.0, s.Stats().FPS)
}

type memStore struct {
	saved map[string][]rocket.Key
	fail  bool
}

func (m *memStore) Save(_ context.Context, name string, keys []rocket.Key) error {
	if m.fail {
		return errors.New("db down")
	}
	m.saved[name] = keys
	return nil
}

func TestPersistenceSystem(t *testing.T) {
	dev := rocket.NewDevice(120, 8, zap.NewNop())
	dev.Track("cam").SetKey(rocket.Key{Row: 0, Value: 1})
	dev.Track("fov").SetKey(rocket.Key{Row: 4, Value: 2})

	store := &memStore{saved: map[string][]rocket.Key{}}
	s := NewPersistenceSystem(dev, store, zap.NewNop(), 3)

	dev.Track("cam").SetKey(rocket.Key{Row: 8, Value: 3, Interp: rocket.Linear})
	s.Update(0)
	s.Update(0)
	assert.Empty(t, store.saved)
	s.Update(0)
	require.Len(t, store.saved, 1, "only the edited track is saved")
	assert.Len(t, store.saved["cam"], 2)

	assert.Zero(t, s.Flush(context.Background()), "unchanged tracks are skipped")

	dev.Track("fade").SetKey(rocket.Key{Row: 2, Value: 1})
	assert.Equal(t, 1, s.Flush(context.Background()), "new tracks are saved")
	assert.Contains(t, store.saved, "fade")

	store.fail = true
	dev.Track("fov").DeleteKey(4)
	assert.Zero(t, s.Flush(context.Background()))
	store.fail = false
	assert.Equal(t, 1, s.Flush(context.Background()), "failed saves retry")
}

func TestPersistenceSystem_LoadedTracksNotResaved(t *testing.T) {
	store := &memStore{saved: map[string][]rocket.Key{}}
	saves := 0
	for run := 0; run < 3; run++ {
		dev := rocket.NewDevice(120, 8, zap.NewNop())
		dev.Track("cam").SetKeys([]rocket.Key{{Row: 0, Value: 1}, {Row: 16, Value: 4}})

		s := NewPersistenceSystem(dev, store, zap.NewNop(), 1)
		s.Update(0)
		saves += s.Flush(context.Background())
	}
	assert.Zero(t, saves)
	assert.Empty(t, store.saved)
}
