// Package syncengine turns demo time into [0,1] progress values for named
// sync tracks.
//
// A track is either self-timed (a list of patterns sharing the track end as
// modulo base, each with its own Idle/Active state) or external (progress is
// read from a Source such as a Rocket track). The engine is confined to the
// frame-update goroutine; it never blocks and never returns errors from the
// query path. Malformed definitions are rejected at registration with a
// diagnostic.
package syncengine

import (
	"math"

	"go.uber.org/zap"
)

// Source is an externally driven value, e.g. a tracker track.
type Source interface {
	CurrentValue() float64
}

// Phase identifies which transition a callback is fired for.
type Phase uint8

const (
	PhaseStart Phase = iota
	PhaseRun
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseRun:
		return "run"
	case PhaseEnd:
		return "end"
	}
	return "unknown"
}

// Event is passed to callbacks. Pattern is -1 for external tracks.
type Event struct {
	Track    string
	Pattern  int
	Phase    Phase
	Time     float64
	Progress float64
	Binding  *Binding
}

type Callback func(Event)

// Callbacks are resolved pattern first, then track, then none.
type Callbacks struct {
	Start Callback
	Run   Callback
	End   Callback
}

func (c Callbacks) pick(p Phase) Callback {
	switch p {
	case PhaseStart:
		return c.Start
	case PhaseRun:
		return c.Run
	case PhaseEnd:
		return c.End
	}
	return nil
}

// Binding attaches an animation to a track. Progress is rewritten on every
// Calculate call and never persisted.
type Binding struct {
	Track    string
	Progress float64
	Target   any
}

// PatternDefinition is a sub-window of a track period. Any of Start, End
// and Duration may be nil; missing values are filled at registration.
type PatternDefinition struct {
	Start    *float64
	End      *float64
	Duration *float64
	Callbacks
}

// Definition describes one track. Source selects external mode.
type Definition struct {
	Name     string
	Start    *float64
	End      *float64
	Duration *float64
	Source   Source
	Patterns []PatternDefinition
	Callbacks
}

type pattern struct {
	start, end, duration float64
	cb                   Callbacks

	started   bool
	startTime float64
}

type track struct {
	name                 string
	start, end, duration float64
	source               Source
	patterns             []*pattern
	cb                   Callbacks

	started bool // external mode only
}

// Engine is the process-wide track registry.
type Engine struct {
	tracks  map[string]*track
	order   []string
	missing map[string]bool
	log     *zap.Logger
}

func New(log *zap.Logger) *Engine {
	return &Engine{
		tracks:  make(map[string]*track),
		missing: make(map[string]bool),
		log:     log,
	}
}

// window fills start/end/duration. End wins over Duration when both are set.
func window(start, end, duration *float64, defStart, defDuration float64) (s, e, d float64) {
	s = defStart
	if start != nil {
		s = *start
	}
	switch {
	case end != nil:
		e = *end
		d = e - s
	case duration != nil:
		d = *duration
		e = s + d
	default:
		d = defDuration
		e = s + d
	}
	return s, e, d
}

// Register preprocesses and installs track definitions in order and returns
// how many were accepted. A track without an explicit start continues where
// the previous definition ended. Re-registering a name replaces the old
// track and its state.
func (e *Engine) Register(defs ...Definition) int {
	var prevEnd, prevDuration float64
	accepted := 0

	for _, def := range defs {
		start, end, duration := window(def.Start, def.End, def.Duration, prevEnd, prevDuration)
		prevEnd, prevDuration = end, duration

		if def.Name == "" {
			e.log.Error("sync track rejected, empty name")
			continue
		}

		tr := &track{
			name:     def.Name,
			start:    start,
			end:      end,
			duration: duration,
			source:   def.Source,
			cb:       def.Callbacks,
		}

		if def.Source != nil {
			if len(def.Patterns) > 0 {
				e.log.Warn("sync track has an external source, patterns ignored",
					zap.String("track", def.Name),
					zap.Int("patterns", len(def.Patterns)))
			}
		} else {
			if !(end > 0) {
				e.log.Error("sync track rejected, end must be positive",
					zap.String("track", def.Name),
					zap.Float64("end", end))
				continue
			}
			tr.patterns = e.preparePatterns(def.Name, start, duration, def.Patterns)
			if len(tr.patterns) == 0 {
				e.log.Error("sync track rejected, no valid patterns", zap.String("track", def.Name))
				continue
			}
		}

		if _, exists := e.tracks[def.Name]; !exists {
			e.order = append(e.order, def.Name)
		}
		e.tracks[def.Name] = tr
		delete(e.missing, def.Name)
		accepted++

		e.log.Debug("sync track added",
			zap.String("track", def.Name),
			zap.Float64("start", start),
			zap.Float64("end", end),
			zap.Bool("external", def.Source != nil),
			zap.Int("patterns", len(tr.patterns)))
	}
	return accepted
}

// preparePatterns places patterns back to back from the track start.
func (e *Engine) preparePatterns(name string, trackStart, trackDuration float64, defs []PatternDefinition) []*pattern {
	if len(defs) == 0 {
		d := trackDuration
		defs = []PatternDefinition{{Start: &trackStart, Duration: &d}}
	}

	share := trackDuration / float64(len(defs))
	cursor := trackStart
	out := make([]*pattern, 0, len(defs))
	for i, pd := range defs {
		s, end, d := window(pd.Start, pd.End, pd.Duration, cursor, share)
		cursor = end
		if !(d > 0) || math.IsInf(d, 0) {
			e.log.Error("sync pattern rejected, duration must be positive",
				zap.String("track", name),
				zap.Int("pattern", i),
				zap.Float64("duration", d))
			continue
		}
		out = append(out, &pattern{start: s, end: end, duration: d, cb: pd.Callbacks})
	}
	return out
}

func (e *Engine) lookup(name string) *track {
	tr, ok := e.tracks[name]
	if ok {
		return tr
	}
	if e.missing[name] {
		e.log.Debug("sync track not found", zap.String("track", name))
	} else {
		e.missing[name] = true
		e.log.Warn("sync track not found", zap.String("track", name))
	}
	return nil
}

func fire(primary, fallback Callbacks, ev Event) {
	if cb := primary.pick(ev.Phase); cb != nil {
		cb(ev)
		return
	}
	if cb := fallback.pick(ev.Phase); cb != nil {
		cb(ev)
	}
}

// Calculate advances the bound track to demo time t, fires due callbacks,
// stores the progress in b and returns it. Unknown tracks yield 0.
func (e *Engine) Calculate(t float64, b *Binding) float64 {
	if b == nil {
		return 0
	}
	b.Progress = 0
	tr := e.lookup(b.Track)
	if tr == nil {
		return 0
	}

	if tr.source != nil {
		b.Progress = tr.source.CurrentValue()
		ev := Event{Track: tr.name, Pattern: -1, Time: t, Progress: b.Progress, Binding: b}
		if !tr.started {
			tr.started = true
			if tr.cb.Start != nil {
				ev.Phase = PhaseStart
				tr.cb.Start(ev)
			}
		}
		if tr.cb.Run != nil {
			ev.Phase = PhaseRun
			tr.cb.Run(ev)
		}
		return b.Progress
	}

	syncTime := math.Mod(t, tr.end)
	for i, p := range tr.patterns {
		ev := Event{Track: tr.name, Pattern: i, Time: t, Binding: b}

		if syncTime >= p.start && syncTime < p.end {
			b.Progress = clamp01((syncTime - p.start) / p.duration)
			ev.Progress = b.Progress
			if !p.started {
				p.started = true
				p.startTime = t
				ev.Phase = PhaseStart
				fire(p.cb, tr.cb, ev)
			}
			ev.Phase = PhaseRun
			fire(p.cb, tr.cb, ev)
		}

		// Leaving the window by time running past the pattern, or by a
		// backward seek before the captured start, ends the pattern.
		if p.started && (t >= p.startTime+p.duration || p.startTime > t) {
			p.started = false
			b.Progress = 0
			ev.Phase = PhaseEnd
			ev.Progress = 0
			fire(p.cb, tr.cb, ev)
		}
	}
	return b.Progress
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Progress is Calculate with a throwaway binding.
func (e *Engine) Progress(name string, t float64) float64 {
	return e.Calculate(t, &Binding{Track: name})
}

// Value reads an external track directly.
func (e *Engine) Value(name string) float64 {
	tr, ok := e.tracks[name]
	if !ok || tr.source == nil {
		e.log.Warn("sync track not found", zap.String("track", name))
		return 0
	}
	return tr.source.CurrentValue()
}

// PatternInfo is a read-only view of a preprocessed pattern.
type PatternInfo struct {
	Start, End, Duration float64
	Started              bool
}

// TrackInfo is a read-only view of a registered track.
type TrackInfo struct {
	Name                 string
	Start, End, Duration float64
	External             bool
	Patterns             []PatternInfo
}

func (e *Engine) Track(name string) (TrackInfo, bool) {
	tr, ok := e.tracks[name]
	if !ok {
		return TrackInfo{}, false
	}
	info := TrackInfo{
		Name:     tr.name,
		Start:    tr.start,
		End:      tr.end,
		Duration: tr.duration,
		External: tr.source != nil,
	}
	for _, p := range tr.patterns {
		info.Patterns = append(info.Patterns, PatternInfo{
			Start: p.start, End: p.end, Duration: p.duration, Started: p.started,
		})
	}
	return info, true
}

// Names returns track names in first-registration order.
func (e *Engine) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

func (e *Engine) Len() int { return len(e.tracks) }

// Reset drops every track.
func (e *Engine) Reset() {
	e.tracks = make(map[string]*track)
	e.missing = make(map[string]bool)
	e.order = nil
}
