package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each frame. Systems sharing a
// phase run in registration order. The wall time spent in each phase of
// the last frame is kept for frame statistics.
type Runner struct {
	systems []System
	sorted  bool
	now     func() time.Time
	spent   [numPhases]time.Duration
	frames  uint64
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
		now:     time.Now,
	}
}

// SetClock replaces the wall clock used for phase timings.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

func (r *Runner) Register(systems ...System) {
	r.systems = append(r.systems, systems...)
	r.sorted = false
}

// Tick runs one frame.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	r.spent = [numPhases]time.Duration{}
	for _, s := range r.systems {
		r.run(s, dt)
	}
	r.frames++
}

// TickPhase runs only the systems of one phase. It does not count as a frame.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			r.run(s, dt)
		}
	}
}

func (r *Runner) run(s System, dt time.Duration) {
	start := r.now()
	s.Update(dt)
	if p := s.Phase(); p >= 0 && int(p) < numPhases {
		r.spent[p] += r.now().Sub(start)
	}
}

// PhaseTime is the wall time the phase took in the last frame.
func (r *Runner) PhaseTime(p Phase) time.Duration {
	if p < 0 || int(p) >= numPhases {
		return 0
	}
	return r.spent[p]
}

// Frames counts completed Tick calls.
func (r *Runner) Frames() uint64 { return r.frames }

func (r *Runner) Len() int { return len(r.systems) }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
