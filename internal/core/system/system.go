package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseClock  Phase = iota // 0: advance demo time, move the tracker row
	PhaseEvents              // 1: deliver last frame's events
	PhaseUpdate              // 2: resource readiness, end-of-demo checks
	PhaseDraw                // 3: run effects, dispatch animations
	PhaseStats               // 4: frame counters
	PhasePersist             // 5: store edited tracker tracks

	numPhases = int(PhasePersist) + 1
)

// Phases lists every phase in execution order.
func Phases() []Phase {
	out := make([]Phase, numPhases)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

func (p Phase) String() string {
	switch p {
	case PhaseClock:
		return "clock"
	case PhaseEvents:
		return "events"
	case PhaseUpdate:
		return "update"
	case PhaseDraw:
		return "draw"
	case PhaseStats:
		return "stats"
	case PhasePersist:
		return "persist"
	}
	return "unknown"
}

// System is one stage of the frame loop.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a function to a System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
