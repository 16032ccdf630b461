package player

import "time"

// Timer is the demo clock. It only moves when advanced, so playback can be
// driven by wall time or by fixed steps.
type Timer struct {
	seconds float64
	bpm     float64
	paused  bool
}

func NewTimer(beatsPerMinute float64) *Timer {
	if beatsPerMinute <= 0 {
		beatsPerMinute = 120
	}
	return &Timer{bpm: beatsPerMinute}
}

// Advance moves the clock by dt unless paused.
func (t *Timer) Advance(dt time.Duration) {
	if t.paused {
		return
	}
	t.seconds += dt.Seconds()
}

func (t *Timer) Pause(paused bool) { t.paused = paused }

func (t *Timer) Paused() bool { return t.paused }

func (t *Timer) Seconds() float64 { return t.seconds }

func (t *Timer) SetSeconds(s float64) {
	if s < 0 {
		s = 0
	}
	t.seconds = s
}

func (t *Timer) Beats() float64 { return t.seconds * t.BeatsPerSecond() }

func (t *Timer) SetBeats(beats float64) { t.SetSeconds(beats * t.SecondsPerBeat()) }

func (t *Timer) BeatsPerMinute() float64 { return t.bpm }

func (t *Timer) BeatsPerSecond() float64 { return t.bpm / 60 }

func (t *Timer) SecondsPerBeat() float64 { return 60 / t.bpm }
