package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	tm := NewTimer(120)
	tm.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1.5, tm.Seconds())
	assert.Equal(t, 3.0, tm.Beats())

	tm.Pause(true)
	tm.Advance(time.Second)
	assert.Equal(t, 1.5, tm.Seconds(), "paused clock holds")
	assert.True(t, tm.Paused())

	tm.Pause(false)
	tm.SetBeats(8)
	assert.Equal(t, 4.0, tm.Seconds())
	assert.Equal(t, 0.5, tm.SecondsPerBeat())

	tm.SetSeconds(-3)
	assert.Zero(t, tm.Seconds())

	assert.Equal(t, 120.0, NewTimer(0).BeatsPerMinute())
}
