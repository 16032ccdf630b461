package system

import (
	"time"

	coresys "github.com/jmlt/demoplayer/internal/core/system"
	"github.com/jmlt/demoplayer/internal/player"
	"github.com/jmlt/demoplayer/internal/rocket"
)

// ClockSystem advances demo time and moves the tracker row with it.
// Phase 0 (Clock).
type ClockSystem struct {
	timer  *player.Timer
	device *rocket.Device
}

func NewClockSystem(timer *player.Timer, device *rocket.Device) *ClockSystem {
	return &ClockSystem{timer: timer, device: device}
}

func (s *ClockSystem) Phase() coresys.Phase { return coresys.PhaseClock }

func (s *ClockSystem) Update(dt time.Duration) {
	s.timer.Advance(dt)
	if s.device != nil {
		s.device.Update(s.timer.Seconds())
	}
}
