package system

import (
	"math"
	"time"

	"github.com/jmlt/demoplayer/internal/core/event"
	coresys "github.com/jmlt/demoplayer/internal/core/system"
	"github.com/jmlt/demoplayer/internal/player"
	"github.com/jmlt/demoplayer/internal/rocket"
	"go.uber.org/zap"
)

// EndSystem stops or loops playback at the configured end time.
// Phase 2 (Update). An end time of 0 plays forever. A loop rewind moves
// the tracker row along with the timer.
type EndSystem struct {
	timer    *player.Timer
	device   *rocket.Device
	bus      *event.Bus
	endTime  float64
	loop     bool
	finished bool
	log      *zap.Logger
}

func NewEndSystem(timer *player.Timer, device *rocket.Device, bus *event.Bus, endTime float64, loop bool, log *zap.Logger) *EndSystem {
	return &EndSystem{timer: timer, device: device, bus: bus, endTime: endTime, loop: loop, log: log}
}

func (s *EndSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *EndSystem) Update(_ time.Duration) {
	if s.endTime <= 0 || s.finished {
		return
	}
	now := s.timer.Seconds()
	if now < s.endTime {
		return
	}
	if s.loop {
		s.timer.SetSeconds(math.Mod(now, s.endTime))
		if s.device != nil {
			s.device.Update(s.timer.Seconds())
		}
		s.log.Debug("demo looped", zap.Float64("time", now))
		return
	}
	s.finished = true
	s.timer.Pause(true)
	event.Emit(s.bus, event.DemoFinished{Time: now})
}
