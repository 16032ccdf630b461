package system

import (
	"time"

	"github.com/jmlt/demoplayer/internal/core/event"
	coresys "github.com/jmlt/demoplayer/internal/core/system"
	"github.com/jmlt/demoplayer/internal/player"
	"github.com/jmlt/demoplayer/internal/resource"
	"go.uber.org/zap"
)

// ReadinessSystem watches the resource counters and emits ResourcesLoaded
// the first frame every announced resource is complete. Phase 2 (Update).
type ReadinessSystem struct {
	tracker  *resource.Tracker
	bus      *event.Bus
	timer    *player.Timer
	log      *zap.Logger
	reported bool
	last     int64
}

func NewReadinessSystem(tracker *resource.Tracker, bus *event.Bus, timer *player.Timer, log *zap.Logger) *ReadinessSystem {
	return &ReadinessSystem{tracker: tracker, bus: bus, timer: timer, log: log, last: -1}
}

func (s *ReadinessSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ReadinessSystem) Update(_ time.Duration) {
	completed, expected := s.tracker.Counts()
	if completed != s.last {
		s.last = completed
		s.log.Debug("resource progress",
			zap.Int64("completed", completed),
			zap.Int64("expected", expected),
			zap.Float64("progress", s.tracker.Progress()))
	}
	if s.reported || expected == 0 || completed < expected {
		return
	}
	s.reported = true
	event.Emit(s.bus, event.ResourcesLoaded{Count: completed, Time: s.timer.Seconds()})
}

// Ready reports whether ResourcesLoaded was emitted.
func (s *ReadinessSystem) Ready() bool { return s.reported }
