package system

import (
	"time"

	coresys "github.com/jmlt/demoplayer/internal/core/system"
	"github.com/jmlt/demoplayer/internal/effect"
	"github.com/jmlt/demoplayer/internal/player"
)

// DrawSystem runs every initialised effect at the current demo time.
// Phase 3 (Draw).
type DrawSystem struct {
	effects *effect.Registry
	timer   *player.Timer
}

func NewDrawSystem(effects *effect.Registry, timer *player.Timer) *DrawSystem {
	return &DrawSystem{effects: effects, timer: timer}
}

func (s *DrawSystem) Phase() coresys.Phase { return coresys.PhaseDraw }

func (s *DrawSystem) Update(_ time.Duration) {
	s.effects.RunAll(s.timer.Seconds())
}
