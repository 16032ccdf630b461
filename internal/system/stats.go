package system

import (
	"context"
	"time"

	coresys "github.com/jmlt/demoplayer/internal/core/system"
	"github.com/jmlt/demoplayer/internal/perf"
	"go.uber.org/zap"
)

// StatsSystem counts frames and, with a sampler, logs process usage every
// interval of wall time. Phase 4 (Stats).
type StatsSystem struct {
	counter  *perf.Counter
	sampler  *perf.Sampler
	interval time.Duration
	now      func() time.Time
	last     time.Time
	stats    perf.Stats
	log      *zap.Logger
}

func NewStatsSystem(counter *perf.Counter, sampler *perf.Sampler, interval time.Duration, now func() time.Time, log *zap.Logger) *StatsSystem {
	if now == nil {
		now = time.Now
	}
	return &StatsSystem{
		counter:  counter,
		sampler:  sampler,
		interval: interval,
		now:      now,
		last:     now(),
		log:      log,
	}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseStats }

func (s *StatsSystem) Update(_ time.Duration) {
	s.counter.Frame()
	s.stats.FPS = s.counter.FPS()
	s.stats.Frames = s.counter.Total()

	if s.sampler == nil || s.interval <= 0 || s.now().Sub(s.last) < s.interval {
		return
	}
	s.last = s.now()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := s.sampler.Sample(ctx, s.counter)
	if err != nil {
		s.log.Warn("process sample failed", zap.Error(err))
		return
	}
	s.stats = st
	s.log.Info("frame stats", zap.Stringer("stats", st))
}

// Stats returns the latest counters; process fields are from the last sample.
func (s *StatsSystem) Stats() perf.Stats { return s.stats }
