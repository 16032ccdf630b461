package system

import (
	"bytes"
	"context"
	"time"

	coresys "github.com/jmlt/demoplayer/internal/core/system"
	"github.com/jmlt/demoplayer/internal/rocket"
	"go.uber.org/zap"
)

// TrackStore is where edited tracker tracks are kept.
type TrackStore interface {
	Save(ctx context.Context, name string, keys []rocket.Key) error
}

// PersistenceSystem periodically stores tracker tracks whose keys changed
// since the last save. Phase 5 (Persist).
type PersistenceSystem struct {
	device    *rocket.Device
	store     TrackStore
	log       *zap.Logger
	tickCount int
	interval  int // save every N frames
	saved     map[string][]byte
}

// NewPersistenceSystem treats the tracks already on the device as saved;
// only later edits and new tracks are written.
func NewPersistenceSystem(device *rocket.Device, store TrackStore, log *zap.Logger, intervalFrames int) *PersistenceSystem {
	if intervalFrames < 1 {
		intervalFrames = 1
	}
	s := &PersistenceSystem{
		device:   device,
		store:    store,
		log:      log,
		interval: intervalFrames,
		saved:    make(map[string][]byte),
	}
	s.Baseline()
	return s
}

// Baseline marks the current keys of every device track as saved.
func (s *PersistenceSystem) Baseline() {
	for _, name := range s.device.Names() {
		if tr, ok := s.device.Lookup(name); ok {
			s.saved[name] = rocket.EncodeKeys(tr.Keys())
		}
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush(context.Background())
}

// Flush saves every changed track now and returns how many were written.
func (s *PersistenceSystem) Flush(ctx context.Context) int {
	n := 0
	for _, name := range s.device.Names() {
		tr, ok := s.device.Lookup(name)
		if !ok {
			continue
		}
		keys := tr.Keys()
		enc := rocket.EncodeKeys(keys)
		if prev, ok := s.saved[name]; ok && bytes.Equal(prev, enc) {
			continue
		}
		if err := s.store.Save(ctx, name, keys); err != nil {
			s.log.Error("track save failed", zap.String("track", name), zap.Error(err))
			continue
		}
		s.saved[name] = enc
		n++
	}
	if n > 0 {
		s.log.Debug("tracks saved", zap.Int("count", n))
	}
	return n
}
