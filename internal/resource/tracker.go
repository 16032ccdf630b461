// Package resource tracks asynchronous asset readiness.
//
// Announcing and completing a name are at-most-once operations so a name
// reported twice is never counted twice. Tracker is the one structure in
// the player that loader goroutines touch, so it is safe for concurrent use.
package resource

import (
	"sync"
	"sync/atomic"
)

type state uint8

const (
	pending state = iota + 1
	loaded
)

type Tracker struct {
	mu    sync.Mutex
	names map[string]state

	expected  atomic.Int64
	completed atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{names: make(map[string]state)}
}

// AddNotifyResource marks name pending. True only for the first announcement.
func (t *Tracker) AddNotifyResource(name string) bool {
	if name == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.names[name]; ok {
		return false
	}
	t.names[name] = pending
	t.expected.Add(1)
	return true
}

// NotifyResourceLoaded moves a pending name to loaded. False before the
// announcement and after the first completion.
func (t *Tracker) NotifyResourceLoaded(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.names[name] != pending {
		return false
	}
	t.names[name] = loaded
	t.completed.Add(1)
	return true
}

// Counts returns (completed, expected).
func (t *Tracker) Counts() (completed, expected int64) {
	return t.completed.Load(), t.expected.Load()
}

// Progress is completed/expected, 1 when nothing was announced.
func (t *Tracker) Progress() float64 {
	c, e := t.Counts()
	if e == 0 {
		return 1
	}
	return float64(c) / float64(e)
}

func (t *Tracker) Done() bool {
	c, e := t.Counts()
	return c == e
}

// Pending lists names announced but not loaded yet.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for n, s := range t.names {
		if s == pending {
			out = append(out, n)
		}
	}
	return out
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = make(map[string]state)
	t.expected.Store(0)
	t.completed.Store(0)
}
