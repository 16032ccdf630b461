package timeline

import (
	"sort"

	"github.com/jmlt/demoplayer/internal/layer"
	"go.uber.org/zap"
)

// Window is the time span of an activation. A nil Duration means the
// activation never ends.
type Window struct {
	Start    float64
	Duration *float64
}

// Infinite is the zero-duration-pointer window starting at 0.
func Infinite() Window { return Window{} }

// For returns a window of a finite duration.
func For(start, duration float64) Window {
	return Window{Start: start, Duration: &duration}
}

// Contains reports whether t lies in [Start, Start+Duration).
func (w Window) Contains(t float64) bool {
	if t < w.Start {
		return false
	}
	return w.Duration == nil || t < w.Start+*w.Duration
}

// End returns the exclusive end time and false for an infinite window.
func (w Window) End() (float64, bool) {
	if w.Duration == nil {
		return 0, false
	}
	return w.Start + *w.Duration, true
}

// Activation is one scheduled entry. Never mutated after creation.
type Activation[T any] struct {
	Key   layer.Key
	Layer layer.Layer // as supplied by the author, defaults applied
	Window
	Value T

	seq uint64
}

// Seq is the registration sequence number; ties on Key are ordered by it.
func (a *Activation[T]) Seq() uint64 { return a.seq }

// Timeline keeps activations bucketed by layer key, buckets in ascending key
// order and registration order within a bucket.
// Single-goroutine access only (frame update thread).
type Timeline[T any] struct {
	buckets map[layer.Key][]*Activation[T]
	keys    []layer.Key
	seq     uint64
	log     *zap.Logger
}

func New[T any](log *zap.Logger) *Timeline[T] {
	return &Timeline[T]{
		buckets: make(map[layer.Key][]*Activation[T]),
		log:     log,
	}
}

// Add schedules value on the given layer and window and returns the new activation.
func (tl *Timeline[T]) Add(l layer.Layer, w Window, value T) *Activation[T] {
	l = l.OrDefault()
	key := layer.Encode(l, tl.log)

	tl.seq++
	a := &Activation[T]{
		Key:    key,
		Layer:  l,
		Window: w,
		Value:  value,
		seq:    tl.seq,
	}

	bucket, ok := tl.buckets[key]
	if !ok {
		i := sort.Search(len(tl.keys), func(i int) bool { return tl.keys[i] >= key })
		tl.keys = append(tl.keys, "")
		copy(tl.keys[i+1:], tl.keys[i:])
		tl.keys[i] = key
	}
	tl.buckets[key] = append(bucket, a)
	return a
}

// ActiveAt returns the activations whose window contains t, lowest layer
// first, equal layers in registration order.
func (tl *Timeline[T]) ActiveAt(t float64) []*Activation[T] {
	var out []*Activation[T]
	for _, k := range tl.keys {
		for _, a := range tl.buckets[k] {
			if a.Contains(t) {
				out = append(out, a)
			}
		}
	}
	return out
}

// All returns every activation in draw order.
func (tl *Timeline[T]) All() []*Activation[T] {
	out := make([]*Activation[T], 0, tl.Len())
	for _, k := range tl.keys {
		out = append(out, tl.buckets[k]...)
	}
	return out
}

// Keys returns the distinct layer keys in ascending order.
func (tl *Timeline[T]) Keys() []layer.Key {
	out := make([]layer.Key, len(tl.keys))
	copy(out, tl.keys)
	return out
}

func (tl *Timeline[T]) Len() int {
	n := 0
	for _, b := range tl.buckets {
		n += len(b)
	}
	return n
}

func (tl *Timeline[T]) Empty() bool {
	return len(tl.keys) == 0
}

// Reset tears the timeline down.
func (tl *Timeline[T]) Reset() {
	tl.buckets = make(map[layer.Key][]*Activation[T])
	tl.keys = nil
	tl.seq = 0
}
