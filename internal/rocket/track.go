// Package rocket plays back GNU Rocket sync tracks: named key lists sampled
// at the current row, where row = seconds * bpm / 60 * rows per beat.
package rocket

import (
	"math"
	"sort"
)

type Interpolation uint8

const (
	Step Interpolation = iota
	Linear
	Smooth
	Ramp
)

func (i Interpolation) String() string {
	switch i {
	case Step:
		return "step"
	case Linear:
		return "linear"
	case Smooth:
		return "smooth"
	case Ramp:
		return "ramp"
	}
	return "unknown"
}

type Key struct {
	Row    int32
	Value  float32
	Interp Interpolation
}

// Track is a named key list bound to a device clock. It implements
// syncengine.Source.
type Track struct {
	name string
	keys []Key
	dev  *Device
}

func (t *Track) Name() string { return t.name }

// Keys returns a copy of the keys in row order.
func (t *Track) Keys() []Key {
	return append([]Key(nil), t.keys...)
}

func (t *Track) Len() int { return len(t.keys) }

// find returns the index of row, or -(insertion point)-1.
func (t *Track) find(row int32) int {
	i := sort.Search(len(t.keys), func(i int) bool { return t.keys[i].Row >= row })
	if i < len(t.keys) && t.keys[i].Row == row {
		return i
	}
	return -i - 1
}

// SetKey inserts k or replaces the key on the same row.
func (t *Track) SetKey(k Key) {
	i := t.find(k.Row)
	if i >= 0 {
		t.keys[i] = k
		return
	}
	i = -i - 1
	t.keys = append(t.keys, Key{})
	copy(t.keys[i+1:], t.keys[i:])
	t.keys[i] = k
}

// DeleteKey removes the key on row; false if there was none.
func (t *Track) DeleteKey(row int32) bool {
	i := t.find(row)
	if i < 0 {
		return false
	}
	t.keys = append(t.keys[:i], t.keys[i+1:]...)
	return true
}

// SetKeys replaces all keys.
func (t *Track) SetKeys(keys []Key) {
	t.keys = make([]Key, 0, len(keys))
	for _, k := range keys {
		t.SetKey(k)
	}
}

// ValueAt samples the track at a fractional row. No keys yields 0; rows
// before the first key or after the last yield the edge values.
func (t *Track) ValueAt(row float64) float64 {
	if len(t.keys) == 0 {
		return 0
	}

	idx := t.find(int32(math.Floor(row)))
	if idx < 0 {
		idx = -idx - 2
	}
	if idx < 0 {
		return float64(t.keys[0].Value)
	}
	if idx > len(t.keys)-2 {
		return float64(t.keys[len(t.keys)-1].Value)
	}

	k0, k1 := t.keys[idx], t.keys[idx+1]
	if k0.Interp == Step {
		return float64(k0.Value)
	}

	x := (row - float64(k0.Row)) / float64(k1.Row-k0.Row)
	switch k0.Interp {
	case Smooth:
		x = x * x * (3 - 2*x)
	case Ramp:
		x = x * x
	}
	return float64(k0.Value) + float64(k1.Value-k0.Value)*x
}

// CurrentValue samples at the device's current row.
func (t *Track) CurrentValue() float64 {
	if t.dev == nil {
		return t.ValueAt(0)
	}
	return t.ValueAt(t.dev.Row())
}
