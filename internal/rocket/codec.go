package rocket

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrShortTrack is returned when a track file ends before its declared keys.
var ErrShortTrack = errors.New("rocket: short track data")

// keySize is row(int32) + value(float32) + interpolation(uint8).
const keySize = 4 + 4 + 1

// reader reads little-endian track fields. Reads past the end return zero
// and mark the reader short.
type reader struct {
	data  []byte
	off   int
	short bool
}

// readC reads 1 unsigned byte.
func (r *reader) readC() byte {
	if r.off >= len(r.data) {
		r.short = true
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// readD reads 4 bytes as little-endian int32.
func (r *reader) readD() int32 {
	if r.off+4 > len(r.data) {
		r.short = true
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// readF reads 4 bytes as a little-endian IEEE-754 float32.
func (r *reader) readF() float32 {
	return math.Float32frombits(uint32(r.readD()))
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

// writer builds track file content. All multi-byte writes are little-endian.
type writer struct {
	buf []byte
}

func (w *writer) writeC(v byte) {
	w.buf = append(w.buf, v)
}

func (w *writer) writeD(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) writeF(v float32) {
	w.writeD(int32(math.Float32bits(v)))
}

// DecodeKeys parses the GNU Rocket track file layout: int32 key count
// followed by (int32 row, float32 value, uint8 interpolation) per key.
// Keys are returned sorted by row.
func DecodeKeys(data []byte) ([]Key, error) {
	r := &reader{data: data}
	n := r.readD()
	if r.short {
		return nil, ErrShortTrack
	}
	if n < 0 {
		return nil, fmt.Errorf("rocket: negative key count %d", n)
	}
	if int64(n)*keySize > int64(r.remaining()) {
		return nil, fmt.Errorf("%w: %d keys declared, %d bytes left", ErrShortTrack, n, r.remaining())
	}

	keys := make([]Key, 0, n)
	for i := int32(0); i < n; i++ {
		k := Key{Row: r.readD(), Value: r.readF()}
		interp := r.readC()
		if interp > byte(Ramp) {
			return nil, fmt.Errorf("rocket: key %d: unknown interpolation %d", i, interp)
		}
		k.Interp = Interpolation(interp)
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Row < keys[j].Row })
	return keys, nil
}

// EncodeKeys is the inverse of DecodeKeys.
func EncodeKeys(keys []Key) []byte {
	w := &writer{buf: make([]byte, 0, 4+len(keys)*keySize)}
	w.writeD(int32(len(keys)))
	for _, k := range keys {
		w.writeD(k.Row)
		w.writeF(k.Value)
		w.writeC(byte(k.Interp))
	}
	return w.buf
}
