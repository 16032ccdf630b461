package layer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	Min     = 0
	Max     = 99999
	Default = 1

	// width of an encoded numeric key; one digit wider than Max so that
	// lexicographic order of keys equals numeric order of layers.
	width = 6
)

// Kind tags which variant a Layer holds.
type Kind uint8

const (
	KindUnset Kind = iota
	KindNumeric
	KindOpaque
)

// Layer is an author-assigned draw-order value: either a number in [Min, Max]
// or an opaque string whose ordering the author controls.
type Layer struct {
	kind Kind
	num  int64
	text string
}

// Num returns a numeric layer. Out-of-range values are kept as given and
// clamped when encoded.
func Num(n int64) Layer {
	return Layer{kind: KindNumeric, num: n}
}

// Float returns a numeric layer for a fractional or out-of-range number.
// The fraction is truncated. Values past the int64 range saturate and NaN
// maps below Min, so Encode clamps all of them with a warning.
func Float(f float64) Layer {
	switch {
	case math.IsNaN(f):
		return Num(Min - 1)
	case f >= math.MaxInt64:
		return Num(math.MaxInt64)
	case f <= math.MinInt64:
		return Num(math.MinInt64)
	}
	return Num(int64(f))
}

// Name returns an opaque layer ("advanced mode").
func Name(s string) Layer {
	return Layer{kind: KindOpaque, text: s}
}

func (l Layer) Kind() Kind     { return l.kind }
func (l Layer) IsUnset() bool  { return l.kind == KindUnset }
func (l Layer) IsOpaque() bool { return l.kind == KindOpaque }

// Int returns the numeric value and whether the layer is numeric.
func (l Layer) Int() (int64, bool) {
	return l.num, l.kind == KindNumeric
}

// OrDefault returns Num(Default) for an unset layer.
func (l Layer) OrDefault() Layer {
	if l.kind == KindUnset {
		return Num(Default)
	}
	return l
}

func (l Layer) String() string {
	switch l.kind {
	case KindNumeric:
		return strconv.FormatInt(l.num, 10)
	case KindOpaque:
		return strconv.Quote(l.text)
	default:
		return "unset"
	}
}

// UnmarshalYAML decodes integer scalars as numeric layers and any other
// scalar as an opaque layer.
func (l *Layer) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("layer: expected scalar at line %d", node.Line)
	}
	switch node.ShortTag() {
	case "!!int":
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("layer: %w", err)
		}
		*l = Num(n)
		return nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("layer: %w", err)
		}
		*l = Float(f)
		return nil
	}
	*l = Name(node.Value)
	return nil
}

// Key is the encoded, totally ordered form of a Layer.
type Key string

// Compare orders keys lexicographically.
func (k Key) Compare(o Key) int {
	return strings.Compare(string(k), string(o))
}

func (k Key) Less(o Key) bool {
	return k < o
}

// Clamp restricts n to [Min, Max].
func Clamp(n int64) int64 {
	if n < Min {
		return Min
	}
	if n > Max {
		return Max
	}
	return n
}

// Encode converts a layer into its sort key. Opaque layers pass through
// verbatim. Numeric layers outside [Min, Max] are clamped with a warning.
// An unset layer encodes as Default.
func Encode(l Layer, log *zap.Logger) Key {
	l = l.OrDefault()
	if l.kind == KindOpaque {
		return Key(l.text)
	}

	n := l.num
	if n < Min || n > Max {
		clamped := Clamp(n)
		if log != nil {
			log.Warn("invalid layer, clamped",
				zap.Int64("layer", n),
				zap.Int64("clamped", clamped))
		}
		n = clamped
	}
	return Key(fmt.Sprintf("%0*d", width, n))
}
