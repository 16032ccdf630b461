package layer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

func TestEncode_NumericOrder(t *testing.T) {
	log := zap.NewNop()
	prev := Encode(Num(0), log)
	assert.Equal(t, Key("000000"), prev)
	for n := int64(1); n <= Max; n++ {
		k := Encode(Num(n), log)
		require.Len(t, string(k), 6)
		require.True(t, prev.Less(k), "encode(%d) should sort after encode(%d)", n, n-1)
		prev = k
	}
	assert.Equal(t, Key("099999"), prev)
}

func TestEncode_ClampsWithDiagnostic(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	assert.Equal(t, Encode(Num(0), zap.NewNop()), Encode(Num(-7), log))
	assert.Equal(t, Encode(Num(Max), zap.NewNop()), Encode(Num(123456), log))

	entries := logs.FilterMessage("invalid layer, clamped").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-7), entries[0].ContextMap()["layer"])
	assert.Equal(t, int64(0), entries[0].ContextMap()["clamped"])
	assert.Equal(t, int64(123456), entries[1].ContextMap()["layer"])
	assert.Equal(t, int64(Max), entries[1].ContextMap()["clamped"])
}

func TestEncode_InRangeIsSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Encode(Num(42), zap.New(core))
	assert.Zero(t, logs.Len())
}

func TestEncode_OpaqueAndUnset(t *testing.T) {
	log := zap.NewNop()
	assert.Equal(t, Key("zz-overlay"), Encode(Name("zz-overlay"), log))
	assert.Equal(t, Key("000001"), Encode(Layer{}, log))
	assert.Equal(t, -1, Key("000005").Compare(Key("a")))
}

func TestLayer_UnmarshalYAML(t *testing.T) {
	var doc struct {
		A Layer `yaml:"a"`
		B Layer `yaml:"b"`
		C Layer `yaml:"c"`
		D Layer `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 5\nb: overlay\nc: -3\nd: 2.0\n"), &doc))

	n, ok := doc.A.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(5), n)
	assert.True(t, doc.B.IsOpaque())
	assert.Equal(t, `"overlay"`, doc.B.String())
	n, _ = doc.C.Int()
	assert.Equal(t, int64(-3), n)
	n, _ = doc.D.Int()
	assert.Equal(t, int64(2), n)
}

func TestFloat_ClampsToNearestBound(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	assert.Equal(t, Key("099999"), Encode(Float(1e20), log))
	assert.Equal(t, Key("000000"), Encode(Float(-1e20), log))
	assert.Equal(t, Key("000000"), Encode(Float(math.NaN()), log))
	assert.Equal(t, Key("099999"), Encode(Float(math.Inf(1)), log))
	assert.Equal(t, 4, logs.FilterMessage("invalid layer, clamped").Len())

	assert.Equal(t, Key("000007"), Encode(Float(7.9), log))
	assert.Equal(t, 4, logs.Len())
}

func TestLayer_UnmarshalYAMLOutOfRangeFloat(t *testing.T) {
	var doc struct {
		A Layer `yaml:"a"`
		B Layer `yaml:"b"`
		C Layer `yaml:"c"`
		D Layer `yaml:"d"`
		E Layer `yaml:"e"`
	}
	src := "a: 1e20\nb: -1e20\nc: .nan\nd: 99999999999999999999\ne: -.inf\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)
	assert.Equal(t, Key("099999"), Encode(doc.A, log))
	assert.Equal(t, Key("000000"), Encode(doc.B, log))
	assert.Equal(t, Key("000000"), Encode(doc.C, log))
	assert.Equal(t, Key("099999"), Encode(doc.D, log))
	assert.Equal(t, Key("000000"), Encode(doc.E, log))
	assert.Equal(t, 5, logs.FilterMessage("invalid layer, clamped").Len())
}
