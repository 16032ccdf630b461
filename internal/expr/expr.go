// Package expr models parameter values that animations and sync patterns
// bind to: a literal, a list of literals, or a named expression resolved by
// an external evaluator against the current animation and progress.
package expr

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoResolver = errors.New("expr: no resolver for named expression")
	ErrNotNumeric = errors.New("expr: value is not numeric")
)

type Kind uint8

const (
	KindNone Kind = iota
	KindLiteral
	KindList
	KindNamed
)

// Value is a tagged union; the zero Value is KindNone.
type Value struct {
	kind Kind
	lit  float64
	list []float64
	name string
}

func Literal(f float64) Value { return Value{kind: KindLiteral, lit: f} }

func List(fs ...float64) Value {
	cp := make([]float64, len(fs))
	copy(cp, fs)
	return Value{kind: KindList, list: cp}
}

func Named(name string) Value { return Value{kind: KindNamed, name: name} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNone() bool { return v.kind == KindNone }
func (v Value) Name() string { return v.name }

func (v Value) String() string {
	switch v.kind {
	case KindLiteral:
		return strconv.FormatFloat(v.lit, 'g', -1, 64)
	case KindList:
		return fmt.Sprint(v.list)
	case KindNamed:
		return v.name
	default:
		return "<none>"
	}
}

// UnmarshalYAML accepts a number, a sequence of numbers or an expression string.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(node.Value, 64)
			if err != nil {
				return fmt.Errorf("expr: line %d: %w", node.Line, err)
			}
			*v = Literal(f)
		case "!!null":
			*v = Value{}
		default:
			*v = Named(node.Value)
		}
		return nil
	case yaml.SequenceNode:
		var fs []float64
		if err := node.Decode(&fs); err != nil {
			return fmt.Errorf("expr: line %d: %w", node.Line, ErrNotNumeric)
		}
		*v = List(fs...)
		return nil
	}
	return fmt.Errorf("expr: line %d: unsupported node", node.Line)
}

// Context is what a named expression is evaluated against.
type Context struct {
	Scene     string
	Animation string
	Progress  float64
	Time      float64
}

// Result holds one value (scalar) or several (vector).
type Result struct {
	Values []float64
}

func Scalar(f float64) Result { return Result{Values: []float64{f}} }

func (r Result) IsScalar() bool { return len(r.Values) == 1 }

// Scalar returns the first value, or 0 for an empty result.
func (r Result) Scalar() float64 {
	if len(r.Values) == 0 {
		return 0
	}
	return r.Values[0]
}

// Resolver evaluates named expressions (the Lua engine in production).
type Resolver interface {
	Resolve(ctx Context, name string) (Result, error)
}

// Evaluator resolves any Value to a Result.
type Evaluator struct {
	resolver Resolver
}

func NewEvaluator(r Resolver) *Evaluator {
	return &Evaluator{resolver: r}
}

func (e *Evaluator) Evaluate(ctx Context, v Value) (Result, error) {
	switch v.kind {
	case KindLiteral:
		return Scalar(v.lit), nil
	case KindList:
		out := make([]float64, len(v.list))
		copy(out, v.list)
		return Result{Values: out}, nil
	case KindNamed:
		if e == nil || e.resolver == nil {
			return Result{}, fmt.Errorf("%w: %q", ErrNoResolver, v.name)
		}
		return e.resolver.Resolve(ctx, v.name)
	default:
		return Result{}, nil
	}
}
