package groupby

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Accumulator is a reduction policy over the rendered value field.
// Seed produces a fresh per-group state; Combine folds one rendered value
// into it. States of different groups never interact.
type Accumulator[S any] interface {
	Seed() S
	Combine(state S, raw string) (S, error)
}

// Cloner is implemented by accumulators whose state shares memory, such as
// a slice. The finished Aggregate passes every value it hands out through
// Clone so callers cannot write into it.
type Cloner[S any] interface {
	Clone(state S) S
}

// Number is the set of types Sum can accumulate
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Parser decodes a rendered field into a typed value
type Parser[V any] func(string) (V, error)

// ParseInt parses a base-10 int
func ParseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, parseError(s, "int", err)
	}
	return v, nil
}

// ParseInt64 parses a base-10 int64
func ParseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, parseError(s, "int64", err)
	}
	return v, nil
}

// ParseUint64 parses a base-10 uint64
func ParseUint64(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, parseError(s, "uint64", err)
	}
	return v, nil
}

// ParseFloat64 parses a float64
func ParseFloat64(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, parseError(s, "float64", err)
	}
	return v, nil
}

// ParseString is the identity parser
func ParseString(s string) (string, error) {
	return s, nil
}

func parseError(s, typ string, cause error) error {
	if ne, ok := cause.(*strconv.NumError); ok {
		cause = ne.Err
	}
	return fmt.Errorf("%w %q as %s: %v", ErrParse, s, typ, cause)
}

// SumOf adds parsed values, seeded at zero
func SumOf[N Number](parse Parser[N]) Accumulator[N] {
	return sumAcc[N]{parse: parse}
}

type sumAcc[N Number] struct {
	parse Parser[N]
}

func (sumAcc[N]) Seed() N { return 0 }

func (a sumAcc[N]) Combine(state N, raw string) (N, error) {
	v, err := a.parse(raw)
	if err != nil {
		return state, err
	}
	return state + v, nil
}

// CollectOf appends parsed values in arrival order, seeded empty
func CollectOf[V any](parse Parser[V]) Accumulator[[]V] {
	return collectAcc[V]{parse: parse}
}

type collectAcc[V any] struct {
	parse Parser[V]
}

func (collectAcc[V]) Seed() []V { return []V{} }

func (a collectAcc[V]) Combine(state []V, raw string) ([]V, error) {
	v, err := a.parse(raw)
	if err != nil {
		return state, err
	}
	return append(state, v), nil
}

func (collectAcc[V]) Clone(state []V) []V {
	return slices.Clone(state)
}

// CountOf counts records per group. The value field must still be readable
// but its contents are ignored.
func CountOf() Accumulator[int64] {
	return countAcc{}
}

type countAcc struct{}

func (countAcc) Seed() int64 { return 0 }

func (countAcc) Combine(state int64, _ string) (int64, error) {
	return state + 1, nil
}

// Extreme is the state of MinOf and MaxOf. Valid is false until a value has
// been seen.
type Extreme[V cmp.Ordered] struct {
	Value V
	Valid bool
}

func (e Extreme[V]) String() string {
	if !e.Valid {
		return ""
	}
	return RenderValue(e.Value)
}

// MinOf keeps the smallest parsed value
func MinOf[V cmp.Ordered](parse Parser[V]) Accumulator[Extreme[V]] {
	return extremeAcc[V]{parse: parse, keep: func(c, cur V) bool { return c < cur }}
}

// MaxOf keeps the largest parsed value
func MaxOf[V cmp.Ordered](parse Parser[V]) Accumulator[Extreme[V]] {
	return extremeAcc[V]{parse: parse, keep: func(c, cur V) bool { return c > cur }}
}

type extremeAcc[V cmp.Ordered] struct {
	parse Parser[V]
	keep  func(candidate, current V) bool
}

func (extremeAcc[V]) Seed() Extreme[V] { return Extreme[V]{} }

func (a extremeAcc[V]) Combine(state Extreme[V], raw string) (Extreme[V], error) {
	v, err := a.parse(raw)
	if err != nil {
		return state, err
	}
	if !state.Valid || a.keep(v, state.Value) {
		return Extreme[V]{Value: v, Valid: true}, nil
	}
	return state, nil
}
