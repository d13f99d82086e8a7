package sparsetable

import (
	"cmp"
	"math"
)

// Operator is the aggregation used by a SparseTable.
//
// Combine must be associative, commutative and idempotent, and it must
// return one of its two arguments: the table stores positions and decides
// which half won by comparing the result with the left value.
// Neutral returns the identity element (Combine(Neutral(), x) == x).
type Operator[T comparable] interface {
	Combine(a, b T) T
	Neutral() T
}

// Max selects the larger value.
type Max[T cmp.Ordered] struct {
	Identity T
}

// Combine returns max(a, b), preferring a on ties.
func (m Max[T]) Combine(a, b T) T {
	if b > a {
		return b
	}
	return a
}

// Neutral returns m.Identity
func (m Max[T]) Neutral() T {
	return m.Identity
}

// Min selects the smaller value.
type Min[T cmp.Ordered] struct {
	Identity T
}

// Combine returns min(a, b), preferring a on ties.
func (m Min[T]) Combine(a, b T) T {
	if b < a {
		return b
	}
	return a
}

// Neutral returns m.Identity
func (m Min[T]) Neutral() T {
	return m.Identity
}

// OperatorFunc adapts a plain selection function to Operator.
type OperatorFunc[T comparable] struct {
	Fn       func(a, b T) T
	Identity T
}

// Combine calls o.Fn(a, b)
func (o OperatorFunc[T]) Combine(a, b T) T {
	return o.Fn(a, b)
}

// Neutral returns o.Identity
func (o OperatorFunc[T]) Neutral() T {
	return o.Identity
}

var (
	// IntMax is max over int
	IntMax = Max[int]{Identity: math.MinInt}
	// IntMin is min over int
	IntMin = Min[int]{Identity: math.MaxInt}
	// Int64Max is max over int64
	Int64Max = Max[int64]{Identity: math.MinInt64}
	// Int64Min is min over int64
	Int64Min = Min[int64]{Identity: math.MaxInt64}
	// Float64Max is max over float64. NaN values are not supported.
	Float64Max = Max[float64]{Identity: math.Inf(-1)}
	// Float64Min is min over float64. NaN values are not supported.
	Float64Min = Min[float64]{Identity: math.Inf(1)}
)
