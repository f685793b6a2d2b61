// Package dense defines the batch array operations the evaluator is built on.
//
// The evaluator never compares cells one at a time through an interface
// call. It hands whole columns to an Ops implementation: compare a column of
// inputs against one rule literal, fold the result into the rule's fired
// mask, and so on. Loop is the plain-loop implementation; a SIMD or GPU
// backend can be plugged in through engine.EngineConfig without changing
// results.
//
// All operations follow the unknown semantics of the codec: Equal and
// NotEqual are both false when either side is NaN, ordering follows IEEE 754.
package dense

import (
	"math"

	"mercator-hq/tabula/pkg/decision/codec"
)

// Ops is a dense batch operations backend. Slices passed to one call have
// equal length; implementations must not retain them.
type Ops interface {
	// Compare sets dst[i] to the result of xs[i] op v.
	Compare(dst []bool, xs []float64, op codec.Operator, v float64)

	// And sets dst[i] = dst[i] && src[i].
	And(dst, src []bool)

	// Fill sets every element of dst to v.
	Fill(dst []bool, v bool)

	// Count returns the number of true elements.
	Count(src []bool) int

	// FirstTrue returns the index of the first true element, or -1.
	FirstTrue(src []bool) int
}

// Loop implements Ops with straightforward loops.
type Loop struct{}

var _ Ops = Loop{}

// Compare implements Ops.
func (Loop) Compare(dst []bool, xs []float64, op codec.Operator, v float64) {
	xs = xs[:len(dst)]
	switch op {
	case codec.OpEqual:
		for i, x := range xs {
			dst[i] = x == v
		}
	case codec.OpNotEqual:
		if math.IsNaN(v) {
			for i := range dst {
				dst[i] = false
			}
			return
		}
		for i, x := range xs {
			dst[i] = x != v && x == x
		}
	case codec.OpGreaterThan:
		for i, x := range xs {
			dst[i] = x > v
		}
	case codec.OpGreaterThanOrEqual:
		for i, x := range xs {
			dst[i] = x >= v
		}
	case codec.OpLessThan:
		for i, x := range xs {
			dst[i] = x < v
		}
	case codec.OpLessThanOrEqual:
		for i, x := range xs {
			dst[i] = x <= v
		}
	default:
		for i := range dst {
			dst[i] = false
		}
	}
}

// And implements Ops.
func (Loop) And(dst, src []bool) {
	src = src[:len(dst)]
	for i, s := range src {
		dst[i] = dst[i] && s
	}
}

// Fill implements Ops.
func (Loop) Fill(dst []bool, v bool) {
	for i := range dst {
		dst[i] = v
	}
}

// Count implements Ops.
func (Loop) Count(src []bool) int {
	n := 0
	for _, s := range src {
		if s {
			n++
		}
	}
	return n
}

// FirstTrue implements Ops.
func (Loop) FirstTrue(src []bool) int {
	for i, s := range src {
		if s {
			return i
		}
	}
	return -1
}
