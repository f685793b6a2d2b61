package dense

import (
	"math"
	"testing"

	"mercator-hq/tabula/pkg/decision/codec"
)

func TestLoop_Compare(t *testing.T) {
	nan := math.NaN()
	xs := []float64{1, 2, 3, nan}

	tests := []struct {
		name string
		op   codec.Operator
		v    float64
		want []bool
	}{
		{name: "equal", op: codec.OpEqual, v: 2, want: []bool{false, true, false, false}},
		{name: "not equal", op: codec.OpNotEqual, v: 2, want: []bool{true, false, true, false}},
		{name: "greater", op: codec.OpGreaterThan, v: 2, want: []bool{false, false, true, false}},
		{name: "greater or equal", op: codec.OpGreaterThanOrEqual, v: 2, want: []bool{false, true, true, false}},
		{name: "less", op: codec.OpLessThan, v: 2, want: []bool{true, false, false, false}},
		{name: "less or equal", op: codec.OpLessThanOrEqual, v: 2, want: []bool{true, true, false, false}},
		{name: "equal against unknown literal", op: codec.OpEqual, v: nan, want: []bool{false, false, false, false}},
		{name: "not equal against unknown literal", op: codec.OpNotEqual, v: nan, want: []bool{false, false, false, false}},
		{name: "ordering against unknown literal", op: codec.OpLessThan, v: nan, want: []bool{false, false, false, false}},
		{name: "invalid operator", op: codec.Operator(99), v: 1, want: []bool{false, false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := []bool{true, true, true, true}
			Loop{}.Compare(dst, xs, tt.op, tt.v)
			for i := range dst {
				if dst[i] != tt.want[i] {
					t.Errorf("Compare(%v %s %v) = %v, want %v", xs[i], tt.op, tt.v, dst[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoop_Logic(t *testing.T) {
	var ops Ops = Loop{}

	a := []bool{true, true, false, false}
	ops.And(a, []bool{true, false, true, false})
	if !a[0] || a[1] || a[2] || a[3] {
		t.Errorf("And() = %v", a)
	}

	f := make([]bool, 5)
	ops.Fill(f, true)
	if ops.Count(f) != 5 {
		t.Errorf("Count(Fill(true)) = %d, want 5", ops.Count(f))
	}
	if ops.FirstTrue([]bool{false, false, true, true}) != 2 {
		t.Error("FirstTrue() did not return 2")
	}
	if ops.FirstTrue([]bool{false}) != -1 || ops.FirstTrue(nil) != -1 {
		t.Error("FirstTrue() on no true elements did not return -1")
	}
}

func BenchmarkLoop_Compare(b *testing.B) {
	xs := make([]float64, 4096)
	for i := range xs {
		xs[i] = float64(i % 100)
	}
	dst := make([]bool, len(xs))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Loop{}.Compare(dst, xs, codec.OpLessThan, 50)
	}
}
