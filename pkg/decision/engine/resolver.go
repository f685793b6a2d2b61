package engine

import (
	"fmt"

	"mercator-hq/tabula/pkg/decision/dense"
	"mercator-hq/tabula/pkg/decision/schema"
)

// Resolve reduces the fired flags of one record to a Result under the
// table's hit policy. fired has one entry per rule in declaration order.
func Resolve(t *Table, fired []bool) (Result, error) {
	if t == nil {
		return Result{}, &EvaluationError{Op: "resolve", Err: ErrNilTable}
	}
	if t.Released() {
		return Result{}, &EvaluationError{Table: t.name, Op: "resolve", Err: ErrTableReleased}
	}
	if len(fired) != t.numRules {
		return Result{}, &EvaluationError{Table: t.name, Op: "resolve", Err: fmt.Errorf("fired row has %d entries for %d rules", len(fired), t.numRules)}
	}
	return resolve(dense.Loop{}, t, fired)
}

// resolve reduces fired through ops: Count sizes the trace and FirstTrue
// walks it, so a backend's reductions serve every hit policy.
func resolve(ops dense.Ops, t *Table, fired []bool) (Result, error) {
	res := Result{HitPolicy: t.policy}
	if n := ops.Count(fired); n > 0 {
		res.Fired = make([]int, 0, n)
		for base := 0; base < len(fired); {
			i := ops.FirstTrue(fired[base:])
			if i < 0 {
				break
			}
			res.Fired = append(res.Fired, base+i)
			base += i + 1
		}
	}

	switch t.policy {
	case schema.HitPolicyUnique:
		switch len(res.Fired) {
		case 0:
		case 1:
			row := t.decodeRow(res.Fired[0])
			res.Row = &row
		default:
			res.Ambiguous = true
		}

	case schema.HitPolicyFirst:
		if len(res.Fired) > 0 {
			row := t.decodeRow(res.Fired[0])
			res.Row = &row
		}

	case schema.HitPolicyCollect:
		res.Rows = make([]OutputRow, len(res.Fired))
		for k, r := range res.Fired {
			res.Rows[k] = t.decodeRow(r)
		}

	default:
		return Result{}, &EvaluationError{Table: t.name, Op: "resolve", Err: fmt.Errorf("%w: %q", ErrUnsupportedHitPolicy, t.policy)}
	}
	return res, nil
}
