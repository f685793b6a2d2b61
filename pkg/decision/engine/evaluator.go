package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"mercator-hq/tabula/pkg/decision/dense"
	"mercator-hq/tabula/pkg/decision/schema"
)

// Record is one input record keyed by declared input name. Fields that are
// not declared inputs are ignored.
type Record map[string]any

// Evaluator runs batches of records against compiled tables. It holds no
// per-table state and is safe for concurrent use.
type Evaluator struct {
	config *EngineConfig
	ops    dense.Ops
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator. A nil config uses DefaultEngineConfig
// and a nil logger uses slog.Default().
func NewEvaluator(config *EngineConfig, logger *slog.Logger) (*Evaluator, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		config: config,
		ops:    config.Ops,
		logger: logger.With("component", "engine.evaluator"),
	}, nil
}

// Config returns the evaluator's configuration.
func (e *Evaluator) Config() *EngineConfig {
	return e.config
}

// Evaluate evaluates every record against t and returns one Result per
// record, in record order. It fails only for a nil or released table or an
// unsupported hit policy; data problems degrade to unknown values.
func (e *Evaluator) Evaluate(t *Table, records []Record) ([]Result, error) {
	if t == nil {
		return nil, &EvaluationError{Op: "evaluate", Err: ErrNilTable}
	}
	if t.Released() {
		return nil, &EvaluationError{Table: t.name, Op: "evaluate", Err: ErrTableReleased}
	}
	if !supported(t) {
		return nil, &EvaluationError{Table: t.name, Op: "evaluate", Err: fmt.Errorf("%w: %q", ErrUnsupportedHitPolicy, t.policy)}
	}

	batch := len(records)
	results := make([]Result, batch)
	if batch == 0 {
		return results, nil
	}

	x := e.encode(t, records)
	fired := e.fire(t, x, batch)

	row := make([]bool, t.numRules)
	for b := range records {
		for r := range row {
			row[r] = fired[r*batch+b]
		}
		res, err := resolve(e.ops, t, row)
		if err != nil {
			return nil, err
		}
		results[b] = res
	}
	return results, nil
}

// EvaluateOne evaluates a single record.
func (e *Evaluator) EvaluateOne(t *Table, record Record) (Result, error) {
	results, err := e.Evaluate(t, []Record{record})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// encode builds the column-major input matrix: input i of record b lives at
// i*len(records)+b.
func (e *Evaluator) encode(t *Table, records []Record) []float64 {
	batch := len(records)
	missing := 0.0
	if e.config.MissingInput == MissingUnknown {
		missing = math.NaN()
	}

	x := make([]float64, len(t.inputs)*batch)
	for i, col := range t.inputs {
		column := x[i*batch : (i+1)*batch]
		for b, rec := range records {
			v, ok := rec[col.Name]
			if !ok {
				column[b] = missing
				continue
			}
			column[b] = t.codec.EncodeValue(v, col.TypeRef)
		}
	}
	return x
}

// fire computes the rule-major fired matrix: rule r fired for record b when
// fired[r*batch+b] is set. A table without input columns fires nothing. Rules are split across workers for large batches;
// each worker owns a disjoint range of rows, so the result does not depend
// on scheduling.
func (e *Evaluator) fire(t *Table, x []float64, batch int) []bool {
	fired := make([]bool, t.numRules*batch)
	if t.numRules == 0 || len(t.inputs) == 0 {
		return fired
	}

	workers := e.config.Workers
	cells := batch * t.numRules * len(t.inputs)
	if workers <= 1 || cells < e.config.ParallelThreshold || t.numRules < 2 {
		e.fireRange(t, x, fired, batch, 0, t.numRules)
		return fired
	}

	workers = min(workers, t.numRules)
	chunk := (t.numRules + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < t.numRules; lo += chunk {
		lo, hi := lo, min(lo+chunk, t.numRules)
		g.Go(func() error {
			e.fireRange(t, x, fired, batch, lo, hi)
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Debug("parallel evaluation",
		"table", t.name,
		"records", batch,
		"rules", t.numRules,
		"workers", workers,
	)
	return fired
}

func (e *Evaluator) fireRange(t *Table, x []float64, fired []bool, batch, lo, hi int) {
	nIn := len(t.inputs)
	scratch := make([]bool, batch)
	for r := lo; r < hi; r++ {
		mask := fired[r*batch : (r+1)*batch]
		e.ops.Fill(mask, true)
		for i := 0; i < nIn; i++ {
			k := r*nIn + i
			if !t.condActive[k] {
				continue
			}
			e.ops.Compare(scratch, x[i*batch:(i+1)*batch], t.condOp[k], t.condValue[k])
			e.ops.And(mask, scratch)
		}
	}
}

func supported(t *Table) bool {
	switch t.policy {
	case schema.HitPolicyUnique, schema.HitPolicyFirst, schema.HitPolicyCollect:
		return true
	}
	return false
}

var defaultEvaluator = sync.OnceValue(func() *Evaluator {
	e, err := NewEvaluator(nil, nil)
	if err != nil {
		panic(err)
	}
	return e
})

// Evaluate evaluates records against t with the default configuration.
func Evaluate(t *Table, records []Record) ([]Result, error) {
	return defaultEvaluator().Evaluate(t, records)
}

// EvaluateOne evaluates a single record against t with the default configuration.
func EvaluateOne(t *Table, record Record) (Result, error) {
	return defaultEvaluator().EvaluateOne(t, record)
}
