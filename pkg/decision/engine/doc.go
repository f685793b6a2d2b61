// Package engine compiles decision tables into dense execution plans and
// evaluates batches of records against them.
//
// # Architecture
//
//	schema.Table
//	     ↓ Compile (codec encodes every literal)
//	engine.Table (condition, operator, active and output arrays)
//	     ↓ Evaluator.Evaluate (batch of Records)
//	fired matrix (rules x records)
//	     ↓ Resolve (hit policy)
//	[]Result
//
// Columns are addressed by index. Names are resolved once, when records are
// encoded into the column-major input matrix.
//
// # Basic Usage
//
//	src, err := schema.Load("tables/discount.yaml")
//	if err != nil {
//	    return err
//	}
//	table, err := engine.Compile(src)
//	if err != nil {
//	    return err
//	}
//	defer table.Release()
//
//	results, err := engine.Evaluate(table, []engine.Record{
//	    {"age": 17, "member": true},
//	})
//	if row := results[0].Row; row != nil {
//	    rate, _ := row.Get("rate")
//	}
//
// # Unknown Values
//
// NaN is the unknown sentinel. Nil inputs, strings the table never mentions
// and unparseable values all encode to it. A condition other than don't-care
// never passes against an unknown input: Equal and NotEqual are both false,
// and ordering operators follow IEEE 754.
//
// Declared inputs that are missing from a record default to 0. Set
// EngineConfig.MissingInput to MissingUnknown to treat them as unknown
// instead; the two modes differ for conditions satisfied by zero such as
// "= 0", "<= 0" or "!= 5".
//
// # Hit Policies
//
//   - UNIQUE: the single fired rule, or no row when none or several fired.
//     Result.Ambiguous tells the two empty cases apart.
//   - FIRST: the lowest-index fired rule.
//   - COLLECT: every fired rule in declaration order.
//
// Any other policy is rejected by Compile and by Evaluate.
//
// # Concurrency
//
// A compiled Table is read-only and may be shared across goroutines.
// Evaluate splits large batches across EngineConfig.Workers goroutines by
// rule range; results are identical to sequential evaluation. Release must
// not race with evaluation of the same table; manager.Registry serializes
// the two with leases.
package engine
