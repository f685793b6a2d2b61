// Package schema defines the neutral decision-table schema and reads it from
// YAML or JSON files.
//
// A Table lists typed input and output clauses, an ordered set of rules and
// a hit policy. Rule cells are literal strings in the cell grammar described
// by package codec; the schema never interprets them.
//
//	name: discount
//	hit_policy: FIRST
//	inputs:
//	  - {name: age, type_ref: number}
//	  - {name: tier, type_ref: string}
//	outputs:
//	  - {name: rate, type_ref: number}
//	rules:
//	  - inputs: ["< 18", "-"]
//	    outputs: ["0.5"]
//	  - inputs: [">= 18", '"gold"']
//	    outputs: ["0.2"]
//
// Validate reports structural problems for linting. The compiler tolerates
// most of them, so a table with warnings still compiles.
package schema
