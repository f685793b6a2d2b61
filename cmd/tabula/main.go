// Tabula is a decision-table evaluation service.
//
// It compiles DMN-style decision tables into dense arrays and evaluates
// batches of records against them under the UNIQUE, FIRST and COLLECT hit
// policies.
//
// Usage:
//
//	# Serve every table under ./tables over HTTP
//	tabula run --config tabula.yaml
//
//	# Evaluate a batch of records locally
//	tabula evaluate --table tables/discount.yaml --records customers.csv
//
//	# Validate table files
//	tabula lint --table tables/discount.yaml --strict
//
//	# Render a table as a Graphviz graph
//	tabula explain --table tables/discount.yaml --dot | dot -Tsvg > discount.svg
//
//	# Query recorded evaluations
//	tabula evidence query --table discount --outcome ambiguous
package main

func main() {
	Execute()
}
