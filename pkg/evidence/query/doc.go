// Package query validates evidence queries and fills in their defaults.
//
// Validate rejects negative or oversized limits, negative offsets, unknown
// sort fields or orders, inverted time ranges and unknown outcomes. Storage
// backends call it before touching the database and use SortColumns to map a
// sort field to a column, so user input never reaches SQL text.
//
//	q := &evidence.Query{Table: "discount", Outcome: "ambiguous"}
//	if err := query.Validate(q); err != nil {
//	    return err
//	}
//	query.ApplyDefaults(q) // limit 100, newest first
package query
