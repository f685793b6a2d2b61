// Package api defines the JSON request and response types shared by the HTTP
// server and the Lambda transport.
//
// # Core Types
//
// Request types:
//   - EvaluateRequest: body of POST /api/v1/tables/{name}/evaluate and
//     POST /api/v1/evaluate, and the Lambda event body
//
// Response types:
//   - EvaluateResponse: one entry per evaluated record, in record order
//   - TableList, TableDetail: registry listings
//
// Error types:
//   - ErrorResponse and ErrorDetail
//   - FromError maps service and registry errors to a status code and body
//
// # Result Shape
//
// UNIQUE and FIRST tables report the selected row under "output", which is
// omitted when nothing was selected. COLLECT tables always report "outputs",
// an array that is empty when no rule fired. "fired" is included only when
// the request sets "trace".
//
//	{
//	  "table": "discount",
//	  "version": "3f2a9c01b7de",
//	  "hit_policy": "UNIQUE",
//	  "batch_id": "9b1d...",
//	  "results": [
//	    {"index": 0, "outcome": "matched", "output": {"rate": 0.2}},
//	    {"index": 1, "outcome": "ambiguous", "ambiguous": true}
//	  ]
//	}
package api
